package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kheller/diagrid/pkg/diagram"
)

// editOpts holds the command-line flags for the edit command.
type editOpts struct {
	output string // save path; defaults to the input file
	sample bool   // start from the built-in sample diagram
}

// newEditCmd creates the edit command, an interactive terminal editor. It
// presents the diagram next to a selection inspector and routes every edit
// through the same incremental reconciliation used by the HTTP server.
func newEditCmd(configPath *string) *cobra.Command {
	var opts editOpts

	cmd := &cobra.Command{
		Use:   "edit [file]",
		Short: "Edit a diagram interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			input := ""
			if len(args) == 1 {
				input = cfg.resolvePath(args[0])
			}
			if opts.output != "" {
				opts.output = cfg.resolvePath(opts.output)
			}
			return runEdit(cmd.Context(), input, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "file to save the diagram to on exit")
	cmd.Flags().BoolVar(&opts.sample, "sample", false, "start from the built-in sample diagram")

	return cmd
}

// runEdit loads the starting diagram, runs the editor, and saves the result.
func runEdit(ctx context.Context, input string, opts *editOpts) error {
	logger := loggerFromContext(ctx)

	d, err := loadStartingDiagram(input, opts.sample)
	if err != nil {
		return err
	}
	logger.Debugf("Loaded diagram: %d nodes, %d links", len(d.Nodes), len(d.Links))

	program := tea.NewProgram(NewEditorModel(d), tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("editor: %w", err)
	}

	model, ok := final.(EditorModel)
	if !ok {
		return errors.New("editor returned unexpected model")
	}

	savePath := opts.output
	if savePath == "" {
		savePath = input
	}
	if savePath == "" {
		logger.Warn("No output path; discarding changes (use -o to save)")
		return nil
	}

	if err := diagram.WriteDiagramFile(model.Snapshot(), savePath); err != nil {
		return err
	}
	logger.Infof("Saved %s", savePath)
	return nil
}

// loadStartingDiagram resolves the initial diagram: an explicit file, the
// sample, or an empty diagram when neither is given.
func loadStartingDiagram(input string, sample bool) (diagram.Diagram, error) {
	if sample {
		return diagram.Sample(), nil
	}
	if input == "" {
		return diagram.Diagram{Metadata: diagram.Attrs{"canRelink": true}}, nil
	}
	if _, err := os.Stat(input); err != nil {
		return diagram.Diagram{}, fmt.Errorf("open %s: %w", input, err)
	}
	return diagram.ReadDiagramFile(input)
}
