package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kheller/diagrid/pkg/diagram"
	"github.com/kheller/diagrid/pkg/render"
)

// exportOpts holds the command-line flags for the export command.
type exportOpts struct {
	output   string // output file path; derived from input when empty
	format   string // output format: "dot", "svg", "png"
	detailed bool   // include all part attributes in labels
}

// newExportCmd creates the export command for rendering a diagram file to
// DOT, SVG, or PNG via Graphviz.
func newExportCmd() *cobra.Command {
	opts := exportOpts{format: "svg"}

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export a diagram to DOT, SVG, or PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateExportFormat(opts.format); err != nil {
				return err
			}
			return runExport(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (defaults to input with new extension)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg (default), png, dot")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include all attributes in node labels")

	return cmd
}

// validExportFormats is the set of supported export formats.
var validExportFormats = map[string]bool{"dot": true, "svg": true, "png": true}

func validateExportFormat(f string) error {
	if !validExportFormats[f] {
		return fmt.Errorf("invalid format: %s (must be 'dot', 'svg', or 'png')", f)
	}
	return nil
}

// runExport loads the diagram, renders it in the requested format, and
// writes the result.
func runExport(ctx context.Context, input string, opts *exportOpts) error {
	logger := loggerFromContext(ctx)

	d, err := diagram.ReadDiagramFile(input)
	if err != nil {
		return err
	}
	logger.Infof("Loaded diagram: %d nodes, %d links", len(d.Nodes), len(d.Links))

	dot := render.ToDOT(d, render.Options{Detailed: opts.detailed})

	var data []byte
	switch opts.format {
	case "dot":
		data = []byte(dot)
	case "svg":
		data, err = render.SVG(ctx, dot)
	case "png":
		data, err = render.PNG(ctx, dot)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", opts.format, err)
	}

	outputPath := opts.output
	if outputPath == "" {
		outputPath = strings.TrimSuffix(input, filepath.Ext(input)) + "." + opts.format
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return err
	}

	logger.Infof("Generated %s", outputPath)
	return nil
}
