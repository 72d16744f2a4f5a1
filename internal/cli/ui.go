package cli

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	// styleTitle for pane headings.
	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// styleSelected for the part under the cursor.
	styleSelected = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// styleNormal for list entries.
	styleNormal = lipgloss.NewStyle().Foreground(colorWhite)

	// styleDim for key hints and secondary text.
	styleDim = lipgloss.NewStyle().Foreground(colorDim)

	// styleReadOnly for the identity row of the inspector.
	styleReadOnly = lipgloss.NewStyle().Foreground(colorYellow)

	// styleError for status-line errors.
	styleError = lipgloss.NewStyle().Foreground(colorRed)

	// styleSuccess for status-line confirmations.
	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// stylePane frames the canvas and inspector panes.
	stylePane = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)
)
