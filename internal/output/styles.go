package output

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Color palette. Never use inline lipgloss.Color literals elsewhere.
var (
	// ColorCyan is used for identifiable nouns: designations, file paths.
	ColorCyan = lipgloss.Color("14")

	// ColorGreen is used for exported nodes.
	ColorGreen = lipgloss.Color("82")

	// ColorYellow is used for skipped nodes.
	ColorYellow = lipgloss.Color("220")

	// ColorBoldRed is used for failed nodes (matches ERROR level).
	ColorBoldRed = lipgloss.Color("204")

	// ColorGreenCheck is used for the completion checkmark.
	ColorGreenCheck = lipgloss.Color("10")

	// ColorDimGray is used for borders and tree chrome.
	ColorDimGray = lipgloss.Color("240")
)

// Semantic styles.
var (
	StyleNoun    = lipgloss.NewStyle().Foreground(ColorCyan)
	StyleDim     = lipgloss.NewStyle().Faint(true)
	StyleSummary = lipgloss.NewStyle().Bold(true)
)

// Node status words.
const (
	StatusExported = "exported"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
)

// StatusStyle returns the style for a node status. Unknown statuses are
// unstyled.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case StatusExported:
		return lipgloss.NewStyle().Foreground(ColorGreen)
	case StatusSkipped:
		return lipgloss.NewStyle().Foreground(ColorYellow)
	case StatusFailed:
		return lipgloss.NewStyle().Bold(true).Foreground(ColorBoldRed)
	default:
		return lipgloss.NewStyle()
	}
}

// FormatCheckmark renders a green checkmark with a message for stdout output.
func FormatCheckmark(msg string) string {
	check := lipgloss.NewStyle().Foreground(ColorGreenCheck).Render("✔")
	return check + " " + msg
}

// FormatCross renders a red cross with a message.
func FormatCross(msg string) string {
	return StatusStyle(StatusFailed).Render("✘") + " " + msg
}

// FormatStatusLine summarises a finished run.
func FormatStatusLine(verb string, ok, failed, skipped int) string {
	counts := fmt.Sprintf("%s %d, %s %d, %s %d",
		StatusStyle(StatusExported).Render(StatusExported), ok,
		StatusStyle(StatusFailed).Render(StatusFailed), failed,
		StatusStyle(StatusSkipped).Render(StatusSkipped), skipped)
	msg := StyleSummary.Render(verb) + ": " + counts
	if failed > 0 {
		return FormatCross(msg)
	}
	return FormatCheckmark(msg)
}
