// Package formatter renders planner output for terminal consumption.
package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/J-ANet/prototipo/internal/metrics"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

// Predefined lipgloss styles.
var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// ConfidenceIndicator returns a colored confidence marker such as "● HIGH".
func ConfidenceIndicator(level metrics.ConfidenceLevel) string {
	switch level {
	case metrics.ConfidenceHigh:
		return StyleGreen.Render("● HIGH")
	case metrics.ConfidenceMedium:
		return StyleYellow.Render("● MEDIUM")
	case metrics.ConfidenceLow:
		return StyleRed.Render("● LOW")
	default:
		return StyleDim.Render("● UNKNOWN")
	}
}

// SeverityStyle maps an issue severity onto a style.
func SeverityStyle(severity string) lipgloss.Style {
	switch severity {
	case "critical":
		return StyleRed
	case "error":
		return StyleRed
	case "warning":
		return StyleYellow
	case "info":
		return StyleBlue
	default:
		return StyleDim
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// Dim renders text in the muted/dim color.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return StyleBold.Render(text)
}
