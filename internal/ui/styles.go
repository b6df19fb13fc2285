// Package ui provides consistent styling for the wdotool CLI
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Color palette - consistent across the application
var (
	ColorPrimary = lipgloss.Color("39")  // Bright blue
	ColorSuccess = lipgloss.Color("82")  // Green
	ColorWarning = lipgloss.Color("214") // Orange
	ColorError   = lipgloss.Color("196") // Red
	ColorInfo    = lipgloss.Color("86")  // Cyan

	ColorText   = lipgloss.Color("252") // Light gray
	ColorSubtle = lipgloss.Color("241") // Medium gray
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	KeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorInfo)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorText)
)

// Icons
var (
	IconSuccess = "✓"
	IconWarning = "!"
	IconActive  = "●"
	IconLost    = "○"
)

// FormatHeader renders a section title with a separator below it.
func FormatHeader(title string) string {
	return HeaderStyle.Render(title) + "\n" + CreateSeparator(50, "─")
}

// FormatKeyValue renders one aligned setting line.
func FormatKeyValue(key, value string, width int) string {
	pad := width - lipgloss.Width(key)
	if pad < 0 {
		pad = 0
	}
	return "  " + KeyStyle.Render(key) + strings.Repeat(" ", pad) + "  " + ValueStyle.Render(value)
}

// FormatStatus renders a usable/lost indicator followed by text.
func FormatStatus(usable bool, status string) string {
	if usable {
		return SuccessStyle.Render(IconActive) + " " + status
	}
	return ErrorStyle.Render(IconLost) + " " + status
}

// FormatWarning renders a warning line.
func FormatWarning(msg string) string {
	return WarningStyle.Render(IconWarning) + " " + msg
}

// FormatSaved reports a file written by a command.
func FormatSaved(what, path string) string {
	return SuccessStyle.Render(IconSuccess) + " " + what + " " + SubtleStyle.Render(path)
}

// Table builds a rounded table with the application's header and cell
// styles.
func Table(headers []string, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorSubtle)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return lipgloss.NewStyle().
					Foreground(ColorPrimary).
					Bold(true).
					Padding(0, 1)
			case col == 0:
				return lipgloss.NewStyle().
					Foreground(ColorInfo).
					Bold(true).
					Padding(0, 1)
			default:
				return lipgloss.NewStyle().
					Foreground(ColorText).
					Padding(0, 1)
			}
		}).
		Headers(headers...).
		Rows(rows...)
}

// CreateSeparator creates a horizontal line separator
func CreateSeparator(width int, char string) string {
	if width <= 0 {
		width = 50 // Default width
	}
	if char == "" {
		char = "─"
	}

	return lipgloss.NewStyle().
		Foreground(ColorSubtle).
		Render(strings.Repeat(char, width))
}
