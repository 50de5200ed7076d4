package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f0883e"))
)

// printField renders one aligned "label: value" line.
func printField(label string, format string, args ...any) {
	fmt.Printf("%s %s\n", labelStyle.Render(fmt.Sprintf("%-14s", label+":")), fmt.Sprintf(format, args...))
}

// printDim renders secondary information.
func printDim(format string, args ...any) {
	fmt.Println(dimStyle.Render(fmt.Sprintf(format, args...)))
}

// printWarn renders a caution line.
func printWarn(format string, args ...any) {
	fmt.Println(warnStyle.Render(fmt.Sprintf(format, args...)))
}

// confidenceBar renders a coarse 10-cell bar for a [0, 1] value.
func confidenceBar(v float64) string {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	filled := int(v*10 + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}
