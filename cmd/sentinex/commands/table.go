package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#8E4EC6")).
			Padding(0, 1).
			MarginBottom(1)

	colHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8E4EC6")).
			Bold(true).
			MarginRight(1)

	cellStyle = lipgloss.NewStyle().MarginRight(1)
	sepStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginRight(1)

	okColor   = lipgloss.Color("#2E8B57")
	warnColor = lipgloss.Color("#D7A100")
	errColor  = lipgloss.Color("#D0443E")
	dimColor  = lipgloss.Color("241")
)

type column struct {
	title string
	width int
}

// printTable renders a fixed-width table. color picks a per-cell foreground;
// it may be nil.
func printTable(title string, cols []column, rows [][]string, color func(row, col int) lipgloss.TerminalColor) {
	fmt.Println(headerStyle.Render(title))

	headers := make([]string, 0, len(cols))
	seps := make([]string, 0, len(cols))
	for _, c := range cols {
		headers = append(headers, colHeaderStyle.Width(c.width).Render(c.title))
		seps = append(seps, sepStyle.Render(strings.Repeat("─", c.width)))
	}
	fmt.Printf("  %s\n", lipgloss.JoinHorizontal(lipgloss.Top, headers...))
	fmt.Printf("  %s\n", lipgloss.JoinHorizontal(lipgloss.Top, seps...))

	for i, row := range rows {
		cells := make([]string, 0, len(cols))
		for j, c := range cols {
			value := ""
			if j < len(row) {
				value = truncate(row[j], c.width)
			}
			style := cellStyle.Width(c.width)
			if color != nil {
				if fg := color(i, j); fg != nil {
					style = style.Foreground(fg)
				}
			}
			cells = append(cells, style.Render(value))
		}
		fmt.Printf("  %s\n", lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
}

func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if width <= 1 || lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if len(runes) > width-1 {
		runes = runes[:width-1]
	}
	return string(runes) + "…"
}
