package tui

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/kingrea/stacker/internal/stacker"
)

var (
	summaryHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).Padding(0, 1)
	summaryCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	summaryFailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Padding(0, 1)
)

// RenderSummary draws one row per attempted output followed by the run error,
// if any.
func RenderSummary(results []stacker.Result, runErr error) string {
	rows := make([][]string, 0, len(results))
	failed := map[int]bool{}
	for i, res := range results {
		status := "ok"
		if res.Err != nil {
			status = "failed"
			failed[i] = true
		}
		rows = append(rows, []string{
			filepath.Base(res.Request.Path),
			strconv.Itoa(res.Request.Count),
			strconv.Itoa(res.Stats.OutputLines),
			strconv.Itoa(res.Stats.Substituted),
			humanize.Bytes(uint64(res.Stats.Bytes)),
			status,
		})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))).
		Headers("OUTPUT", "REPEATS", "LINES", "Z EDITS", "SIZE", "STATUS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return summaryHeaderStyle
			case failed[row]:
				return summaryFailStyle
			default:
				return summaryCellStyle
			}
		})

	var b strings.Builder
	b.WriteString(t.Render())
	b.WriteString("\n")
	switch {
	case runErr != nil:
		b.WriteString(failStyle.Render(fmt.Sprintf("✗ %v", runErr)))
	default:
		b.WriteString(doneStyle.Render(fmt.Sprintf("✓ %d file(s) written", len(results))))
	}
	b.WriteString("\n")
	return b.String()
}
