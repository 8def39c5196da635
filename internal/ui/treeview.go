package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/kyaoi/sizetree/internal/tree"
)

// formatTreeLine renders a row as the label on the left and the size and
// share of the parent right-aligned within width.
func formatTreeLine(line tree.Line, parentSize int64, width int) string {
	label := formatTreeLabel(line)
	meta := fmt.Sprintf("%10s %5.1f%%", humanize.IBytes(uint64(max(line.Node.Size, 0))), percent(line.Node.Size, parentSize))

	avail := width - lipgloss.Width(meta) - 1
	if avail < 4 {
		return ansi.Truncate(label, width, "…")
	}
	label = ansi.Truncate(label, avail, "…")
	pad := avail - lipgloss.Width(label)
	return label + strings.Repeat(" ", pad+1) + meta
}

func formatTreeLabel(line tree.Line) string {
	entry := line.Node
	indent := strings.Repeat("  ", line.Depth)
	indicator := "  "
	if entry.IsDir {
		if line.Expanded {
			indicator = "- "
		} else {
			indicator = "+ "
		}
	}
	label := indent + indicator + entry.Name
	if entry.IsDir {
		label += "/"
	}
	if entry.Err != "" {
		label += " !"
	}
	return label
}

func percent(size, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(size) * 100 / float64(total)
}
