package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/kyaoi/sizetree/internal/scan"
)

const topEntries = 10

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"|", `\|`,
	"*", `\*`,
	"_", `\_`,
	"`", "'",
	"#", `\#`,
	"[", `\[`,
	"]", `\]`,
)

// detailsMarkdown describes node for the details pane.
func detailsMarkdown(node *scan.Node, parentSize int64, displayPath string) string {
	var b strings.Builder

	name := node.Name
	if node.IsDir {
		name += "/"
	}
	fmt.Fprintf(&b, "# %s\n\n", markdownEscaper.Replace(name))
	fmt.Fprintf(&b, "`%s`\n\n", strings.ReplaceAll(displayPath, "`", "'"))

	kind := "File"
	if node.IsDir {
		kind = "Folder"
	}
	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Type | %s |\n", kind)
	fmt.Fprintf(&b, "| Size | %s (%s bytes) |\n", humanize.IBytes(uint64(max(node.Size, 0))), humanize.Comma(node.Size))
	if node.IsDir {
		fmt.Fprintf(&b, "| Files | %s |\n", humanize.Comma(int64(node.FileCount)))
	}
	if parentSize > 0 && parentSize != node.Size {
		fmt.Fprintf(&b, "| Share of parent | %.1f%% |\n", percent(node.Size, parentSize))
	}

	if node.Err != "" {
		fmt.Fprintf(&b, "\n> %s\n", markdownEscaper.Replace(node.Err))
	}

	if !node.IsDir || len(node.Children) == 0 {
		return b.String()
	}

	b.WriteString("\n## Largest entries\n\n| Name | Size | Share |\n|---|---:|---:|\n")
	for _, child := range largest(node.Children, topEntries) {
		childName := child.Name
		if child.IsDir {
			childName += "/"
		}
		fmt.Fprintf(&b, "| %s | %s | %.1f%% |\n",
			markdownEscaper.Replace(childName),
			humanize.IBytes(uint64(max(child.Size, 0))),
			percent(child.Size, node.Size))
	}
	if rest := len(node.Children) - topEntries; rest > 0 {
		fmt.Fprintf(&b, "\n%d more entries\n", rest)
	}
	return b.String()
}

func largest(nodes []*scan.Node, n int) []*scan.Node {
	sorted := make([]*scan.Node, len(nodes))
	copy(sorted, nodes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Size != sorted[j].Size {
			return sorted[i].Size > sorted[j].Size
		}
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
