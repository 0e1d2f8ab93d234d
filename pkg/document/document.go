// Package document renders accumulated summary items as a markdown report.
package document

import (
	"strings"

	"github.com/papercomputeco/dossier/pkg/summary"
)

const (
	titlePrefix = "# Research Report: "
	sourceLabel = "**Source**"
	separator   = "---"
)

// Render builds the markdown document for query from items, in order. It is
// pure: the same arguments always produce the same output, and appending an
// item only appends one block.
func Render(query string, items []summary.Item) string {
	var b strings.Builder
	b.WriteString(titlePrefix)
	b.WriteString(query)
	b.WriteString("\n\n")

	for _, item := range items {
		writeItem(&b, item)
	}
	return b.String()
}

// RenderItem returns the markdown block for a single item.
func RenderItem(item summary.Item) string {
	var b strings.Builder
	writeItem(&b, item)
	return b.String()
}

func writeItem(b *strings.Builder, item summary.Item) {
	b.WriteString("### ")
	b.WriteString(item.Title)
	b.WriteString("\n\n")

	for _, point := range item.Summary {
		b.WriteString("- ")
		b.WriteString(point)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(sourceLabel)
	b.WriteString(": [")
	b.WriteString(item.Source)
	b.WriteString("](")
	b.WriteString(item.Source)
	b.WriteString(")")
	if item.Date != "" {
		b.WriteString(" (")
		b.WriteString(item.Date)
		b.WriteString(")")
	}
	b.WriteString("\n\n")

	if item.Thumbnail != "" {
		b.WriteString("![thumbnail](")
		b.WriteString(item.Thumbnail)
		b.WriteString(")\n\n")
	}

	b.WriteString(separator)
	b.WriteString("\n\n")
}
