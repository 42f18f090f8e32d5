package tui

import (
	"strings"

	"pkt.systems/mongoui/core"
)

// sidebarRow is one visible line of the navigation tree.
type sidebarRow struct {
	path  []int
	label string
	depth int
	open  bool
}

func flattenTree(nodes []core.TreeNode) []sidebarRow {
	rows := make([]sidebarRow, 0, len(nodes))
	for i, db := range nodes {
		rows = append(rows, sidebarRow{path: []int{i}, label: db.Name, open: db.Expanded})
		if !db.Expanded {
			continue
		}
		for j, coll := range db.Children {
			rows = append(rows, sidebarRow{path: []int{i, j}, label: coll.Name, depth: 1})
		}
	}
	return rows
}

func renderRow(row sidebarRow, width int) string {
	var b strings.Builder
	if row.depth == 0 {
		if row.open {
			b.WriteString("▾ ")
		} else {
			b.WriteString("▸ ")
		}
	} else {
		b.WriteString("    ")
	}
	b.WriteString(row.label)
	line := b.String()
	if width > 1 && len([]rune(line)) > width {
		line = string([]rune(line)[:width-1]) + "…"
	}
	return line
}
