package core

import (
	"unicode/utf8"

	"pkt.systems/mongoui/schema"
)

// labels derives the tab strip from arena order and the selection.
func (s *bufferStore) labels(selected schema.BufferID, max int, suffix string) []schema.TabLabel {
	out := make([]schema.TabLabel, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, schema.TabLabel{
			ID:       r.id,
			Name:     schema.TargetName(formatLabel(string(r.target), max, suffix)),
			Selected: r.id == selected,
		})
	}
	return out
}

func formatLabel(name string, max int, suffix string) string {
	if max <= 0 {
		return name
	}
	if utf8.RuneCountInString(name) <= max {
		return name
	}
	limit := max - utf8.RuneCountInString(suffix)
	if limit <= 0 {
		return string([]rune(suffix)[:max])
	}
	return string([]rune(name)[:limit]) + suffix
}
