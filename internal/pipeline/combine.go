package pipeline

import (
	"sort"
	"strings"
)

// Part is an index-tagged partial transcript.
type Part struct {
	Index int
	Text  string
}

// Combine merges partial transcripts into one normalized string. Parts are
// re-sorted by chunk index (caller order is not trusted), trimmed, empties
// dropped entirely, the survivors joined with single spaces, and any
// remaining whitespace runs collapsed. Deterministic: identical inputs
// always produce the identical output, regardless of arrival order.
func Combine(parts []Part) string {
	sorted := make([]Part, len(parts))
	copy(sorted, parts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	var texts []string
	for _, p := range sorted {
		if t := strings.TrimSpace(p.Text); t != "" {
			texts = append(texts, t)
		}
	}

	return strings.Join(strings.Fields(strings.Join(texts, " ")), " ")
}

// CombineTranscripts merges an index-aligned transcript list, where the
// slice position is the chunk index.
func CombineTranscripts(transcripts []string) string {
	parts := make([]Part, len(transcripts))
	for i, t := range transcripts {
		parts[i] = Part{Index: i, Text: t}
	}
	return Combine(parts)
}
