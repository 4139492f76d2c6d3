package mitigation

import (
	"sort"
	"strings"

	"github.com/promptguard-ai/promptguard/internal/detector"
)

// Marker replaces neutralized text in sanitized prompts.
const Marker = "[MITIGATED]"

// Sanitize returns the prompt with every matched span replaced by the
// marker. Overlapping or adjacent spans collapse into one marker so the
// output never stacks markers back to back. Text outside the spans is
// preserved byte for byte. Sanitizing a clean prompt returns it
// unchanged.
func Sanitize(prompt string, res *detector.Result) string {
	spans := collectSpans(res)
	if len(spans) == 0 {
		return prompt
	}

	var b strings.Builder
	b.Grow(len(prompt))
	last := 0
	for _, sp := range spans {
		b.WriteString(prompt[last:sp.start])
		b.WriteString(Marker)
		last = sp.end
	}
	b.WriteString(prompt[last:])
	return b.String()
}

type span struct {
	start, end int
}

// collectSpans gathers the match spans of every category, sorts them
// by position and merges any that touch or overlap.
func collectSpans(res *detector.Result) []span {
	var spans []span
	for _, matches := range res.Matches {
		for _, m := range matches {
			if m.End <= m.Start {
				continue
			}
			spans = append(spans, span{start: m.Start, end: m.End})
		}
	}
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end < spans[j].end
	})
	merged := spans[:1]
	for _, sp := range spans[1:] {
		top := &merged[len(merged)-1]
		if sp.start <= top.end {
			if sp.end > top.end {
				top.end = sp.end
			}
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}
