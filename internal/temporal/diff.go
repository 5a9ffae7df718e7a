package temporal

import (
	"fmt"
	"strings"
	"time"
)

// DiffSummary renders a short human-readable summary of the change
// between two raw texts: the symmetric difference of naively split
// sentence sets plus the signed word-count delta. Returns "minor
// edits" when nothing measurable changed. The result is always
// non-empty.
func DiffSummary(oldText, newText string) string {
	oldSents := sentenceSet(oldText)
	newSents := sentenceSet(newText)

	var added, removed int
	for s := range newSents {
		if _, ok := oldSents[s]; !ok {
			added++
		}
	}
	for s := range oldSents {
		if _, ok := newSents[s]; !ok {
			removed++
		}
	}

	delta := len(strings.Fields(newText)) - len(strings.Fields(oldText))

	var parts []string
	if added > 0 {
		parts = append(parts, fmt.Sprintf("+%d new sentences", added))
	}
	if removed > 0 {
		parts = append(parts, fmt.Sprintf("-%d removed sentences", removed))
	}
	if delta != 0 {
		parts = append(parts, fmt.Sprintf("%+d words", delta))
	}

	if len(parts) == 0 {
		return "minor edits"
	}
	return strings.Join(parts, ", ")
}

// sentenceSet splits text on ". " into a set. This is a coarse
// heuristic, not true alignment; it only needs to be stable enough for
// a one-line summary.
func sentenceSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, s := range strings.Split(text, ". ") {
		s = strings.TrimSpace(s)
		if s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

// AgeLabel renders how long ago t was, coarsely: "just now", "5m ago",
// "3h ago", "12d ago".
func AgeLabel(t time.Time) string {
	return ageLabelAt(t, time.Now())
}

func ageLabelAt(t, now time.Time) string {
	s := now.Sub(t).Seconds()
	switch {
	case s < 60:
		return "just now"
	case s < 3600:
		return fmt.Sprintf("%dm ago", int(s/60))
	case s < 86400:
		return fmt.Sprintf("%dh ago", int(s/3600))
	default:
		return fmt.Sprintf("%dd ago", int(s/86400))
	}
}
