package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDiffSummary_AddedSentences(t *testing.T) {
	oldText := "The budget was approved. Spending starts in March"
	newText := "The budget was approved. Spending starts in March. A review follows in June"

	got := DiffSummary(oldText, newText)
	assert.Contains(t, got, "+1 new sentences")
	assert.Contains(t, got, "+5 words")
}

func TestDiffSummary_RemovedSentences(t *testing.T) {
	oldText := "Alpha section stays. Beta section goes away. Gamma section stays."
	newText := "Alpha section stays. Gamma section stays."

	got := DiffSummary(oldText, newText)
	assert.Contains(t, got, "-1 removed sentences")
	assert.Contains(t, got, "-4 words")
}

func TestDiffSummary_MinorEdits(t *testing.T) {
	// Reordering words inside sentences of equal count is not
	// measurable by the coarse diff.
	assert.Equal(t, "minor edits", DiffSummary("same text here", "same text here"))
}

func TestDiffSummary_NeverEmpty(t *testing.T) {
	assert.NotEmpty(t, DiffSummary("", ""))
	assert.NotEmpty(t, DiffSummary("a b c", "a b c d"))
}

func TestAgeLabel(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "just now", ageLabelAt(now.Add(-30*time.Second), now))
	assert.Equal(t, "5m ago", ageLabelAt(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h ago", ageLabelAt(now.Add(-3*time.Hour), now))
	assert.Equal(t, "12d ago", ageLabelAt(now.Add(-12*24*time.Hour), now))
}
