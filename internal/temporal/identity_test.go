package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStem(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"report.pdf", "report"},
		{"Report.PDF", "report"},
		{"report_v2.pdf", "report"},
		{"report (1).pdf", "report"},
		{"report copy.pdf", "report"},
		{"report - final.pdf", "report"},
		{"report_draft.txt", "report"},
		{"  Meeting Notes.md  ", "meeting notes"},
		{"/tmp/uploads/report.pdf", "report"},
		{"versioning.txt", "versioning"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStem(tt.filename))
		})
	}
}

func TestDocID_StableAcrossDecoratedFilenames(t *testing.T) {
	base := DocID("report.pdf")
	assert.Equal(t, base, DocID("report_v2.pdf"))
	assert.Equal(t, base, DocID("REPORT (1).PDF"))
	assert.Equal(t, base, DocID("report final.docx"))
	assert.NotEqual(t, base, DocID("budget.pdf"))
	assert.Len(t, base, 12)
}

func TestContentHash(t *testing.T) {
	a := ContentHash("some document text")
	b := ContentHash("some document text")
	c := ContentHash("some document text.")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}
