package cmd

import (
	"context"
	"regexp"
	"strings"

	"github.com/pensieve-kb/pensieve/internal/temporal"
)

// docIDPattern matches a bare 12-hex document ID.
var docIDPattern = regexp.MustCompile(`^[0-9a-f]{12}$`)

// resolveDocRef maps a filename or bare document ID to a document ID.
// Filenames go through stem normalization, so "report_v2.pdf" resolves
// to the same document as "report.pdf".
func resolveDocRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if docIDPattern.MatchString(ref) {
		return ref
	}
	return temporal.DocID(ref)
}

// resolveScope maps document references to IDs; an empty list means
// every tracked document.
func resolveScope(ctx context.Context, manager *temporal.Manager, refs []string) ([]string, error) {
	if len(refs) == 0 {
		docs, err := manager.Documents(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(docs))
		for _, d := range docs {
			ids = append(ids, d.DocID)
		}
		return ids, nil
	}

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, resolveDocRef(ref))
	}
	return ids, nil
}
