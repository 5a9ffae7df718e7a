// Package temporal manages document identity and version history:
// stable doc IDs across re-uploads, append-only version records, and
// human-readable change summaries.
package temporal

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"
)

// suffixRe strips trailing version decorations from a filename stem:
// "report_v2", "report (1)", "report copy", "report final", "report
// draft" all normalize to "report".
var suffixRe = regexp.MustCompile(`(?i)[\s_\-]*(v\d+|\(\d+\)|copy|final|draft)$`)

// NormalizeStem derives the canonical stem of a filename: extension
// stripped, case-folded, trimmed, trailing version suffixes removed.
func NormalizeStem(filename string) string {
	stem := filepath.Base(filename)
	stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	stem = strings.TrimSpace(strings.ToLower(stem))
	return suffixRe.ReplaceAllString(stem, "")
}

// DocID hashes the normalized stem to a fixed-width document id.
// Re-uploads of the same logical document under decorated filenames
// resolve to the same id; unrelated documents sharing a stem collide
// deliberately (the caller may warn on suspicious collisions).
func DocID(filename string) string {
	sum := md5.Sum([]byte(NormalizeStem(filename)))
	return hex.EncodeToString(sum[:])[:12]
}

// ContentHash fingerprints raw text for idempotence checks.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}
