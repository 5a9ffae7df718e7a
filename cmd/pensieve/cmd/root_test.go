package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the CLI with the given args against a dedicated
// library directory, capturing combined output.
func runCLI(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()

	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append(args, "--data-dir", dataDir))

	err := root.Execute()
	return buf.String(), err
}

func writeDoc(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

const sampleText = "The migration plan moves every service to the new cluster by June. " +
	"Database replicas are promoted one region at a time to avoid downtime. " +
	"Each cutover window is announced to customers a week in advance. " +
	"Rollback procedures are rehearsed before any production traffic shifts."

func TestCLI_AddSearchLifecycle(t *testing.T) {
	t.Setenv("PENSIEVE_EMBEDDINGS_PROVIDER", "static")

	dataDir := t.TempDir()
	docs := t.TempDir()
	path := writeDoc(t, docs, "migration.txt", sampleText)

	out, err := runCLI(t, dataDir, "add", path)
	require.NoError(t, err)
	assert.Contains(t, out, "migration.txt added")

	// Idempotent re-add.
	out, err = runCLI(t, dataDir, "add", path)
	require.NoError(t, err)
	assert.Contains(t, out, "unchanged")

	out, err = runCLI(t, dataDir, "docs", "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "migration.txt")
	assert.Contains(t, out, "documents:      1")

	// Search hits the persisted index from a fresh process-equivalent.
	out, err = runCLI(t, dataDir, "search", "database replica promotion", "--format", "json")
	require.NoError(t, err)

	var results []searchResultJSON
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Text, "replicas")
	assert.Equal(t, "migration.txt", results[0].Filename)
	assert.Equal(t, 1, results[0].Version)
	assert.NotEmpty(t, results[0].UploadedAt)
}

func TestCLI_VersioningAcrossRenames(t *testing.T) {
	t.Setenv("PENSIEVE_EMBEDDINGS_PROVIDER", "static")

	dataDir := t.TempDir()
	docs := t.TempDir()

	v1 := writeDoc(t, docs, "plan.txt", sampleText)
	_, err := runCLI(t, dataDir, "add", v1)
	require.NoError(t, err)

	v2 := writeDoc(t, docs, "plan_v2.txt", sampleText+
		" A final audit confirms that no stale connections remain afterwards.")
	out, err := runCLI(t, dataDir, "add", v2)
	require.NoError(t, err)
	assert.Contains(t, out, "updated to v2")

	out, err = runCLI(t, dataDir, "history", "plan.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "2 version(s)")
	assert.Contains(t, out, "plan_v2.txt")
	assert.Contains(t, out, "[current]")

	out, err = runCLI(t, dataDir, "context")
	require.NoError(t, err)
	assert.Contains(t, out, "Document temporal context:")
	assert.Contains(t, out, "plan_v2.txt")
	assert.Contains(t, out, "2 versions tracked")
}

func TestCLI_DeleteRemovesDocument(t *testing.T) {
	t.Setenv("PENSIEVE_EMBEDDINGS_PROVIDER", "static")

	dataDir := t.TempDir()
	docs := t.TempDir()
	path := writeDoc(t, docs, "scratch.txt", sampleText)

	_, err := runCLI(t, dataDir, "add", path)
	require.NoError(t, err)

	out, err := runCLI(t, dataDir, "delete", "scratch.txt", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted scratch.txt")

	_, err = runCLI(t, dataDir, "delete", "scratch.txt", "--yes")
	assert.Error(t, err, "second delete finds nothing")

	out, err = runCLI(t, dataDir, "docs")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents tracked")
}

func TestCLI_SearchEmptyLibrary(t *testing.T) {
	t.Setenv("PENSIEVE_EMBEDDINGS_PROVIDER", "static")

	out, err := runCLI(t, t.TempDir(), "search", "anything at all")
	require.NoError(t, err)
	assert.Contains(t, out, "No results.")
}

func TestCLI_InitWritesConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := runCLI(t, t.TempDir(), "init")
	require.NoError(t, err)
	assert.Contains(t, out, configFileName)

	data, err := os.ReadFile(configFileName)
	require.NoError(t, err)
	assert.Contains(t, string(data), "breakpoint_percentile")

	// Refuses to clobber without --force.
	_, err = runCLI(t, t.TempDir(), "init")
	assert.Error(t, err)
}

func TestCLI_UnknownDocumentHistory(t *testing.T) {
	t.Setenv("PENSIEVE_EMBEDDINGS_PROVIDER", "static")

	_, err := runCLI(t, t.TempDir(), "history", "nope.txt")
	assert.Error(t, err)
}
