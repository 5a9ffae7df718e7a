package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pensieve-kb/pensieve/internal/ingest"
	"github.com/pensieve-kb/pensieve/internal/output"
)

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>...",
		Short: "Ingest documents into the library",
		Long: `Add ingests one or more text files: each is semantically chunked,
embedded, and indexed for search.

Re-adding a file with identical content is a no-op. A changed file (or
a renamed copy like "notes_v2.txt") becomes a new version of the same
document, and only the new version is searchable.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd.Context(), cmd, args)
		},
	}
}

func runAdd(ctx context.Context, cmd *cobra.Command, paths []string) error {
	out := output.New(cmd.OutOrStdout())

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	docs := make([]ingest.Document, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		docs = append(docs, ingest.Document{
			Filename: filepath.Base(path),
			RawText:  string(data),
		})
	}

	outcomes := app.pipeline.IngestBatch(ctx, docs)

	failed := 0
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			failed++
			out.Errorf("%s: %v", o.Filename, o.Err)
		case o.NoOp:
			out.Printf("- %s unchanged (v%d)\n", o.Filename, o.VersionNum)
		case o.IsNew:
			out.Successf("%s added (%d chunks)", o.Filename, o.ChunkCount)
		default:
			out.Successf("%s updated to v%d (%d chunks)", o.Filename, o.VersionNum, o.ChunkCount)
			if o.DiffSummary != "" {
				out.Dim(o.DiffSummary)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(outcomes))
	}
	return nil
}
