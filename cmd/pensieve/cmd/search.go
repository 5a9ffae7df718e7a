package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pensieve-kb/pensieve/internal/output"
	"github.com/pensieve-kb/pensieve/internal/temporal"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit     int
	documents []string
	format    string // "text", "json"
	context   bool   // prepend the temporal context block
}

// searchResultJSON is the JSON output shape for one result.
type searchResultJSON struct {
	ChunkID     string  `json:"chunk_id"`
	Filename    string  `json:"filename"`
	Version     int     `json:"version"`
	UploadedAt  string  `json:"uploaded_at"`
	TokenCount  int     `json:"token_count"`
	Score       float64 `json:"score"`
	InBothLists bool    `json:"in_both_lists"`
	Text        string  `json:"text"`
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the library",
		Long: `Search runs hybrid retrieval: BM25 keyword matching and semantic
vector search, merged with Reciprocal Rank Fusion. Only the current
version of each document is searched.

Examples:
  pensieve search "quarterly revenue targets"
  pensieve search "onboarding checklist" --documents handbook.md
  pensieve search "deployment steps" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringSliceVarP(&opts.documents, "documents", "d", nil, "Restrict to these documents (filenames or IDs, repeatable)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.context, "context", false, "Prepend the temporal context block")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	out := output.New(cmd.OutOrStdout())

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	docIDs, err := resolveScope(ctx, app.manager, opts.documents)
	if err != nil {
		return err
	}

	scope, err := app.manager.ScopeChunks(ctx, docIDs)
	if err != nil {
		return err
	}

	results, err := app.engine.Search(ctx, query, opts.limit, scope)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		payload := make([]searchResultJSON, 0, len(results))
		for _, r := range results {
			payload = append(payload, searchResultJSON{
				ChunkID:     r.Chunk.ID,
				Filename:    r.Chunk.Filename,
				Version:     r.Chunk.VersionNum,
				UploadedAt:  r.Chunk.UploadedAt.Format(time.RFC3339),
				TokenCount:  r.Chunk.TokenCount,
				Score:       r.RRFScore,
				InBothLists: r.InBothLists,
				Text:        r.Chunk.Text,
			})
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	if opts.context {
		block, err := app.manager.TemporalContext(ctx, docIDs)
		if err != nil {
			return err
		}
		if block != "" {
			out.Println(block)
			out.Println("")
		}
	}

	if len(results) == 0 {
		out.Println("No results.")
		return nil
	}

	for i, r := range results {
		marker := ""
		if r.InBothLists {
			marker = " (keyword + semantic)"
		}
		out.Header(fmt.Sprintf("%d. %s v%d  score=%.4f%s", i+1, r.Chunk.Filename, r.Chunk.VersionNum, r.RRFScore, marker))
		out.Dim(fmt.Sprintf("%s, uploaded %s", r.Chunk.ID, temporal.AgeLabel(r.Chunk.UploadedAt)))
		out.Block(r.Chunk.Text)
		out.Println("")
	}
	return nil
}
