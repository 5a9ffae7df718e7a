package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pensieve-kb/pensieve/internal/output"
	"github.com/pensieve-kb/pensieve/internal/temporal"
)

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <document>",
		Short: "Show the version history of a document",
		Long: `History lists every tracked version of a document, newest first,
with upload times and change summaries. The document may be named by
any of its filenames ("report.pdf", "report_v2.pdf") or by its ID.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), cmd, args[0])
		},
	}
}

func runHistory(ctx context.Context, cmd *cobra.Command, ref string) error {
	out := output.New(cmd.OutOrStdout())

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	docID := resolveDocRef(ref)
	versions, err := app.manager.History(ctx, docID)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		return fmt.Errorf("document not found: %s", ref)
	}

	out.Header(fmt.Sprintf("%s — %d version(s)", ref, len(versions)))
	for _, v := range versions {
		current := ""
		if v.IsCurrent {
			current = "  [current]"
		}
		out.Printf("v%d  %s  (%s, %d words)%s\n",
			v.VersionNum, v.Filename, temporal.AgeLabel(v.UploadedAt), v.WordCount, current)
		if v.DiffSummary != "" {
			out.Dim(v.DiffSummary)
		}
	}
	return nil
}
