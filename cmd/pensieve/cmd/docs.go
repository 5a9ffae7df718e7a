package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pensieve-kb/pensieve/internal/output"
	"github.com/pensieve-kb/pensieve/internal/temporal"
)

func newDocsCmd() *cobra.Command {
	var showStats bool

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "List tracked documents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDocs(cmd.Context(), cmd, showStats)
		},
	}

	cmd.Flags().BoolVar(&showStats, "stats", false, "Include library-wide statistics")

	return cmd
}

func runDocs(ctx context.Context, cmd *cobra.Command, showStats bool) error {
	out := output.New(cmd.OutOrStdout())

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	docs, err := app.manager.Documents(ctx)
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		out.Println("No documents tracked. Use 'pensieve add <file>' to get started.")
		return nil
	}

	// Most recently uploaded first, per the registry ordering.
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DOC ID\tFILENAME\tVERSION\tVERSIONS\tUPDATED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\tv%d\t%d\t%s\n",
			d.DocID, d.LatestFilename, d.CurrentVersion, d.VersionCount,
			temporal.AgeLabel(d.LastUploaded))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if showStats {
		stats, err := app.registry.GetStats(ctx)
		if err != nil {
			return err
		}
		out.Println("")
		out.Header("Library statistics")
		out.Printf("  documents:      %d\n", stats.Documents)
		out.Printf("  versions:       %d\n", stats.Versions)
		out.Printf("  live chunks:    %d\n", stats.CurrentChunks)
		out.Printf("  total words:    %d\n", stats.TotalWords)
		out.Printf("  indexed vectors: %d\n", app.vectors.Count())
	}

	return nil
}
