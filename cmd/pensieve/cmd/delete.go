package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pensieve-kb/pensieve/internal/output"
)

func newDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <document>",
		Short: "Remove a document and its entire version history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd.Context(), cmd, args[0], yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func runDelete(ctx context.Context, cmd *cobra.Command, ref string, yes bool) error {
	out := output.New(cmd.OutOrStdout())

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	docID := resolveDocRef(ref)
	doc, err := app.registry.GetDocument(ctx, docID)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document not found: %s", ref)
	}

	if !yes {
		out.Printf("Delete %s and all %d version(s)? [y/N] ", doc.LatestFilename, doc.VersionCount)
		reader := bufio.NewReader(cmd.InOrStdin())
		answer, _ := reader.ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			out.Println("Aborted.")
			return nil
		}
	}

	removed, err := app.manager.Delete(ctx, docID)
	if err != nil {
		return err
	}
	if len(removed) > 0 {
		if err := app.vectors.Delete(ctx, removed); err != nil {
			return fmt.Errorf("failed to remove chunk vectors: %w", err)
		}
		if err := app.vectors.Save(app.vectorPath()); err != nil {
			return fmt.Errorf("failed to persist vector index: %w", err)
		}
	}

	out.Successf("deleted %s (%d chunks removed)", doc.LatestFilename, len(removed))
	return nil
}
