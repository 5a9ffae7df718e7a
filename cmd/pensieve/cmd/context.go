package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pensieve-kb/pensieve/internal/output"
)

func newContextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "context [document]...",
		Short: "Print the temporal context block for documents",
		Long: `Context prints the freshness block an answer generator should see
before citing these documents: version numbers, upload ages, and the
latest changes. With no arguments it covers the whole library.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContext(cmd.Context(), cmd, args)
		},
	}
}

func runContext(ctx context.Context, cmd *cobra.Command, refs []string) error {
	out := output.New(cmd.OutOrStdout())

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	docIDs, err := resolveScope(ctx, app.manager, refs)
	if err != nil {
		return err
	}

	block, err := app.manager.TemporalContext(ctx, docIDs)
	if err != nil {
		return err
	}
	if block == "" {
		out.Println("No documents tracked.")
		return nil
	}

	out.Println(block)
	return nil
}
