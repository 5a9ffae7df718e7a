package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pensieve-kb/pensieve/internal/mcp"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		Long: `Serve exposes the library to MCP clients (Claude Desktop, Cursor)
over stdio. Stdout carries JSON-RPC exclusively; all logging goes to
the rotating log file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	srv, err := mcp.NewServer(app.engine, app.manager, app.logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Serve(ctx)
}
