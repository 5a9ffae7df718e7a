package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pensieve-kb/pensieve/internal/ingest"
	"github.com/pensieve-kb/pensieve/internal/output"
	"github.com/pensieve-kb/pensieve/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a drop directory and ingest files as they settle",
		Long: `Watch monitors a directory and ingests every matching file once it
has stopped changing for the configured debounce window. Dropping a
renamed copy of an existing document updates it in place.

Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd, args[0])
		},
	}
}

func runWatch(ctx context.Context, cmd *cobra.Command, dir string) error {
	out := output.New(cmd.OutOrStdout())

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	w, err := watcher.New(watcher.Config{
		Dir:        dir,
		Debounce:   app.watchDebounce(),
		Extensions: app.cfg.Watch.Extensions,
	}, app.logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	out.Printf("Watching %s (Ctrl-C to stop)\n", dir)

	for {
		select {
		case <-ctx.Done():
			err := <-runErr
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err

		case path, ok := <-w.Settled():
			if !ok {
				return <-runErr
			}
			ingestSettled(ctx, app, out, path)
		}
	}
}

// ingestSettled ingests one settled file, reporting rather than
// propagating failures so the watch loop keeps running.
func ingestSettled(ctx context.Context, app *app, out *output.Writer, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		out.Errorf("%s: %v", path, err)
		return
	}

	outcome, err := app.pipeline.Ingest(ctx, ingest.Document{
		Filename: filepath.Base(path),
		RawText:  string(data),
	})
	switch {
	case err != nil:
		out.Errorf("%s: %v", path, err)
	case outcome.NoOp:
		out.Printf("- %s unchanged\n", outcome.Filename)
	case outcome.IsNew:
		out.Successf("%s added (%d chunks)", outcome.Filename, outcome.ChunkCount)
	default:
		out.Successf("%s updated to v%d", outcome.Filename, outcome.VersionNum)
	}
}
