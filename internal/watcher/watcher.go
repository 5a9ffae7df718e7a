package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the settle window applied when none is configured.
const DefaultDebounce = 500 * time.Millisecond

// Config configures the drop-directory watcher.
type Config struct {
	// Dir is the directory watched for new or changed files.
	Dir string

	// Debounce is how long a file must be quiet before it is emitted.
	Debounce time.Duration

	// Extensions restricts which files are picked up (e.g. ".txt",
	// ".md"). Empty means all files.
	Extensions []string
}

// DropWatcher watches a single directory (non-recursive) and emits the
// paths of files that have settled, ready for ingestion.
type DropWatcher struct {
	cfg       Config
	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	logger    *slog.Logger
	exts      map[string]bool
}

// New creates a watcher for cfg.Dir. The directory must exist.
func New(cfg Config, logger *slog.Logger) (*DropWatcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path %s is not a directory", cfg.Dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(cfg.Dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", cfg.Dir, err)
	}

	exts := make(map[string]bool, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		exts[strings.ToLower(ext)] = true
	}

	return &DropWatcher{
		cfg:       cfg,
		fsw:       fsw,
		debouncer: NewDebouncer(cfg.Debounce),
		logger:    logger,
		exts:      exts,
	}, nil
}

// Settled returns the channel of files ready for ingestion.
func (w *DropWatcher) Settled() <-chan string {
	return w.debouncer.Settled()
}

// Run pumps fsnotify events into the debouncer until the context is
// cancelled, then releases all resources.
func (w *DropWatcher) Run(ctx context.Context) error {
	defer w.debouncer.Stop()
	defer func() { _ = w.fsw.Close() }()

	w.logger.Info("watching drop directory",
		slog.String("dir", w.cfg.Dir),
		slog.Duration("debounce", w.cfg.Debounce))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

func (w *DropWatcher) handleEvent(event fsnotify.Event) {
	if !w.wantFile(event.Name) {
		return
	}

	switch {
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		w.logger.Debug("file activity",
			slog.String("path", event.Name),
			slog.String("op", event.Op.String()))
		w.debouncer.Touch(event.Name)

	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		w.debouncer.Cancel(event.Name)
	}
}

// wantFile filters by extension and skips hidden and temp files.
func (w *DropWatcher) wantFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	if len(w.exts) == 0 {
		return true
	}
	return w.exts[strings.ToLower(filepath.Ext(base))]
}
