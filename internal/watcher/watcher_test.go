package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_EmitsAfterQuietWindow(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	d.Touch("/drop/a.txt")

	select {
	case path := <-d.Settled():
		assert.Equal(t, "/drop/a.txt", path)
	case <-time.After(time.Second):
		t.Fatal("expected settled path")
	}
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	d := NewDebouncer(60 * time.Millisecond)
	defer d.Stop()

	for i := 0; i < 5; i++ {
		d.Touch("/drop/a.txt")
		time.Sleep(10 * time.Millisecond)
	}

	var got []string
	timeout := time.After(time.Second)
loop:
	for {
		select {
		case path := <-d.Settled():
			got = append(got, path)
		case <-timeout:
			break loop
		case <-time.After(200 * time.Millisecond):
			break loop
		}
	}
	assert.Equal(t, []string{"/drop/a.txt"}, got, "burst collapses to one emission")
}

func TestDebouncer_CancelDropsPending(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	d.Touch("/drop/a.txt")
	d.Cancel("/drop/a.txt")

	select {
	case path := <-d.Settled():
		t.Fatalf("unexpected emission: %s", path)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDropWatcher_PicksUpNewFile(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{
		Dir:        dir,
		Debounce:   50 * time.Millisecond,
		Extensions: []string{".txt"},
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	path := filepath.Join(dir, "incoming.txt")
	require.NoError(t, os.WriteFile(path, []byte("fresh content for ingestion"), 0o644))

	select {
	case got := <-w.Settled():
		assert.Equal(t, path, got)
	case <-time.After(3 * time.Second):
		t.Fatal("expected settled file")
	}

	cancel()
	<-done
}

func TestDropWatcher_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{
		Dir:        dir,
		Debounce:   50 * time.Millisecond,
		Extensions: []string{".txt"},
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{1, 2, 3}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.txt"), []byte("x"), 0o644))

	select {
	case got := <-w.Settled():
		t.Fatalf("unexpected emission: %s", got)
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	<-done
}

func TestNew_MissingDirectoryFails(t *testing.T) {
	_, err := New(Config{Dir: filepath.Join(t.TempDir(), "missing")}, nil)
	assert.Error(t, err)
}
