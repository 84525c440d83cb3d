// Package watch re-runs the migration pipeline whenever the watched DSX
// export (or one of its companion files) changes on disk.
package watch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RunFunc is called each time the watcher triggers a re-migration. It
// returns the run result for the status line.
type RunFunc func(ctx context.Context) (*RunResult, error)

// RunResult holds the output of a single migration run.
type RunResult struct {
	Stages          int
	Links           int
	Transformations int
	OutputPath      string
}

// Options configures the watch behaviour.
type Options struct {
	// DSXFile is the export to watch.
	DSXFile string

	// ExtraFiles are additional files to watch (mapping tables, policy
	// overrides).
	ExtraFiles []string

	// Debounce is the quiet period before triggering a re-run.
	Debounce time.Duration

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out is the writer for user-facing status messages.
	Out io.Writer
}

// DefaultOptions returns sensible default watch options.
func DefaultOptions() Options {
	return Options{
		Debounce: 500 * time.Millisecond,
		Logger:   slog.Default(),
		Out:      os.Stderr,
	}
}

// Run starts the file watcher and blocks until the context is cancelled or
// a SIGINT/SIGTERM signal is received.
func Run(ctx context.Context, opts Options, runFn RunFunc) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the export's directory rather than the file itself: editors
	// replace files on save, which drops direct file watches.
	abs, err := filepath.Abs(opts.DSXFile)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", opts.DSXFile, err)
	}

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %q: %w", filepath.Dir(abs), err)
	}

	watched := map[string]bool{abs: true}

	for _, f := range opts.ExtraFiles {
		extraAbs, absErr := filepath.Abs(f)
		if absErr != nil {
			return fmt.Errorf("resolving extra file %q: %w", f, absErr)
		}

		if err := watcher.Add(filepath.Dir(extraAbs)); err != nil {
			return fmt.Errorf("watching file %q: %w", extraAbs, err)
		}

		watched[extraAbs] = true
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(opts.Out, "watching %s (debounce=%s)\n", opts.DSXFile, opts.Debounce)

	// Initial migration.
	doRun(sigCtx, opts, runFn, "(initial)")

	coalescer := newExportCoalescer(opts.Debounce)
	defer coalescer.Stop()

	for {
		select {
		case <-sigCtx.Done():
			fmt.Fprintln(opts.Out, "\nshutting down watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !isRelevant(event, watched) {
				continue
			}

			coalescer.Notify(event.Name)

		case path := <-coalescer.C:
			doRun(sigCtx, opts, runFn, path)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			opts.Logger.Error("watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// isRelevant filters events down to writes of the watched files.
func isRelevant(event fsnotify.Event, watched map[string]bool) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}

	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}

	return watched[abs]
}

// doRun executes a single migration and prints the status line.
func doRun(ctx context.Context, opts Options, runFn RunFunc, trigger string) {
	now := time.Now().Format("15:04:05")

	result, err := runFn(ctx)
	if err != nil {
		fmt.Fprintf(opts.Out, "[%s] %s → ERROR: %v\n", now, trigger, err)
		return
	}

	fmt.Fprintf(opts.Out, "[%s] %s → OK (%d stages, %d links, %d transformations preserved)\n",
		now, trigger, result.Stages, result.Links, result.Transformations)

	if result.OutputPath != "" {
		fmt.Fprintf(opts.Out, "  output: %s\n", result.OutputPath)
	}
}
