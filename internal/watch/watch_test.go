package watch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
)

func TestCoalescerFoldsBursts(t *testing.T) {
	c := newExportCoalescer(30 * time.Millisecond)
	defer c.Stop()

	// A save burst: several chunked writes of the same export.
	c.Notify("job.dsx")
	c.Notify("job.dsx")
	c.Notify("job.dsx")

	select {
	case path := <-c.C:
		assert.Equal(t, "job.dsx", path)
	case <-time.After(time.Second):
		t.Fatal("coalescer never fired")
	}

	// Quiet period: no further triggers.
	select {
	case path := <-c.C:
		t.Fatalf("unexpected extra trigger for %s", path)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestCoalescerKeepsLastPath(t *testing.T) {
	c := newExportCoalescer(20 * time.Millisecond)
	defer c.Stop()

	c.Notify("job.dsx")
	c.Notify("mappings.yaml")

	select {
	case path := <-c.C:
		assert.Equal(t, "mappings.yaml", path)
	case <-time.After(time.Second):
		t.Fatal("coalescer never fired")
	}
}

func TestCoalescerStop(t *testing.T) {
	c := newExportCoalescer(20 * time.Millisecond)

	c.Notify("x.dsx")
	c.Stop()
	// Stop is idempotent.
	c.Stop()

	select {
	case path := <-c.C:
		t.Fatalf("trigger after stop for %s", path)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestIsRelevant(t *testing.T) {
	watched := map[string]bool{"/tmp/job.dsx": true}

	assert.True(t, isRelevant(fsnotify.Event{Name: "/tmp/job.dsx", Op: fsnotify.Write}, watched))
	assert.True(t, isRelevant(fsnotify.Event{Name: "/tmp/job.dsx", Op: fsnotify.Create}, watched))
	assert.False(t, isRelevant(fsnotify.Event{Name: "/tmp/job.dsx", Op: fsnotify.Chmod}, watched))
	assert.False(t, isRelevant(fsnotify.Event{Name: "/tmp/other.dsx", Op: fsnotify.Write}, watched))
}

func TestDoRunReportsResult(t *testing.T) {
	var buf bytes.Buffer

	opts := Options{
		Out:    &buf,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	doRun(context.Background(), opts, func(context.Context) (*RunResult, error) {
		return &RunResult{Stages: 3, Links: 2, Transformations: 1, OutputPath: "out/p.zip"}, nil
	}, "job.dsx")

	out := buf.String()
	assert.Contains(t, out, "3 stages, 2 links, 1 transformations preserved")
	assert.Contains(t, out, "out/p.zip")
}

func TestDoRunReportsError(t *testing.T) {
	var buf bytes.Buffer

	opts := Options{Out: &buf}

	doRun(context.Background(), opts, func(context.Context) (*RunResult, error) {
		return nil, errors.New("parse failed")
	}, "job.dsx")

	assert.Contains(t, buf.String(), "ERROR: parse failed")
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 500*time.Millisecond, opts.Debounce)
	assert.NotNil(t, opts.Logger)
	assert.NotNil(t, opts.Out)
}
