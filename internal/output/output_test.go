package output

import (
	"archive/zip"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLayoutPaths(t *testing.T) {
	l := Layout{Root: "/out", Project: "my_project"}

	assert.Equal(t, filepath.Join("/out", "my_project"), l.ProjectDir())
	assert.Equal(t, filepath.Join("/out", "my_project", "talend.project"), l.ProjectFile())
	assert.Equal(t, filepath.Join("/out", "my_project", "process", "DataStage"), l.ProcessDir())
	assert.Equal(t, filepath.Join("/out", "my_project", "process", "DataStage", "job.item"), l.ItemFile("job"))
	assert.Equal(t, filepath.Join("/out", "my_project", "process", "DataStage", "job.properties"), l.PropertiesFile("job"))
}

func TestFileWriterCreatesParents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "out.item")

	fw := NewFileWriter(path, WithLogger(discard()))
	require.NoError(t, fw.Write([]byte("content")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
	assert.Equal(t, path, fw.Path())
}

func TestFileWriterOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.item")

	fw := NewFileWriter(path, WithLogger(discard()))
	require.NoError(t, fw.Write([]byte("one")))
	require.NoError(t, fw.Write([]byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
}

func TestPackagerPack(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"my_project/talend.project":                   "<project/>",
		"my_project/process/DataStage/job.item":       "<item/>",
		"my_project/process/DataStage/job.properties": "<properties/>",
		"my_project/README.md":                        "skipped",
		"my_project/process/DataStage/leftover.zip":   "skipped",
	})

	zipPath := filepath.Join(t.TempDir(), "out", "project.zip")

	p := NewPackager(discard())
	require.NoError(t, p.Pack(context.Background(), src, zipPath))

	zr, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer zr.Close()

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
		assert.Equal(t, zip.Deflate, f.Method)
	}

	assert.True(t, names["my_project/talend.project"])
	assert.True(t, names["my_project/process/DataStage/job.item"])
	assert.True(t, names["my_project/process/DataStage/job.properties"])
	assert.False(t, names["my_project/README.md"])
	assert.False(t, names["my_project/process/DataStage/leftover.zip"])
}

func TestPackagerCancelledLeavesNoArchive(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"p/talend.project": "<project/>"})

	outDir := t.TempDir()
	zipPath := filepath.Join(outDir, "project.zip")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPackager(discard())
	err := p.Pack(ctx, src, zipPath)
	require.Error(t, err)

	_, statErr := os.Stat(zipPath)
	assert.True(t, os.IsNotExist(statErr), "partial zip must not exist")

	// The temp file is cleaned up as well.
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSkipFile(t *testing.T) {
	assert.True(t, skipFile("README.md"))
	assert.True(t, skipFile("old.ZIP"))
	assert.True(t, skipFile("x.tmp"))
	assert.False(t, skipFile("job.item"))
	assert.False(t, skipFile("talend.project"))
}
