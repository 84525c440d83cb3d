package output

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// skippedExtensions are never packaged.
var skippedExtensions = []string{".md", ".zip", ".tmp"}

// Packager zips a generated project tree. The archive is written to a
// temporary file and renamed into place, so a cancelled or failed run never
// leaves a partial zip behind.
type Packager struct {
	logger *slog.Logger
}

// NewPackager creates a packager.
func NewPackager(logger *slog.Logger) *Packager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Packager{logger: logger}
}

// Pack archives the tree rooted at dir into zipPath using DEFLATE. The
// context is honored between file entries.
func (p *Packager) Pack(ctx context.Context, dir, zipPath string) (err error) {
	if err := os.MkdirAll(filepath.Dir(zipPath), 0o750); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(zipPath), ".dsx2talend-*.zip.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary archive: %w", err)
	}

	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	zw := zip.NewWriter(tmp)

	walkErr := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if entry.IsDir() {
			return nil
		}

		if skipFile(entry.Name()) {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		return p.addFile(zw, path, filepath.ToSlash(rel))
	})

	if walkErr != nil {
		_ = zw.Close()
		_ = tmp.Close()

		return fmt.Errorf("packaging %s: %w", dir, walkErr)
	}

	if err := zw.Close(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("finalizing archive: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}

	if err := os.Rename(tmpName, zipPath); err != nil {
		return fmt.Errorf("moving archive into place: %w", err)
	}

	p.logger.Info("created zip package", slog.String("path", zipPath))

	return nil
}

func (p *Packager) addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(w, f)

	return err
}

func skipFile(name string) bool {
	lower := strings.ToLower(name)

	for _, ext := range skippedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}

	return false
}
