package convert

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

func (c *Converter) unzipDir(ctx context.Context, dir string) (Report, error) {
	var report Report
	entries, err := os.ReadDir(dir)
	if err != nil {
		return report, err
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !e.Type().IsRegular() {
			continue
		}
		archive := filepath.Join(dir, e.Name())
		dest := filepath.Join(dir, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))

		err := ExtractArchive(archive, dest)
		if errors.Is(err, zip.ErrFormat) {
			c.log.Debug("not a zip archive", "path", archive)
			continue
		}
		if err != nil {
			return report, err
		}
		c.log.Info("extracted", "archive", e.Name(), "dir", dest)
		report.Extracted++
	}
	return report, nil
}

// ExtractArchive unpacks the zip archive at path into dest, overwriting
// existing files. Non-archives yield zip.ErrFormat. Entries that would land
// outside dest are rejected.
func ExtractArchive(path, dest string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for _, f := range r.File {
		if err := extractEntry(f, dest); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func extractEntry(f *zip.File, dest string) error {
	target := filepath.Join(dest, f.Name)
	if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
		return fmt.Errorf("entry %q escapes %s", f.Name, dest)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
