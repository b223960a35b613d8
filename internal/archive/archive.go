package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns a read-only filesystem over a dump source: a directory, or a
// .zip file read in place. The returned closer releases the zip file.
func Open(source string) (fs.FS, io.Closer, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, nil, fmt.Errorf("archive: %w", err)
	}
	if info.IsDir() {
		return os.DirFS(source), nopCloser{}, nil
	}
	if !strings.EqualFold(filepath.Ext(source), ".zip") {
		return nil, nil, fmt.Errorf("archive: %s is neither a directory nor a .zip file", source)
	}
	r, err := zip.OpenReader(source)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, nil, fmt.Errorf("archive: %w", err)
	}
	return r, r, nil
}

// Unzip extracts zipPath into destDir, preserving directory structure.
// destDir is created if needed. Entries that would land outside destDir are
// skipped. Returns the extracted file paths, or an error.
func Unzip(zipPath, destDir string) (extracted []string, err error) {
	// Insecure entry names are filtered below.
	r, err := zip.OpenReader(zipPath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("archive: %w", err)
	}
	defer r.Close()
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	absDir, err := filepath.Abs(destDir)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	for _, f := range r.File {
		dest := filepath.Clean(filepath.Join(absDir, f.Name))
		if !strings.HasPrefix(dest, absDir+string(os.PathSeparator)) && dest != absDir {
			continue // skip path escape
		}
		if f.FileInfo().IsDir() {
			_ = os.MkdirAll(dest, 0755)
			continue
		}
		if err := extract(f, dest); err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		extracted = append(extracted, dest)
	}
	return extracted, nil
}

func extract(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		out.Close()
		return err
	}
	_, err = io.Copy(out, rc)
	rc.Close()
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}
