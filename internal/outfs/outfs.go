package outfs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// NewOS returns a filesystem rooted at dir on the host, creating dir if needed.
// All names passed to the other helpers are slash-separated and relative to dir.
func NewOS(dir string) (hackpadfs.FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("outfs: %w", err)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("outfs: %w", err)
	}
	root := osfs.NewFS()
	sub, err := root.FromOSPath(abs)
	if err != nil {
		return nil, fmt.Errorf("outfs: %w", err)
	}
	fsys, err := root.Sub(sub)
	if err != nil {
		return nil, fmt.Errorf("outfs: %w", err)
	}
	return fsys, nil
}

// Exists reports whether name exists in fsys.
func Exists(fsys hackpadfs.FS, name string) bool {
	_, err := hackpadfs.Stat(fsys, name)
	return err == nil
}

// IsContention reports whether err is the exclusive-create failure a losing
// writer gets when another writer created the same file first.
func IsContention(err error) bool {
	return errors.Is(err, fs.ErrExist)
}

// CreateExclusive creates name (and its parent directories) only if it does not
// exist yet and streams write into it. If another writer created the file first
// the returned error satisfies IsContention. A failed write removes the partial file.
// fsys must honour O_EXCL; the host FS from NewOS does, hackpadfs/mem does not.
func CreateExclusive(fsys hackpadfs.FS, name string, write func(io.Writer) error) error {
	return create(fsys, name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, write)
}

// WriteFile creates or truncates name (and its parent directories) and writes data.
func WriteFile(fsys hackpadfs.FS, name string, data []byte) error {
	return create(fsys, name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func create(fsys hackpadfs.FS, name string, flag int, write func(io.Writer) error) error {
	if dir := path.Dir(name); dir != "." {
		if err := hackpadfs.MkdirAll(fsys, dir, dirPerm); err != nil {
			return fmt.Errorf("outfs: %w", err)
		}
	}
	f, err := hackpadfs.OpenFile(fsys, name, flag, filePerm)
	if err != nil {
		return fmt.Errorf("outfs: %w", err)
	}
	buf := bufio.NewWriter(fileWriter{f})
	err = write(buf)
	if err == nil {
		err = buf.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = hackpadfs.Remove(fsys, name)
		return fmt.Errorf("outfs: %w", err)
	}
	return nil
}

type fileWriter struct {
	f hackpadfs.File
}

func (w fileWriter) Write(p []byte) (int, error) {
	return hackpadfs.WriteFile(w.f, p)
}

var safeNameRe = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

// SanitizeName makes an asset name safe to use as a single file name.
func SanitizeName(name string) string {
	if name == "" {
		return "unnamed"
	}
	name = safeNameRe.ReplaceAllString(name, "_")
	if name == "." || name == ".." {
		return "_"
	}
	return name
}
