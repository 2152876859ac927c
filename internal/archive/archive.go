// Package archive builds the campaign snapshot: a zip holding the log
// directory, the summary file, the configuration and any extra paths the
// project asks to keep.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Writer wraps a zip writer with recursive directory support and member
// deduplication, so the fixed snapshot set and user-supplied zip_with
// extras cannot collide.
type Writer struct {
	zw   *zip.Writer
	seen map[string]struct{}
}

// NewWriter returns a snapshot writer emitting to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{zw: zip.NewWriter(w), seen: make(map[string]struct{})}
}

// AddPath adds a file, or a directory recursively. Member names are the
// cleaned slash paths without a leading separator.
func (w *Writer) AddPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot add %q to the archive: %w", path, err)
	}
	if !info.IsDir() {
		return w.addFile(path)
	}
	return filepath.WalkDir(path, func(sub string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		return w.addFile(sub)
	})
}

// AddBytes adds an in-memory member under the given name.
func (w *Writer) AddBytes(name string, data []byte) error {
	name = memberName(name)
	if w.skip(name) {
		return nil
	}
	member, err := w.zw.Create(name)
	if err != nil {
		return fmt.Errorf("cannot create archive member %q: %w", name, err)
	}
	_, err = member.Write(data)
	return err
}

// Close finalizes the archive.
func (w *Writer) Close() error {
	return w.zw.Close()
}

func (w *Writer) addFile(path string) error {
	name := memberName(path)
	if w.skip(name) {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot add %q to the archive: %w", path, err)
	}
	defer f.Close()

	member, err := w.zw.Create(name)
	if err != nil {
		return fmt.Errorf("cannot create archive member %q: %w", name, err)
	}
	_, err = io.Copy(member, f)
	return err
}

func (w *Writer) skip(name string) bool {
	if _, dup := w.seen[name]; dup {
		return true
	}
	w.seen[name] = struct{}{}
	return false
}

func memberName(path string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(path)), "/")
}
