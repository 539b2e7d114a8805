package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/vertextoedge/resumefetch/internal/domain"
	"github.com/vertextoedge/resumefetch/internal/port"
)

// Manager handles local filesystem operations
type Manager struct {
	fileMode fs.FileMode
	dirMode  fs.FileMode
}

// Ensure Manager implements port.FileSystem
var _ port.FileSystem = (*Manager)(nil)

// NewManager creates a new filesystem manager
func NewManager() *Manager {
	return &Manager{
		fileMode: 0644,
		dirMode:  0755,
	}
}

// FileSize returns the size of the file at path
func (m *Manager) FileSize(path string) (int64, bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, domain.NewIOError("stat", path, err)
	}
	if info.IsDir() {
		return 0, false, domain.NewIOError("stat", path, fmt.Errorf("is a directory"))
	}
	return info.Size(), true, nil
}

// OpenAt opens path read/write at offset, truncating anything past it
func (m *Manager) OpenAt(path string, offset int64) (io.WriteCloser, error) {
	if offset < 0 {
		return nil, domain.NewIOError("open", path, fmt.Errorf("negative offset %d", offset))
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, m.fileMode)
	if err != nil {
		return nil, domain.NewIOError("open", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, domain.NewIOError("stat", path, err)
	}
	if info.Size() < offset {
		f.Close()
		return nil, domain.NewIOError("open", path,
			fmt.Errorf("offset %d is past end of file (%d bytes)", offset, info.Size()))
	}
	if info.Size() > offset {
		if err := f.Truncate(offset); err != nil {
			f.Close()
			return nil, domain.NewIOError("truncate", path, err)
		}
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return nil, domain.NewIOError("seek", path, err)
	}

	return &file{File: f, path: path}, nil
}

// DeleteFile removes a file
func (m *Manager) DeleteFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.NewIOError("delete", path, err)
	}
	return nil
}

// EnsureDirectory creates dir and its parents if absent
func (m *Manager) EnsureDirectory(dir string) (bool, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, m.dirMode); err != nil {
		return false, domain.NewIOError("mkdir", dir, err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return false, domain.NewIOError("stat", dir, err)
	}
	return info.IsDir(), nil
}

// EnsureParentDir ensures the directory for a file path exists
func (m *Manager) EnsureParentDir(filePath string) error {
	_, err := m.EnsureDirectory(filepath.Dir(filePath))
	return err
}

// file wraps *os.File so write and close faults surface as domain I/O errors
type file struct {
	*os.File
	path string
}

func (f *file) Write(p []byte) (int, error) {
	n, err := f.File.Write(p)
	if err != nil {
		return n, domain.NewIOError("write", f.path, err)
	}
	return n, nil
}

func (f *file) Close() error {
	if err := f.File.Close(); err != nil {
		return domain.NewIOError("close", f.path, err)
	}
	return nil
}

// illegalNameChars are replaced by SanitizeFileName
const illegalNameChars = `|><"?*:\/`

// SanitizeFileName replaces characters that are illegal in file names on
// Windows, Unix or Android with an underscore
func SanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalNameChars, r) {
			return '_'
		}
		return r
	}, name)
}

// FileNameFromURLPath returns a sanitized file name taken from the last
// segment of a URL path, or fallback when the path has none
func FileNameFromURLPath(urlPath, fallback string) string {
	name := urlPath
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		name = fallback
	}
	return SanitizeFileName(name)
}
