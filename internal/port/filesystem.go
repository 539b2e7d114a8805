package port

import (
	"io"
)

// FileSystem defines the local filesystem operations the downloader needs
type FileSystem interface {
	// FileSize returns the size of the file at path
	// Returns (0, false, nil) if the file does not exist
	FileSize(path string) (int64, bool, error)

	// OpenAt opens path for writing, creating it if needed, and positions the
	// writer at offset. Bytes at or past offset are discarded first so the
	// file never holds data beyond what is being written.
	OpenAt(path string, offset int64) (io.WriteCloser, error)

	// DeleteFile removes a file. A missing file is not an error.
	DeleteFile(path string) error

	// EnsureDirectory creates dir and its parents if absent
	// Returns true when the directory exists afterwards
	EnsureDirectory(dir string) (bool, error)
}
