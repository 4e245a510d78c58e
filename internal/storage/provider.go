// Package storage defines the file-system abstraction used for cache entries
// and generated notes.
package storage

import "time"

// FileInfo describes one stored file.
type FileInfo struct {
	Path      string
	Size      int64
	UpdatedAt time.Time
}

// Provider is the interface for file operations relative to a root directory.
type Provider interface {
	// List returns every file under the root whose name ends in ext.
	List(ext string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating directories as needed.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Root returns the absolute root directory.
	Root() string
}
