// Package storage defines the inbox file-system abstraction.
package storage

import "time"

// FileMeta describes one file found in the inbox.
type FileMeta struct {
	Path      string // relative to the root
	Size      int64
	Checksum  string
	UpdatedAt time.Time
}

// Provider is the interface for inbox file operations.
type Provider interface {
	// List returns metadata for the files directly inside dir whose name ends
	// in ext, sorted by path. Subdirectories are not descended into.
	List(dir, ext string) ([]FileMeta, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Move renames oldPath to newPath (both relative to root).
	Move(oldPath, newPath string) error
}
