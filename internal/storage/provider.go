// Package storage persists Waystation documents as JSON files in a single
// directory: current.json holds the active Waystation and <id>.json holds the
// backup of every Waystation ever saved.
package storage

import "time"

// Info describes one stored document.
type Info struct {
	Name     string // file name relative to the root, e.g. "abc.json"
	Checksum string
	ModTime  time.Time
}

// Provider is the interface for raw document file operations.
type Provider interface {
	// Root returns the absolute directory documents are stored in.
	Root() string
	// List returns metadata for every .json document in the root.
	List() ([]Info, error)
	// Read returns the raw bytes of the named document.
	Read(name string) ([]byte, error)
	// Write atomically writes content to the named document.
	Write(name string, content []byte) error
	// Delete removes the named document.
	Delete(name string) error
}
