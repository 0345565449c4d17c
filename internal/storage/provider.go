// Package storage defines the file-system abstraction for source and output
// directories.
package storage

import (
	"io"

	"github.com/starford/wikify/internal/models"
)

// Provider is the interface for directory file operations. Names are
// relative to the provider root.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// List returns the regular files directly under the root, by name.
	List() ([]models.SourceFile, error)
	// Read returns the raw bytes of the file name.
	Read(name string) ([]byte, error)
	// Open opens the file name for streaming reads.
	Open(name string) (io.ReadCloser, error)
	// Write atomically writes content to name.
	Write(name string, content []byte) error
	// WriteFrom atomically writes everything read from r to name.
	WriteFrom(name string, r io.Reader) error
}
