// Package models defines the domain types for wikify.
package models

import (
	"path/filepath"
	"strings"
	"time"
)

// SourceFile is a regular file found directly under the input directory.
type SourceFile struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ext returns the lowercased extension without its dot.
func (f SourceFile) Ext() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), "."))
}

// Stem returns the name without its extension.
func (f SourceFile) Stem() string {
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
}

// HasExt reports whether the file extension equals ext, ignoring case.
func (f SourceFile) HasExt(ext string) bool {
	return f.Ext() == strings.ToLower(ext)
}
