// Package apperr holds sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrNotDirectory = errors.New("not a directory")
	ErrPathEscapes  = errors.New("path escapes root")
	// ErrDiagnostics is returned by a check that reported broken links.
	ErrDiagnostics = errors.New("diagnostics reported")
)
