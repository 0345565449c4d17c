package wiki

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/starford/wikify/internal/diag"
)

// FileSet is an immutable set of file basenames from a single directory.
// Lookups are case-sensitive.
type FileSet struct {
	names map[string]struct{}
}

// NewFileSet returns a FileSet holding names.
func NewFileSet(names ...string) *FileSet {
	s := &FileSet{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		s.names[n] = struct{}{}
	}
	return s
}

// LoadFileSet lists the regular files directly under dir. Symlinks are
// followed; entries that cannot be probed are reported to sink and
// skipped. Failing to list dir at all is an error.
func LoadFileSet(dir string, sink diag.Sink) (*FileSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("wiki: list %s: %w", dir, err)
	}

	s := &FileSet{names: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		mode := e.Type()
		if mode&fs.ModeSymlink != 0 {
			p := filepath.Join(dir, e.Name())
			info, err := os.Stat(p)
			if err != nil {
				sink.Report(fmt.Sprintf("'%s' cannot be probed: %v", p, err))
				continue
			}
			mode = info.Mode()
		}
		if mode.IsRegular() {
			s.names[e.Name()] = struct{}{}
		}
	}
	return s, nil
}

// Contains reports whether name is in the set.
func (s *FileSet) Contains(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of names.
func (s *FileSet) Len() int {
	return len(s.names)
}

// Names returns the names in lexical order.
func (s *FileSet) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
