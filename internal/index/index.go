package index

// BuildIndex defines the operations the build driver and the report
// command need from the index.
type BuildIndex interface {
	RecordDocument(doc DocumentRow, links []LinkRow) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	AllPaths() (map[string]struct{}, error)
	Documents() ([]DocumentRow, error)
	Broken() ([]LinkRow, error)
	Close() error
}

// Verify *DB satisfies BuildIndex at compile time.
var _ BuildIndex = (*DB)(nil)
