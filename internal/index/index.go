package index

// WaystationIndex defines the interface for waystation indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type WaystationIndex interface {
	UpsertWaystation(r Row, body string) error
	DeleteWaystation(id string) error
	GetChecksum(id string) (string, error)
	AllChecksums() (map[string]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Associate(directory, id string) error
	ProjectWaystations(directory string) ([]string, error)
	Close() error
}

// Verify *DB satisfies WaystationIndex at compile time.
var _ WaystationIndex = (*DB)(nil)
