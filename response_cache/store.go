package response_cache

// Store is the persistence port for the cache. The cache stays fully correct
// when persistence never succeeds; implementations only need best-effort
// durability.
type Store interface {
	// Load reads the persisted entries. A missing document yields an empty
	// map and no error.
	Load() (map[string]Entry, error)

	// Save persists the whole entry map as one document.
	Save(entries map[string]Entry) error
}

// NoopStore keeps nothing. Used in tests and whenever disk persistence is
// not wanted.
type NoopStore struct{}

var _ Store = (*NoopStore)(nil)

// NewNoopStore creates a store that discards everything
func NewNoopStore() *NoopStore {
	return &NoopStore{}
}

func (n *NoopStore) Load() (map[string]Entry, error) {
	return map[string]Entry{}, nil
}

func (n *NoopStore) Save(entries map[string]Entry) error {
	return nil
}
