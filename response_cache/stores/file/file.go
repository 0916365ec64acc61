// Package file persists the response cache as a single JSON document on
// disk. The layout maps opaque cache keys to value/timestamp/ttl records and
// carries no schema version.
package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fablecraft/gen-relay/response_cache"
)

// DefaultPath is where the cache document lives when no explicit path is given
const DefaultPath = "cache/response_cache.json"

// persistedEntry is the on-disk shape of one cache entry
type persistedEntry struct {
	Value     string `json:"value"`
	Timestamp string `json:"timestamp"` // RFC3339
	TTL       int    `json:"ttl"`       // seconds
}

// Store reads and writes the cache document at a fixed path
type Store struct {
	path string
}

var _ response_cache.Store = (*Store)(nil)

// NewStore creates a file store. An empty path uses DefaultPath.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// Load reads the persisted document. A missing file yields an empty map; a
// corrupt file yields an error the cache downgrades to an empty start.
// Entries with unparsable timestamps default to now rather than poisoning
// the whole load.
func (s *Store) Load() (map[string]response_cache.Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]response_cache.Entry{}, nil
		}
		return map[string]response_cache.Entry{}, fmt.Errorf("read cache document: %w", err)
	}

	var raw map[string]persistedEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return map[string]response_cache.Entry{}, fmt.Errorf("parse cache document: %w", err)
	}

	entries := make(map[string]response_cache.Entry, len(raw))
	for key, p := range raw {
		timestamp, err := time.Parse(time.RFC3339, p.Timestamp)
		if err != nil {
			timestamp = time.Now()
		}
		ttl := time.Duration(p.TTL) * time.Second
		if ttl <= 0 {
			ttl = response_cache.DefaultTTL
		}
		entries[key] = response_cache.Entry{
			Value:     p.Value,
			Timestamp: timestamp,
			TTL:       ttl,
		}
	}
	return entries, nil
}

// Save writes the whole entry map as one document
func (s *Store) Save(entries map[string]response_cache.Entry) error {
	raw := make(map[string]persistedEntry, len(entries))
	for key, entry := range entries {
		raw[key] = persistedEntry{
			Value:     entry.Value,
			Timestamp: entry.Timestamp.Format(time.RFC3339),
			TTL:       int(entry.TTL / time.Second),
		}
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal cache document: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write cache document: %w", err)
	}
	return nil
}
