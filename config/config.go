package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fablecraft/gen-relay/utils/logger"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is where the manager reads and writes its document when no
	// explicit path is given
	DefaultPath = "config/gen_relay.yaml"

	currentVersion = "2.0.0"
)

// Backend describes one configured upstream text-generation endpoint.
// The relay holds read-only snapshots of these records and refreshes them
// only through an explicit Reinitialize.
type Backend struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Enabled    bool   `yaml:"enabled"`
	Timeout    int    `yaml:"timeout"`     // seconds
	RetryTimes int    `yaml:"retry_times"` // advisory per-backend retry budget
}

// Validate checks the descriptor for values the relay cannot work with
func (b Backend) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("backend name must not be empty")
	}
	switch b.Type {
	case "ollama", "openai", "claude", "other":
	default:
		return fmt.Errorf("unsupported backend type: %q", b.Type)
	}
	url := strings.TrimSpace(b.BaseURL)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("base_url must start with http:// or https://")
	}
	if strings.TrimSpace(b.APIKey) == "" {
		return fmt.Errorf("api_key must not be empty")
	}
	if strings.TrimSpace(b.Model) == "" {
		return fmt.Errorf("model must not be empty")
	}
	if b.Timeout < 5 || b.Timeout > 10000 {
		return fmt.Errorf("timeout must be between 5 and 10000 seconds")
	}
	if b.RetryTimes < 1 || b.RetryTimes > 10 {
		return fmt.Errorf("retry_times must be between 1 and 10")
	}
	return nil
}

// TimeoutDuration returns the per-call timeout as a time.Duration
func (b Backend) TimeoutDuration() time.Duration {
	return time.Duration(b.Timeout) * time.Second
}

// Generation holds the shared sampling parameters consumed read-only by the
// relay on every request
type Generation struct {
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Validate checks the sampling parameters against their allowed ranges
func (g Generation) Validate() error {
	if g.Temperature < 0.1 || g.Temperature > 2.0 {
		return fmt.Errorf("temperature must be between 0.1 and 2.0")
	}
	if g.TopP < 0.1 || g.TopP > 1.0 {
		return fmt.Errorf("top_p must be between 0.1 and 1.0")
	}
	if g.MaxTokens < 100 || g.MaxTokens > 100000 {
		return fmt.Errorf("max_tokens must be between 100 and 100000")
	}
	return nil
}

// DefaultGeneration returns the sampling parameters used when no document
// exists yet
func DefaultGeneration() Generation {
	return Generation{
		Temperature: 0.7,
		TopP:        0.9,
		MaxTokens:   4096,
	}
}

// DefaultBackend returns the out-of-the-box local endpoint
func DefaultBackend() Backend {
	return Backend{
		Name:       "local-ollama",
		Type:       "ollama",
		BaseURL:    "http://localhost:11434/v1",
		APIKey:     "ollama",
		Model:      "llama3.1:latest",
		Enabled:    true,
		Timeout:    30,
		RetryTimes: 3,
	}
}

// document is the on-disk YAML layout
type document struct {
	Version      string     `yaml:"version"`
	LastModified string     `yaml:"last_modified"`
	Backends     []Backend  `yaml:"backends"`
	Generation   Generation `yaml:"generation"`
}

// Manager owns the backend list and generation parameters. It is explicitly
// constructed by the composition root; there is no global instance.
// Safe for concurrent use.
type Manager struct {
	mu         sync.RWMutex
	path       string
	backends   []Backend
	generation Generation
	version    string
	logger     logger.Logger
}

// NewManager loads the document at path, falling back to defaults when the
// file is missing or unreadable. A nil logger means no logging.
func NewManager(path string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	if path == "" {
		path = DefaultPath
	}

	m := &Manager{
		path:       path,
		generation: DefaultGeneration(),
		version:    currentVersion,
		logger:     log,
	}
	m.load()
	return m
}

func (m *Manager) load() {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Infof("config file %s not found, using defaults", m.path)
		} else {
			m.logger.Errorf("failed to read config %s: %v", m.path, err)
		}
		m.backends = []Backend{DefaultBackend()}
		return
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		m.logger.Errorf("failed to parse config %s: %v, using defaults", m.path, err)
		m.backends = []Backend{DefaultBackend()}
		return
	}

	for _, b := range doc.Backends {
		if err := b.Validate(); err != nil {
			m.logger.Warnf("skipping invalid backend %q: %v", b.Name, err)
			continue
		}
		m.backends = append(m.backends, b)
	}

	if err := doc.Generation.Validate(); err == nil {
		m.generation = doc.Generation
	} else {
		m.logger.Warnf("invalid generation config: %v, keeping defaults", err)
	}

	if doc.Version != "" {
		m.version = doc.Version
	}

	m.logger.Infof("loaded %d backend(s) from %s", len(m.backends), m.path)
}

// Save writes the current document to disk, keeping a timestamped backup of
// the previous file
func (m *Manager) Save() error {
	m.mu.RLock()
	doc := document{
		Version:      m.version,
		LastModified: time.Now().Format(time.RFC3339),
		Backends:     append([]Backend(nil), m.backends...),
		Generation:   m.generation,
	}
	m.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	m.backupExisting()

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	m.logger.Infof("config saved to %s", m.path)
	return nil
}

func (m *Manager) backupExisting() {
	prev, err := os.ReadFile(m.path)
	if err != nil {
		return
	}
	backupDir := filepath.Join(filepath.Dir(m.path), "backups")
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		m.logger.Warnf("failed to create backup dir: %v", err)
		return
	}
	name := fmt.Sprintf("backup_%s.yaml", time.Now().Format("20060102_150405"))
	if err := os.WriteFile(filepath.Join(backupDir, name), prev, 0600); err != nil {
		m.logger.Warnf("failed to write config backup: %v", err)
	}
}

// Backends returns a copy of every configured backend
func (m *Manager) Backends() []Backend {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Backend(nil), m.backends...)
}

// EnabledBackends returns a copy of the backends currently enabled, in
// configuration order
func (m *Manager) EnabledBackends() []Backend {
	m.mu.RLock()
	defer m.mu.RUnlock()

	enabled := make([]Backend, 0, len(m.backends))
	for _, b := range m.backends {
		if b.Enabled {
			enabled = append(enabled, b)
		}
	}
	return enabled
}

// Generation returns the shared sampling parameters
func (m *Manager) Generation() Generation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

// AddBackend validates and appends a new backend, then persists the document
func (m *Manager) AddBackend(b Backend) error {
	if err := b.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	for _, existing := range m.backends {
		if existing.Name == b.Name {
			m.mu.Unlock()
			return fmt.Errorf("backend %q already exists", b.Name)
		}
	}
	m.backends = append(m.backends, b)
	m.mu.Unlock()

	return m.Save()
}

// UpdateBackend replaces the backend with the same name and persists the
// document
func (m *Manager) UpdateBackend(b Backend) error {
	if err := b.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	found := false
	for i, existing := range m.backends {
		if existing.Name == b.Name {
			m.backends[i] = b
			found = true
			break
		}
	}
	m.mu.Unlock()

	if !found {
		return fmt.Errorf("backend %q not found", b.Name)
	}
	return m.Save()
}

// DeleteBackend removes the named backend and persists the document
func (m *Manager) DeleteBackend(name string) error {
	m.mu.Lock()
	kept := m.backends[:0]
	for _, b := range m.backends {
		if b.Name != name {
			kept = append(kept, b)
		}
	}
	m.backends = kept
	m.mu.Unlock()

	return m.Save()
}

// SetGeneration validates and replaces the sampling parameters, then
// persists the document
func (m *Manager) SetGeneration(g Generation) error {
	if err := g.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.generation = g
	m.mu.Unlock()

	return m.Save()
}

// ExportRedacted writes the document to path with credentials and endpoint
// URLs stripped, safe to share
func (m *Manager) ExportRedacted(path string) error {
	m.mu.RLock()
	redacted := make([]Backend, 0, len(m.backends))
	for _, b := range m.backends {
		redacted = append(redacted, Backend{
			Name:  b.Name,
			Type:  b.Type,
			Model: b.Model,
		})
	}
	doc := document{
		Version:    m.version,
		Backends:   redacted,
		Generation: m.generation,
	}
	m.mu.RUnlock()

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("marshal redacted config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write redacted config: %w", err)
	}
	return nil
}
