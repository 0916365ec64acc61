package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBackend(name string) Backend {
	return Backend{
		Name:       name,
		Type:       "openai",
		BaseURL:    "https://api.example.com/v1",
		APIKey:     "sk-test",
		Model:      "gpt-4o-mini",
		Enabled:    true,
		Timeout:    30,
		RetryTimes: 3,
	}
}

func TestBackendValidate(t *testing.T) {
	assert.NoError(t, validBackend("a").Validate())

	cases := []struct {
		name   string
		mutate func(*Backend)
	}{
		{"empty name", func(b *Backend) { b.Name = "  " }},
		{"bad type", func(b *Backend) { b.Type = "grpc" }},
		{"bad url", func(b *Backend) { b.BaseURL = "localhost:11434" }},
		{"empty key", func(b *Backend) { b.APIKey = "" }},
		{"empty model", func(b *Backend) { b.Model = "" }},
		{"timeout too small", func(b *Backend) { b.Timeout = 1 }},
		{"timeout too large", func(b *Backend) { b.Timeout = 20000 }},
		{"retry too small", func(b *Backend) { b.RetryTimes = 0 }},
		{"retry too large", func(b *Backend) { b.RetryTimes = 11 }},
	}

	for _, tc := range cases {
		b := validBackend("a")
		tc.mutate(&b)
		assert.Error(t, b.Validate(), tc.name)
	}
}

func TestGenerationValidate(t *testing.T) {
	assert.NoError(t, DefaultGeneration().Validate())

	assert.Error(t, Generation{Temperature: 3.0, TopP: 0.9, MaxTokens: 512}.Validate())
	assert.Error(t, Generation{Temperature: 0.7, TopP: 0.01, MaxTokens: 512}.Validate())
	assert.Error(t, Generation{Temperature: 0.7, TopP: 0.9, MaxTokens: 10}.Validate())
}

func TestManager_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gen_relay.yaml")
	m := NewManager(path, nil)

	backends := m.Backends()
	require.Len(t, backends, 1)
	assert.Equal(t, "local-ollama", backends[0].Name)
	assert.Equal(t, DefaultGeneration(), m.Generation())
}

func TestManager_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gen_relay.yaml")

	m := NewManager(path, nil)
	require.NoError(t, m.AddBackend(validBackend("remote")))
	require.NoError(t, m.SetGeneration(Generation{Temperature: 1.2, TopP: 0.8, MaxTokens: 2048}))

	reloaded := NewManager(path, nil)
	names := []string{}
	for _, b := range reloaded.Backends() {
		names = append(names, b.Name)
	}
	assert.Contains(t, names, "remote")
	assert.Equal(t, 1.2, reloaded.Generation().Temperature)
	assert.Equal(t, 2048, reloaded.Generation().MaxTokens)
}

func TestManager_CorruptFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gen_relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":::not yaml {{"), 0600))

	m := NewManager(path, nil)
	require.Len(t, m.Backends(), 1)
	assert.Equal(t, "local-ollama", m.Backends()[0].Name)
}

func TestManager_InvalidBackendsSkippedOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gen_relay.yaml")
	doc := `version: "2.0.0"
backends:
  - name: good
    type: openai
    base_url: https://api.example.com/v1
    api_key: sk-1
    model: gpt-4o-mini
    enabled: true
    timeout: 30
    retry_times: 3
  - name: bad
    type: openai
    base_url: not-a-url
    api_key: sk-2
    model: gpt-4o-mini
    enabled: true
    timeout: 30
    retry_times: 3
generation:
  temperature: 0.7
  top_p: 0.9
  max_tokens: 4096
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0600))

	m := NewManager(path, nil)
	require.Len(t, m.Backends(), 1)
	assert.Equal(t, "good", m.Backends()[0].Name)
}

func TestManager_EnabledBackendsFiltersDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gen_relay.yaml")
	m := NewManager(path, nil)

	disabled := validBackend("disabled")
	disabled.Enabled = false
	require.NoError(t, m.AddBackend(disabled))
	require.NoError(t, m.AddBackend(validBackend("enabled")))

	names := []string{}
	for _, b := range m.EnabledBackends() {
		names = append(names, b.Name)
	}
	assert.Contains(t, names, "enabled")
	assert.NotContains(t, names, "disabled")
}

func TestManager_AddDuplicateRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gen_relay.yaml")
	m := NewManager(path, nil)

	require.NoError(t, m.AddBackend(validBackend("dup")))
	assert.Error(t, m.AddBackend(validBackend("dup")))
}

func TestManager_UpdateAndDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gen_relay.yaml")
	m := NewManager(path, nil)
	require.NoError(t, m.AddBackend(validBackend("b1")))

	updated := validBackend("b1")
	updated.Model = "gpt-4o"
	require.NoError(t, m.UpdateBackend(updated))

	found := false
	for _, b := range m.Backends() {
		if b.Name == "b1" {
			found = true
			assert.Equal(t, "gpt-4o", b.Model)
		}
	}
	assert.True(t, found)

	assert.Error(t, m.UpdateBackend(validBackend("missing")))

	require.NoError(t, m.DeleteBackend("b1"))
	for _, b := range m.Backends() {
		assert.NotEqual(t, "b1", b.Name)
	}
}

func TestManager_SaveCreatesBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gen_relay.yaml")
	m := NewManager(path, nil)

	require.NoError(t, m.Save())
	require.NoError(t, m.Save()) // second save must back up the first

	entries, err := os.ReadDir(filepath.Join(dir, "backups"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestManager_ExportRedacted(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(filepath.Join(dir, "gen_relay.yaml"), nil)
	require.NoError(t, m.AddBackend(validBackend("secret-holder")))

	exportPath := filepath.Join(dir, "export.yaml")
	require.NoError(t, m.ExportRedacted(exportPath))

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-test")
	assert.NotContains(t, string(data), "api.example.com")
	assert.Contains(t, string(data), "secret-holder")
}
