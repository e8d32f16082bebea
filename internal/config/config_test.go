package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slipdesk/internal/backend"
	"github.com/roach88/slipdesk/internal/search"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slipdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileAllowed(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), true)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().BaseURL, cfg.BaseURL)
	assert.Equal(t, backend.DefaultEndpoints(), cfg.Endpoints)
	assert.Equal(t, search.DefaultDebounce, cfg.Debounce())
}

func TestLoad_MissingFileRejected(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), false)
	assert.Error(t, err)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
base_url: https://gw.example.com/api/
http_timeout: 5s
endpoints:
  search: /buscar
search:
  debounce: 200ms
  limit: 50
`)
	cfg, err := Load(path, false)
	require.NoError(t, err)

	assert.Equal(t, "https://gw.example.com/api", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, "/buscar", cfg.Endpoints.Search)
	assert.Equal(t, "/_read/lectura", cfg.Endpoints.Intake, "unset endpoints keep defaults")
	assert.Equal(t, 200*time.Millisecond, cfg.Debounce())
	assert.Equal(t, 50, cfg.Search.Limit)
	assert.Equal(t, search.DefaultMinLive, cfg.Search.MinLive)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "base_url: https://file.example.com\ndb_path: file.db\n")
	t.Setenv(EnvBaseURL, "https://env.example.com")
	t.Setenv(EnvDB, "env.db")
	t.Setenv(EnvSession, "s3cr3t")
	t.Setenv(EnvHTTPTimeout, "12s")

	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.BaseURL)
	assert.Equal(t, "env.db", cfg.DBPath)
	assert.Equal(t, "s3cr3t", cfg.Session)
	assert.Equal(t, 12*time.Second, cfg.Timeout())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "base_url: [unterminated"},
		{"relative url", "base_url: gw.example.com"},
		{"bad timeout", "http_timeout: soon"},
		{"zero timeout", "http_timeout: 0s"},
		{"bad debounce", "search:\n  debounce: later"},
		{"negative limit", "search:\n  limit: -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), false)
			assert.Error(t, err)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session = "abc"
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.Save(path))

	got, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
