package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "http://localhost:5001/api", c.Backend.URL)
	assert.Equal(t, 30*time.Second, c.Backend.Timeout)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, ":memory:", c.Journal.DSN)
	assert.Equal(t, 2*time.Second, c.Playback.Interval)
	assert.Equal(t, "CRO", c.Session.Perspective)
	assert.NoError(t, c.Validate())
	assert.Equal(t, ":8080", c.Addr())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "controlroom.yaml")
	content := `
backend:
  url: http://sim.internal:5001/api
  timeout: 10s
server:
  port: 9090
playback:
  interval: 500ms
session:
  perspective: Investor
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	c, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://sim.internal:5001/api", c.Backend.URL)
	assert.Equal(t, 10*time.Second, c.Backend.Timeout)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, 500*time.Millisecond, c.Playback.Interval)
	assert.Equal(t, "Investor", c.Session.Perspective)

	// Unset keys keep their defaults.
	assert.Equal(t, ":memory:", c.Journal.DSN)
	assert.Equal(t, "info", c.Logging.Level)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONTROLROOM_BACKEND_URL", "http://override:1/api")
	t.Setenv("CONTROLROOM_PORT", "7000")
	t.Setenv("CONTROLROOM_LOG_LEVEL", "debug")
	t.Setenv("CONTROLROOM_JOURNAL_DSN", "/tmp/journal.db")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://override:1/api", c.Backend.URL)
	assert.Equal(t, 7000, c.Server.Port)
	assert.Equal(t, "debug", c.Logging.Level)
	assert.Equal(t, "/tmp/journal.db", c.Journal.DSN)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.Server.CORSOrigins)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty url", func(c *Config) { c.Backend.URL = "" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"zero playback", func(c *Config) { c.Playback.Interval = 0 }},
		{"bad perspective", func(c *Config) { c.Session.Perspective = "Auditor" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
