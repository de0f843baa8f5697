package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile(t *testing.T) {
	content := `api:
  base_url: "https://photos.example.com"
  tenant_id: "studio-9"
  token: "tok"
  timeout: "10s"

queue:
  concurrency: 5
  event_buffer: 32

log:
  level: "debug"
  path: "/tmp/darkroom-test.log"
`
	tmpFile, err := os.CreateTemp("", "darkroom-*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	tmpFile.Close()

	cfg, err := NewLoader().Load(tmpFile.Name())
	require.NoError(t, err)

	assert.Equal(t, "https://photos.example.com", cfg.API.BaseURL)
	assert.Equal(t, "studio-9", cfg.API.TenantID)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 5, cfg.Queue.Concurrency)
	assert.Equal(t, 32, cfg.Queue.EventBuffer)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := NewLoader().Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8380", cfg.API.BaseURL)
	assert.Equal(t, 3, cfg.Queue.Concurrency, "default concurrency limit")
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestPartialFileKeepsRemainingDefaults(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "darkroom-*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString("queue:\n  concurrency: 1\n")
	require.NoError(t, err)
	tmpFile.Close()

	cfg, err := NewLoader().Load(tmpFile.Name())
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Queue.Concurrency)
	assert.Equal(t, "http://localhost:8380", cfg.API.BaseURL)
}

func TestValidateRejectsZeroConcurrency(t *testing.T) {
	cfg := &Config{
		API:   APIConfig{BaseURL: "http://x"},
		Queue: QueueConfig{Concurrency: 0},
	}
	assert.Error(t, cfg.Validate())

	cfg.Queue.Concurrency = 1
	assert.NoError(t, cfg.Validate())

	cfg.API.BaseURL = ""
	assert.Error(t, cfg.Validate())
}
