package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("IRONNOTE_HOME", home)
	t.Setenv("IRONNOTE_API_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, filepath.Join(home, "cache.db"), cfg.CachePath)
	assert.True(t, cfg.ConfirmDelete)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("IRONNOTE_HOME", t.TempDir())
	t.Setenv("IRONNOTE_API_URL", "")

	cfg := DefaultConfig()
	cfg.APIURL = "https://notes.example.com"
	cfg.RequestTimeout = 3 * time.Second
	cfg.ConfirmDelete = false
	require.NoError(t, cfg.Save())

	got, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://notes.example.com", got.APIURL)
	assert.Equal(t, 3*time.Second, got.RequestTimeout)
	assert.False(t, got.ConfirmDelete)
}

func TestEnvOverridesAPIURL(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("IRONNOTE_HOME", dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: http://file\nrequest_timeout: 2s\n"), 0644))
	t.Setenv("IRONNOTE_API_URL", "http://env")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env", cfg.APIURL)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: [unclosed"), 0644))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}
