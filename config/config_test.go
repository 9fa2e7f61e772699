package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	d := DefaultDaemon()
	d.ListenAddress = ":9999"
	require.NoError(t, Save(d, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestLoadMissingFileReturnsDefaultsAndError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing.json")

	got, err := Load(path)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, DefaultDaemon(), got)
}
