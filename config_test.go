package peertube_dl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanbriolat/peertube-dl/internal/pocketnet"
)

func TestDefaultConfig(t *testing.T) {
	assert := assert.New(t)
	config := DefaultConfig()
	assert.Equal(pocketnet.DefaultEndpoint, config.RPCEndpoint)
	assert.Equal(".", config.TargetDir)
	assert.NotEmpty(config.ListenAddr)
	assert.NotEmpty(config.HistoryPath)
}

func TestLoadConfig(t *testing.T) {
	assert := assert.New(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
rpc_endpoint = "https://rpc.example/custom/"
target_dir = "/srv/videos"
`), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal("https://rpc.example/custom/", config.RPCEndpoint)
	assert.Equal("/srv/videos", config.TargetDir)
	// Unset keys keep their defaults.
	assert.Equal(DefaultConfig().ListenAddr, config.ListenAddr)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadConfigEmptyPath(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
}
