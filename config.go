package peertube_dl

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/alanbriolat/peertube-dl/internal/pocketnet"
)

// Config is the application-level configuration shared by the CLI and the
// local web server. Values are defaults overridden by an optional TOML file,
// overridden in turn by command-line flags.
type Config struct {
	// RPCEndpoint is the Pocketnet RPC node used for social post lookups.
	RPCEndpoint string `toml:"rpc_endpoint"`
	// TargetDir is where downloaded files are saved.
	TargetDir string `toml:"target_dir"`
	// ListenAddr is the local address the web server binds to.
	ListenAddr string `toml:"listen_addr"`
	// HistoryPath is the sqlite database recording completed downloads.
	HistoryPath string `toml:"history_path"`
}

func DefaultConfig() Config {
	return Config{
		RPCEndpoint: pocketnet.DefaultEndpoint,
		TargetDir:   ".",
		ListenAddr:  "127.0.0.1:8945",
		HistoryPath: defaultHistoryPath(),
	}
}

// LoadConfig reads a TOML config file over the defaults. An empty path means
// defaults only.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return config, fmt.Errorf("failed to load config %q: %w", path, err)
	}
	return config, nil
}

func defaultHistoryPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "peertube-dl.sqlite"
	}
	return filepath.Join(configDir, "peertube-dl", "history.sqlite")
}
