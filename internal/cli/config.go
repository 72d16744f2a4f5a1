package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds user configuration loaded from the TOML config file.
// Missing files and missing fields fall back to defaults, so the CLI works
// with no configuration at all.
type Config struct {
	// SaveDirectory is where relative diagram paths are resolved.
	// Empty means the current working directory.
	SaveDirectory string `toml:"save_directory"`

	// Listen is the serve command's default bind address.
	Listen string `toml:"listen"`

	Store StoreConfig `toml:"store"`
}

// StoreConfig selects and configures the document store backend used by the
// serve command.
type StoreConfig struct {
	// Backend is one of "memory", "file", "redis", "mongo".
	Backend string `toml:"backend"`

	// Dir is the document directory for the file backend.
	// Empty means ~/.config/diagrid/documents/.
	Dir string `toml:"dir"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`

	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

func defaultConfig() *Config {
	return &Config{
		Listen: "localhost:8095",
		Store: StoreConfig{
			Backend:   "file",
			RedisAddr: "localhost:6379",
			MongoURI:  "mongodb://localhost:27017",
		},
	}
}

// loadConfig reads the config file at path, or ~/.config/diagrid/config.toml
// when path is empty. A missing file yields the defaults; a malformed file
// is an error.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(home, ".config", "diagrid", "config.toml")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// resolvePath resolves a diagram file path against the save directory.
// Absolute paths are returned unchanged.
func (c *Config) resolvePath(path string) string {
	if c.SaveDirectory == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.SaveDirectory, path)
}
