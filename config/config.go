package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds everything BarkBack needs at startup. Values resolve in
// order: built-in defaults, then ~/.config/barkback/config.toml, then
// BARKBACK_* environment variables.
type Config struct {
	Endpoint      string // translation service URL, e.g. http://localhost:8000/api/translate-audio
	RecordingsDir string // where encoded clips are written
	HistoryPath   string // SQLite file backing the translation history
	Format        string // "wav" or "flac"
	Device        string // preferred capture device name (substring match)
}

type fileConfig struct {
	Endpoint      string `toml:"endpoint"`
	RecordingsDir string `toml:"recordings_dir"`
	HistoryPath   string `toml:"history_path"`
	Format        string `toml:"format"`
	Device        string `toml:"device"`
}

func Load() (*Config, error) {
	data := defaultDataDir()
	cfg := &Config{
		RecordingsDir: filepath.Join(data, "recordings"),
		HistoryPath:   filepath.Join(data, "history.db"),
		Format:        "wav",
	}

	if configPath := configFilePath(); configPath != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(configPath, &fc); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
		}
		if fc.Endpoint != "" {
			cfg.Endpoint = fc.Endpoint
		}
		if fc.RecordingsDir != "" {
			cfg.RecordingsDir = expandTilde(fc.RecordingsDir)
		}
		if fc.HistoryPath != "" {
			cfg.HistoryPath = expandTilde(fc.HistoryPath)
		}
		if fc.Format != "" {
			cfg.Format = fc.Format
		}
		if fc.Device != "" {
			cfg.Device = fc.Device
		}
	}

	applyEnvOverrides(cfg)

	cfg.Format = strings.ToLower(cfg.Format)
	if cfg.Format != "wav" && cfg.Format != "flac" {
		return nil, fmt.Errorf("unsupported recording format %q (want wav or flac)", cfg.Format)
	}

	// Ensure directories exist
	if err := os.MkdirAll(cfg.RecordingsDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.HistoryPath), 0o755); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BARKBACK_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("BARKBACK_RECORDINGS_DIR"); v != "" {
		cfg.RecordingsDir = expandTilde(v)
	}
	if v := os.Getenv("BARKBACK_HISTORY_PATH"); v != "" {
		cfg.HistoryPath = expandTilde(v)
	}
	if v := os.Getenv("BARKBACK_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("BARKBACK_DEVICE"); v != "" {
		cfg.Device = v
	}
}

func configFilePath() string {
	var configDir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, "barkback")
	} else if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", "barkback")
	} else {
		return ""
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func defaultDataDir() string {
	if runtime.GOOS == "windows" {
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "barkback")
		}
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "barkback")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "barkback")
	}
	return filepath.Join(".", "barkback")
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
