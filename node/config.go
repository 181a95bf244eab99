package node

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"twopidgeons.dev/node/consensus"
)

type Config struct {
	NodeID       string `toml:"node_id"`
	DataDir      string `toml:"data_dir"`
	Difficulty   int    `toml:"difficulty"`
	KeystorePath string `toml:"keystore_path"`
}

func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".twopidgeons"
	}
	return filepath.Join(home, ".twopidgeons")
}

func DefaultConfig() Config {
	return Config{
		NodeID:     "default_node",
		DataDir:    DefaultDataDir(),
		Difficulty: 4,
	}
}

// LoadConfig reads a TOML config file (path may be empty) and applies the
// TP_* environment overrides on top. Callers validate the result with
// ValidateConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("TP_NODE_ID"); v != "" {
		cfg.NodeID = v
	}
	if v := os.Getenv("TP_STORAGE_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("TP_KEYSTORE"); v != "" {
		cfg.KeystorePath = v
	}
	if v := os.Getenv("TP_DIFFICULTY"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TP_DIFFICULTY %q: %w", v, err)
		}
		cfg.Difficulty = d
	}
	return nil
}

func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.NodeID) == "" {
		return errors.New("node_id is required")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("data_dir is required")
	}
	if cfg.Difficulty < 0 || cfg.Difficulty > consensus.HashLen {
		return fmt.Errorf("difficulty must be in [0, %d]", consensus.HashLen)
	}
	return nil
}
