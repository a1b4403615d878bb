// Package config loads and validates the TOML configuration for the
// facevault daemon and CLI.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Model contains the durable model store settings.
type Model struct {
	Dir                 string `toml:"dir"`
	EmbeddingDimension  int    `toml:"embedding_dimension"`
	BackupWindowMinutes int    `toml:"backup_window_minutes"`
	ProcessLock         bool   `toml:"process_lock"`
	CountWarnMin        int    `toml:"count_warn_min"`
	CountWarnMax        int    `toml:"count_warn_max"`
	CountFatalMin       int    `toml:"count_fatal_min"`
	CountFatalMax       int    `toml:"count_fatal_max"`
}

// Enrollment contains the training pipeline settings.
type Enrollment struct {
	CaptureDir string `toml:"capture_dir"`
	Workers    int    `toml:"workers"`
	TopK       int    `toml:"top_k"`
	KeepImages bool   `toml:"keep_images"`
}

// Recognition contains the matching thresholds.
type Recognition struct {
	Tolerance      float64 `toml:"tolerance"`
	RetryTolerance float64 `toml:"retry_tolerance"`
}

// Refresh contains the model cache refresh settings.
type Refresh struct {
	AutoIntervalSeconds int  `toml:"auto_interval_seconds"`
	Disabled            bool `toml:"disabled"`
}

// Camera contains frame capture settings for monitoring sessions.
type Camera struct {
	Width         int     `toml:"width"`
	Height        int     `toml:"height"`
	FramesPerSec  float64 `toml:"frames_per_sec"`
	WindowSeconds int     `toml:"window_seconds"`
}

// Mirror contains optional blob-store mirroring of committed artifacts.
type Mirror struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Secure    bool   `toml:"secure"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for facevault.
//
// Configuration sections by subsystem:
//   - Model: store directory, dimensionality, backup and integrity policy
//   - Enrollment: capture directory and pipeline tuning
//   - Recognition: distance thresholds
//   - Refresh: cache auto-refresh interval
//   - Camera: monitoring frame capture settings
//   - Mirror: optional S3-compatible artifact mirroring
//   - Logging: log format and level
type Config struct {
	Model       Model       `toml:"model"`
	Enrollment  Enrollment  `toml:"enrollment"`
	Recognition Recognition `toml:"recognition"`
	Refresh     Refresh     `toml:"refresh"`
	Camera      Camera      `toml:"camera"`
	Mirror      Mirror      `toml:"mirror"`
	Logging     Logging     `toml:"logging"`
}

// SampleConfig returns the annotated sample configuration file.
func SampleConfig() string { return sampleConfig }

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/facevault/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded. A missing file yields the defaults.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Model.Dir, err = expandPath(c.Model.Dir); err != nil {
		return err
	}
	if c.Enrollment.CaptureDir != "" {
		if c.Enrollment.CaptureDir, err = expandPath(c.Enrollment.CaptureDir); err != nil {
			return err
		}
	}
	return nil
}

func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}
