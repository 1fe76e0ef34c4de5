package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains listen address and storage configuration.
type Server struct {
	Port    int    `toml:"port"`
	DataDir string `toml:"data_dir"`
}

// Limits bounds the per-session photo sets and generation batches.
type Limits struct {
	SubjectMax     int   `toml:"subject_max"`
	VibeMax        int   `toml:"vibe_max"`
	BatchMax       int   `toml:"batch_max"`
	MaxUploadBytes int64 `toml:"max_upload_bytes"`
}

// Gemini contains generation model configuration. The API key is never read
// from the config file; it comes from the environment or the GPG store.
type Gemini struct {
	Model string `toml:"model"`
}

// Config is the full application configuration.
type Config struct {
	Server Server `toml:"server"`
	Limits Limits `toml:"limits"`
	Gemini Gemini `toml:"gemini"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Server: Server{
			Port:    8080,
			DataDir: filepath.Join(home, ".album-studio", "data"),
		},
		Limits: Limits{
			SubjectMax:     10,
			VibeMax:        5,
			BatchMax:       8,
			MaxUploadBytes: 25 * 1024 * 1024,
		},
		Gemini: Gemini{
			Model: "",
		},
	}
}

// Load reads configuration from the given TOML file, overlaying it on the
// defaults. A missing file is not an error; the defaults are used. Environment
// variables override the file: ALBUM_PORT, ALBUM_DATA_DIR, GEMINI_MODEL.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// fall through to defaults
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ALBUM_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ALBUM_DATA_DIR"); v != "" {
		cfg.Server.DataDir = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Gemini.Model = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Limits.SubjectMax <= 0 || c.Limits.VibeMax <= 0 {
		return fmt.Errorf("photo set limits must be positive")
	}
	if c.Limits.BatchMax <= 0 {
		return fmt.Errorf("batch_max must be positive")
	}
	return nil
}

// EnsureDirectories creates the data directory if it does not exist.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Server.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir %s: %w", c.Server.DataDir, err)
	}
	return nil
}

// WriteSample writes the embedded sample configuration to the given path,
// refusing to overwrite an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "album-studio.toml"
	}
	return filepath.Join(home, ".album-studio", "config.toml")
}
