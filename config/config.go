// Package config loads service configuration from YAML with optional .env
// and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"healthrisk/disease"
	"healthrisk/ml"
	"healthrisk/registry"
)

const DefaultPath = "config.yaml"

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Log      LogConfig `yaml:"log"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Models struct {
		Dir      string               `yaml:"dir"`
		Type     string               `yaml:"type"`
		Isolated bool                 `yaml:"isolated"`
		Watch    bool                 `yaml:"watch"`
		Files    map[string]ModelFile `yaml:"files"`
	} `yaml:"models"`
	Cache struct {
		Size int `yaml:"size"`
	} `yaml:"cache"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// ModelFile overrides the default file of one disease.
type ModelFile struct {
	Path string `yaml:"path"`
	Type string `yaml:"type"`
}

func Default() *Config {
	var cfg Config
	cfg.Http.Port = 8080
	cfg.Http.Timeout = 30 * time.Second
	cfg.Http.AllowedOrigins = []string{"*"}
	cfg.Log.Level = "info"
	cfg.Log.MaxSizeMB = 100
	cfg.Log.MaxBackups = 3
	cfg.Log.MaxAgeDays = 28
	cfg.Models.Dir = "Models"
	cfg.Models.Type = ml.TypeDecisionTree
	return &cfg
}

// Load reads the config file at path. An empty path falls back to
// $HEALTHRISK_CONFIG and then to config.yaml; only an explicitly requested
// file must exist.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if path == "" {
		if env := os.Getenv("HEALTHRISK_CONFIG"); env != "" {
			path, explicit = env, true
		} else {
			path = DefaultPath
		}
	}

	cfg := Default()
	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("HEALTHRISK_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HEALTHRISK_PORT: %w", err)
		}
		c.Http.Port = port
	}
	if v := os.Getenv("HEALTHRISK_MODELS_DIR"); v != "" {
		c.Models.Dir = v
	}
	if v := os.Getenv("HEALTHRISK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HEALTHRISK_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.Http.Timeout <= 0 {
		return errors.New("http.timeout must be positive")
	}
	if c.Cache.Size < 0 {
		return errors.New("cache.size must not be negative")
	}
	for name := range c.Models.Files {
		if _, err := disease.Parse(name); err != nil {
			return fmt.Errorf("models.files: %w", err)
		}
	}
	return nil
}

// Sources resolves the model file of every disease.
func (c *Config) Sources() []registry.Source {
	sources := registry.SourcesFromDir(c.Models.Dir)
	for i := range sources {
		if c.Models.Type != "" {
			sources[i].Type = c.Models.Type
		}
		override, ok := c.override(sources[i].Disease)
		if !ok {
			continue
		}
		if override.Path != "" {
			if filepath.IsAbs(override.Path) {
				sources[i].Path = override.Path
			} else {
				sources[i].Path = filepath.Join(c.Models.Dir, override.Path)
			}
		}
		if override.Type != "" {
			sources[i].Type = override.Type
		}
	}
	return sources
}

func (c *Config) override(d disease.Disease) (ModelFile, bool) {
	for name, file := range c.Models.Files {
		if parsed, err := disease.Parse(name); err == nil && parsed == d {
			return file, true
		}
	}
	return ModelFile{}, false
}
