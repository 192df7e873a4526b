// Package config loads the formkit CLI configuration from YAML, TOML, JSON or
// INI files.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/dlovans/formkit/pkg/fill"
	"github.com/dlovans/formkit/pkg/log"
	"github.com/dlovans/formkit/pkg/store"
)

// FillOptions configures interactive filling.
type FillOptions struct {
	// Prompt rounds before giving up, the first full pass included.
	MaxRounds int `yaml:"maxRounds" toml:"maxRounds" json:"maxRounds" ini:"maxRounds" validate:"min=1"`
}

// Config is the CLI configuration. Every section maps onto the options of the
// package it configures.
type Config struct {
	Log   log.Options            `yaml:"log" toml:"log" json:"log" ini:"log"`
	Store store.BoltStoreOptions `yaml:"store" toml:"store" json:"store" ini:"store"`
	Fill  FillOptions            `yaml:"fill" toml:"fill" json:"fill" ini:"fill"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: log.Options{
			Level:  "info",
			Format: "text",
		},
		Store: store.BoltStoreOptions{
			Path:       "formkit.db",
			Bucket:     "forms",
			Serializer: "json",
		},
		Fill: FillOptions{
			MaxRounds: fill.DefaultMaxRounds,
		},
	}
}

var validate = validator.New()

// Load reads path over the defaults and validates the result. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	if err := Decode(filepath.Ext(path), data, cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Decode decodes data in the format named by ext (".yaml", ".yml", ".toml",
// ".json", ".ini") into cfg. Keys missing from data keep their current value.
func Decode(ext string, data []byte, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		return yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	case ".json":
		return json.Unmarshal(data, cfg)
	case ".ini":
		f, err := ini.LoadSources(ini.LoadOptions{
			SpaceBeforeInlineComment: true,
		}, data)
		if err != nil {
			return err
		}
		return f.MapTo(cfg)
	default:
		return errors.Errorf("unsupported config format %q", ext)
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// Logger builds the logger described by the log section.
func (c *Config) Logger() (log.Logger, error) {
	logger, err := log.NewSLogWithOptions(&c.Log)
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return logger, nil
}
