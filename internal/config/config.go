// Package config resolves runtime settings: built-in defaults, then an
// optional TOML file, then TODOBLOCK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"golang.org/x/text/language"
)

const (
	AuthNone = "none"
	AuthDev  = "dev"
)

type Config struct {
	Addr     string `toml:"addr" env:"TODOBLOCK_ADDR" json:"addr"`
	DBPath   string `toml:"db_path" env:"TODOBLOCK_DB" json:"dbPath"`
	Locale   string `toml:"locale" env:"TODOBLOCK_LOCALE" json:"locale"`
	Timezone string `toml:"timezone" env:"TODOBLOCK_TIMEZONE" json:"timezone"`

	// AuthMode is none (every request acts as Actor) or dev (pick an identity on /login).
	AuthMode   string `toml:"auth_mode" env:"TODOBLOCK_AUTH_MODE" json:"authMode"`
	Actor      string `toml:"actor" env:"TODOBLOCK_ACTOR" json:"actor"`
	SecretPath string `toml:"secret_path" env:"TODOBLOCK_SECRET_PATH" json:"secretPath"`

	// InstanceID names the rendered block region (todo-instance-<id>).
	InstanceID int64 `toml:"instance_id" env:"TODOBLOCK_INSTANCE_ID" json:"instanceId"`
}

// Dir is where the default database, secret and config file live.
func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("TODOBLOCK_HOME")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".todoblock"), nil
}

func Default() Config {
	cfg := Config{
		Addr:       "127.0.0.1:3340",
		Locale:     "en-US",
		Timezone:   "Local",
		AuthMode:   AuthNone,
		Actor:      "local",
		InstanceID: 1,
	}
	if dir, err := Dir(); err == nil {
		cfg.DBPath = filepath.Join(dir, "todo.sqlite")
		cfg.SecretPath = filepath.Join(dir, "secret.key")
	}
	return cfg
}

// Load layers path (or $TODOBLOCK_CONFIG, or <Dir>/config.toml when present)
// and the environment over Default, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	path = strings.TrimSpace(path)
	explicit := path != ""
	if !explicit {
		path = strings.TrimSpace(os.Getenv("TODOBLOCK_CONFIG"))
		explicit = path != ""
	}
	if !explicit {
		if dir, err := Dir(); err == nil {
			path = filepath.Join(dir, "config.toml")
		}
	}
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return fmt.Errorf("read config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ParseEnv applies environment overrides to target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) normalize() {
	c.Addr = strings.TrimSpace(c.Addr)
	c.DBPath = strings.TrimSpace(c.DBPath)
	c.Locale = strings.TrimSpace(c.Locale)
	c.Timezone = strings.TrimSpace(c.Timezone)
	c.AuthMode = strings.ToLower(strings.TrimSpace(c.AuthMode))
	c.Actor = strings.TrimSpace(c.Actor)
	c.SecretPath = strings.TrimSpace(c.SecretPath)
}

func (c Config) Validate() error {
	switch c.AuthMode {
	case AuthNone:
		if c.Actor == "" {
			return errors.New("config: actor is required when auth_mode is none")
		}
	case AuthDev:
		if c.SecretPath == "" {
			return errors.New("config: secret_path is required when auth_mode is dev")
		}
	default:
		return fmt.Errorf("config: invalid auth_mode %q (expected none|dev)", c.AuthMode)
	}
	if c.DBPath == "" {
		return errors.New("config: db_path is empty")
	}
	if _, err := language.Parse(c.Locale); err != nil {
		return fmt.Errorf("config: invalid locale %q: %w", c.Locale, err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.InstanceID <= 0 {
		return fmt.Errorf("config: instance_id must be positive; got %d", c.InstanceID)
	}
	return nil
}

// Location resolves Timezone. Empty and "Local" mean the process zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
