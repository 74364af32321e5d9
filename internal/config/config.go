package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds settings shared by the API server and the CLI/TUI client.
type Config struct {
	ServerAddr string `toml:"server_addr"`
	Env        string `toml:"env"`
	PageSize   int    `toml:"page_size"`

	// ReviewsPerApp caps how many admins are assigned one application.
	ReviewsPerApp int `toml:"reviews_per_app"`

	Database DatabaseConfig `toml:"database"`
	Client   ClientConfig   `toml:"client"`

	// Admins is the reviewer allowlist. The server resolves bearer tokens
	// against it; the file is hot-reloaded so tokens can be rotated.
	Admins []Admin `toml:"admins"`
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Driver   string `toml:"driver"` // "sqlite" or "postgres"
	Path     string `toml:"path"`
	URL      string `toml:"url" sensitive:"true"`
	MaxConns int    `toml:"max_conns"`
}

// ClientConfig is used by the CLI and TUI to reach the API server.
type ClientConfig struct {
	Server string `toml:"server"`
	Token  string `toml:"token" sensitive:"true"`
}

// Admin is one reviewer allowed to use the API.
type Admin struct {
	ID    string `toml:"id"`
	Email string `toml:"email"`
	Token string `toml:"token" sensitive:"true"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ServerAddr:    "127.0.0.1:7380",
		Env:           "development",
		PageSize:      50,
		ReviewsPerApp: 3,
		Database: DatabaseConfig{
			Driver:   DriverSQLite,
			MaxConns: 4,
		},
		Client: ClientConfig{
			Server: "http://127.0.0.1:7380",
		},
	}
}

// DataDir returns the harp data directory.
// Uses HARP_DATA_DIR env var if set, otherwise ~/.harp
func DataDir() string {
	if dir := os.Getenv("HARP_DATA_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".harp")
}

// GlobalConfigPath returns the path to the global config file
func GlobalConfigPath() string {
	return filepath.Join(DataDir(), "config.toml")
}

// DefaultDBPath is used when database.path is empty.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "harp.db")
}

// LoadGlobal loads the global configuration from the default path
func LoadGlobal() (*Config, error) {
	return LoadGlobalFrom(GlobalConfigPath())
}

// LoadGlobalFrom loads the configuration from a specific path. A missing
// file yields defaults. Environment overrides are applied last.
func LoadGlobalFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if err := applyEnv(cfg, filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv loads a .env file next to the config (if present) into the
// process environment without clobbering existing variables, then copies
// HARP_* values over the file settings.
func applyEnv(cfg *Config, envPath string) error {
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("load %s: %w", envPath, err)
		}
	}
	if v := os.Getenv("HARP_SERVER"); v != "" {
		cfg.Client.Server = v
	}
	if v := os.Getenv("HARP_TOKEN"); v != "" {
		cfg.Client.Token = v
	}
	if v := os.Getenv("HARP_DATABASE_URL"); v != "" {
		cfg.Database.Driver = DriverPostgres
		cfg.Database.URL = v
	}
	return nil
}

// Validate checks for settings that would fail later in confusing ways.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}
	if c.Database.Driver == DriverPostgres && c.Database.URL == "" {
		return fmt.Errorf("database.url is required for the postgres driver")
	}
	if c.ReviewsPerApp < 1 {
		return fmt.Errorf("reviews_per_app must be at least 1, got %d", c.ReviewsPerApp)
	}
	seen := make(map[string]bool)
	for i, a := range c.Admins {
		if a.ID == "" || a.Token == "" {
			return fmt.Errorf("admins[%d]: id and token are required", i)
		}
		if seen[a.Token] {
			return fmt.Errorf("admins[%d]: duplicate token", i)
		}
		seen[a.Token] = true
	}
	return nil
}

// DBPath returns the configured SQLite path or the default one.
func (c *Config) DBPath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return DefaultDBPath()
}

// AdminByToken returns the admin whose token matches, if any.
func (c *Config) AdminByToken(token string) (Admin, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Admin{}, false
	}
	for _, a := range c.Admins {
		if a.Token == token {
			return a, true
		}
	}
	return Admin{}, false
}

// SaveGlobal saves the global configuration
func SaveGlobal(cfg *Config) error {
	return SaveGlobalTo(GlobalConfigPath(), cfg)
}

// SaveGlobalTo writes cfg as TOML to path, creating parent dirs.
func SaveGlobalTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
