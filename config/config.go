package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/masmgr/commitsync/internal/store"
)

// FileName is the configuration file looked up in the working and home directories.
const FileName = ".commitsync.json"

// Config is the root configuration structure.
type Config struct {
	Store      StoreConfig      `json:"store"`
	Extraction ExtractionConfig `json:"extraction"`
	Discovery  DiscoveryConfig  `json:"discovery"`
	Log        LogConfig        `json:"log"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver    string `json:"driver"`    // memory, sqlite, bolt, redis
	Path      string `json:"path"`      // Database file for sqlite and bolt
	Addr      string `json:"addr"`      // Redis address
	Username  string `json:"username"`  // Redis ACL user
	Password  string `json:"password"`  // Overridden by COMMITSYNC_STORE_PASSWORD
	Database  int    `json:"database"`  // Redis logical database
	KeyPrefix string `json:"keyPrefix"` // Redis key namespace
}

// ExtractionConfig holds commit extraction options.
type ExtractionConfig struct {
	Backend              string `json:"backend"` // go-git or git-cli
	Ref                  string `json:"ref"`     // Default: "HEAD"
	Strict               bool   `json:"strict"`  // Abort on unreadable commits instead of skipping them
	ResetOnMissingMarker bool   `json:"resetOnMissingMarker"`
}

// DiscoveryConfig holds repository discovery options for multi-repository ingestion.
type DiscoveryConfig struct {
	Root    string   `json:"root"` // Set: ingest discovers repositories here unless --repo is given
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
}

// LogConfig holds logging options.
type LogConfig struct {
	Level  string `json:"level"`  // trace, debug, info, warn, error, off
	Format string `json:"format"` // console or json
}

// PasswordEnv overrides StoreConfig.Password when set.
const PasswordEnv = "COMMITSYNC_STORE_PASSWORD"

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:    string(store.DriverSQLite),
			Path:      filepath.Join(".commitsync", "commits.db"),
			Addr:      "localhost:6379",
			KeyPrefix: "commitsync",
		},
		Extraction: ExtractionConfig{
			Backend: "go-git",
			Ref:     "HEAD",
		},
		Discovery: DiscoveryConfig{
			Include: []string{"**/.git", "**/*.git"},
			Exclude: []string{},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from a file, merging with defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		// Try default locations
		candidates := []string{FileName}
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			candidates = append(candidates, filepath.Join(home, FileName))
		} else if envHome := os.Getenv("HOME"); envHome != "" {
			candidates = append(candidates, filepath.Join(envHome, FileName))
		}
		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	if pw := os.Getenv(PasswordEnv); pw != "" {
		cfg.Store.Password = pw
	}

	return cfg, nil
}

// SaveConfig saves configuration to a file.
func SaveConfig(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	switch store.Driver(strings.ToLower(c.Store.Driver)) {
	case store.DriverMemory:
	case store.DriverSQLite, store.DriverBolt, "":
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for file-backed stores"))
		}
	case store.DriverRedis:
		if c.Store.Addr == "" {
			errs = append(errs, errors.New("store.addr is required for the redis store"))
		}
		if c.Store.Database < 0 {
			errs = append(errs, errors.New("store.database must not be negative"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of memory, sqlite, bolt, redis", c.Store.Driver))
	}

	switch strings.ToLower(c.Extraction.Backend) {
	case "", "go-git", "git-cli":
	default:
		errs = append(errs, fmt.Errorf("extraction.backend %q is not one of go-git, git-cli", c.Extraction.Backend))
	}

	for _, p := range append(append([]string(nil), c.Discovery.Include...), c.Discovery.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("discovery pattern %q is invalid", p))
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of console, json", c.Log.Format))
	}

	return errors.Join(errs...)
}

// ToStore converts the store section into backend options.
func (s StoreConfig) ToStore() store.Config {
	return store.Config{
		Driver:    store.Driver(s.Driver),
		Path:      s.Path,
		Addr:      s.Addr,
		Username:  s.Username,
		Password:  s.Password,
		Database:  s.Database,
		KeyPrefix: s.KeyPrefix,
	}
}
