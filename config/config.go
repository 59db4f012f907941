// Package config holds the settings of the blindbid tooling. Values come
// from the defaults, then an optional YAML file, then BLINDBID_* environment
// variables, each layer overriding the previous one.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vocdoni/blindbid/backend"
	"github.com/vocdoni/blindbid/bid"
	"github.com/vocdoni/blindbid/log"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "BLINDBID_"

// Config is the configuration of a blindbid node.
type Config struct {
	LogLevel     string     `yaml:"log_level"`
	LogOutput    string     `yaml:"log_output"`
	DataDir      string     `yaml:"data_dir"`
	DBType       string     `yaml:"db_type"`
	ArtifactsDir string     `yaml:"artifacts_dir"`
	Backend      string     `yaml:"backend"`
	Limits       bid.Limits `yaml:"limits"`
}

// Default returns the default configuration.
func Default() *Config {
	dataDir := filepath.Join(os.TempDir(), "blindbid")
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		dataDir = filepath.Join(home, ".blindbid")
	}
	return &Config{
		LogLevel:  log.LogLevelInfo,
		LogOutput: "stderr",
		DataDir:   dataDir,
		DBType:    db.TypePebble,
		Backend:   "groth16",
		Limits:    bid.DefaultLimits,
	}
}

// Load returns the default configuration overridden by the YAML file at
// path, if not empty, and by the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LOG_LEVEL":     &c.LogLevel,
		"LOG_OUTPUT":    &c.LogOutput,
		"DATA_DIR":      &c.DataDir,
		"DB_TYPE":       &c.DBType,
		"ARTIFACTS_DIR": &c.ArtifactsDir,
		"BACKEND":       &c.Backend,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	uints := map[string]*uint64{
		"MINIMUM_BID": &c.Limits.Minimum,
		"MAXIMUM_BID": &c.Limits.Maximum,
	}
	for name, dst := range uints {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, name, v, err)
		}
		*dst = n
	}
	return nil
}

// Validate checks the values of the configuration.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case log.LogLevelDebug, log.LogLevelInfo, log.LogLevelWarn, log.LogLevelError:
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if _, err := backend.ByName(c.Backend); err != nil {
		return err
	}
	if c.Limits.Minimum == 0 || c.Limits.Minimum > c.Limits.Maximum {
		return fmt.Errorf("invalid bid limits [%d, %d]", c.Limits.Minimum, c.Limits.Maximum)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data dir not set")
	}
	return nil
}

// OpenDatabase opens the bid database inside the data dir.
func (c *Config) OpenDatabase() (db.Database, error) {
	dir := filepath.Join(c.DataDir, "bids")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	return metadb.New(c.DBType, dir)
}
