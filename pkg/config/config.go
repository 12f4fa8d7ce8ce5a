// Package config loads PlebNames configuration.
//
// Configuration comes from a single YAML file named by the --config flag or
// the PLEBNAMES_CONFIG environment variable. Without a file the defaults
// apply. A small set of PLEBNAMES_* variables override file values so the
// same file can serve several deployments.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/plebnames/go-plebnames/pkg/names"
	"github.com/plebnames/go-plebnames/pkg/types"
)

// Environment variables read by Load.
const (
	EnvConfig      = "PLEBNAMES_CONFIG"
	EnvExplorerURL = "PLEBNAMES_EXPLORER_URL"
	EnvNetwork     = "PLEBNAMES_NETWORK"
	EnvMongoURI    = "PLEBNAMES_MONGO_URI"
	EnvListenAddr  = "PLEBNAMES_LISTEN_ADDR"
	EnvLogLevel    = "PLEBNAMES_LOG_LEVEL"
)

// Static error variables for err113 compliance
var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config is the configuration of the plebnames binary.
type Config struct {
	// Network selects address parameters: mainnet, testnet or regtest.
	Network types.Network `yaml:"network"`

	Explorer ExplorerConfig `yaml:"explorer"`
	Resolver ResolverConfig `yaml:"resolver"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Server   ServerConfig   `yaml:"server"`
	Tx       TxConfig       `yaml:"tx"`
	Log      LogConfig      `yaml:"log"`
}

// ExplorerConfig configures the Esplora client.
type ExplorerConfig struct {
	// BaseURL of the Esplora REST API, e.g. https://blockstream.info/api
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	RetryCount int           `yaml:"retry_count"`
}

// ResolverConfig configures resolution.
type ResolverConfig struct {
	// MaxTransfers bounds ownership transitions per resolution.
	MaxTransfers int           `yaml:"max_transfers"`
	Timeout      time.Duration `yaml:"timeout"`
	// CacheTTL of resolutions; negative disables the cache.
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	Concurrency int           `yaml:"concurrency"`
}

// MongoConfig configures snapshot and sighting storage.
// An empty URI keeps everything in memory.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// TxConfig configures transaction templates.
type TxConfig struct {
	ClaimValue uint64 `yaml:"claim_value"`
	Fee        uint64 `yaml:"fee"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Network: types.NetworkMainnet,
		Explorer: ExplorerConfig{
			BaseURL:    "https://blockstream.info/api",
			Timeout:    15 * time.Second,
			RetryCount: 2,
		},
		Resolver: ResolverConfig{
			MaxTransfers: 64,
			Timeout:      30 * time.Second,
			CacheTTL:     time.Minute,
			Concurrency:  4,
		},
		Mongo: MongoConfig{
			Database: "plebnames",
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
		Tx: TxConfig{
			ClaimValue: 546,
			Fee:        2000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file at path, or at PLEBNAMES_CONFIG when path is empty,
// applies environment overrides and validates the result. With neither set
// the defaults are used.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile merges a YAML file into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator supplied
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv applies the PLEBNAMES_* overrides.
func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvExplorerURL); v != "" {
		c.Explorer.BaseURL = v
	}
	if v := getenv(EnvNetwork); v != "" {
		c.Network = types.Network(strings.ToLower(v))
	}
	if v := getenv(EnvMongoURI); v != "" {
		c.Mongo.URI = v
	}
	if v := getenv(EnvListenAddr); v != "" {
		c.Server.ListenAddr = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	if _, err := names.NetParams(c.Network); err != nil {
		errs = append(errs, err)
	}
	if c.Explorer.BaseURL == "" {
		errs = append(errs, errors.New("explorer.base_url is required")) //nolint:err113 // aggregated below
	}
	if c.Explorer.RetryCount < 0 {
		errs = append(errs, errors.New("explorer.retry_count must not be negative")) //nolint:err113 // aggregated below
	}
	if c.Resolver.MaxTransfers <= 0 {
		errs = append(errs, errors.New("resolver.max_transfers must be positive")) //nolint:err113 // aggregated below
	}
	if c.Resolver.Concurrency <= 0 {
		errs = append(errs, errors.New("resolver.concurrency must be positive")) //nolint:err113 // aggregated below
	}
	if c.Mongo.URI != "" && c.Mongo.Database == "" {
		errs = append(errs, errors.New("mongo.database is required with mongo.uri")) //nolint:err113 // aggregated below
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)) //nolint:err113 // aggregated below
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
