package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"mspro-labs/flat-watch/internal/aggregate"
)

// AppConfig holds infrastructure config from standard env vars
type AppConfig struct {
	DBPath     string
	ConfigPath string // Path to the YAML config file
	OutputDir  string
}

// SiteConfig holds everything specific to one sales exercise (from YAML).
// It is loaded once at startup and only read afterwards.
type SiteConfig struct {
	Name           string            `yaml:"name"`
	SearchURL      string            `yaml:"search_url"`
	WarmupURL      string            `yaml:"warmup_url"`
	Fetcher        string            `yaml:"fetcher"`
	UserAgent      string            `yaml:"user_agent"`
	RequestTimeout time.Duration     `yaml:"request_timeout"`
	MaxDelay       time.Duration     `yaml:"max_delay"`
	Query          map[string]string `yaml:"query"`
	FlatTypes      []string          `yaml:"flat_types"`
	Blocks         []Block           `yaml:"blocks"`
	ExpectedCounts []ExpectedCount   `yaml:"expected_counts"`
}

// Block is one building and the flat types on sale in it.
type Block struct {
	Name      string   `yaml:"name"`
	Contract  string   `yaml:"contract"`
	FlatTypes []string `yaml:"flat_types"`
}

// ExpectedCount is the known number of units of one flat type.
type ExpectedCount struct {
	FlatType string `yaml:"flat_type"`
	Count    int    `yaml:"count"`
}

// GetAppConfig reads basic infrastructure settings from environment variables.
// A .env file in the working directory is honoured when present.
func GetAppConfig() (AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return AppConfig{}, fmt.Errorf("failed to load .env: %w", err)
	}

	dbPath := os.Getenv("DB_PATH")
	configPath := os.Getenv("CONFIG_PATH")
	outputDir := os.Getenv("OUTPUT_DIR")

	// Set defaults if not provided
	if dbPath == "" {
		dbPath = "./local-data/flat-watch.db"
	}
	if configPath == "" {
		configPath = "config.yaml"
	}
	if outputDir == "" {
		outputDir = "data"
	}

	return AppConfig{
		DBPath:     dbPath,
		ConfigPath: configPath,
		OutputDir:  outputDir,
	}, nil
}

// LoadSiteConfig reads and validates the YAML file that configures the scraper.
func LoadSiteConfig(path string) (*SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file at '%s': %w", path, err)
	}
	cfg, err := ParseSiteConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config file '%s': %w", path, err)
	}
	log.Printf("Loaded site config '%s': %d blocks, %d flat types", cfg.Name, len(cfg.Blocks), len(cfg.FlatTypes))
	return cfg, nil
}

// ParseSiteConfig decodes YAML bytes, fills defaults and validates the result.
func ParseSiteConfig(data []byte) (*SiteConfig, error) {
	var cfg SiteConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if cfg.Name == "" {
		cfg.Name = "availability"
	}
	if cfg.Fetcher == "" {
		cfg.Fetcher = "http"
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the tables reference each other consistently.
func (c *SiteConfig) Validate() error {
	if c.SearchURL == "" {
		return errors.New("search_url is required")
	}
	if _, err := url.Parse(c.SearchURL); err != nil {
		return fmt.Errorf("invalid search_url: %w", err)
	}
	if c.MaxDelay < 0 {
		return errors.New("max_delay must not be negative")
	}
	if len(c.Blocks) == 0 {
		return errors.New("at least one block is required")
	}

	declared := make(map[string]bool, len(c.FlatTypes))
	for _, ft := range c.FlatTypes {
		if declared[ft] {
			return fmt.Errorf("flat type '%s' declared twice", ft)
		}
		declared[ft] = true
	}

	seen := make(map[string]bool, len(c.Blocks))
	for _, b := range c.Blocks {
		if b.Name == "" {
			return errors.New("block with empty name")
		}
		if seen[b.Name] {
			return fmt.Errorf("block '%s' listed twice", b.Name)
		}
		seen[b.Name] = true
		if b.Contract == "" {
			return fmt.Errorf("block '%s' has no contract", b.Name)
		}
		for _, ft := range b.FlatTypes {
			if !declared[ft] {
				return fmt.Errorf("block '%s' uses undeclared flat type '%s'", b.Name, ft)
			}
		}
	}
	return nil
}

// BuildSearchURL builds the availability query for one block and flat type.
func (c *SiteConfig) BuildSearchURL(b Block, flatType string) (string, error) {
	u, err := url.Parse(c.SearchURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range c.Query {
		q.Set(k, v)
	}
	q.Set("Block", b.Name)
	q.Set("Flat", flatType)
	q.Set("Contract", b.Contract)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Expected returns the oracle in sorted-key order.
func (c *SiteConfig) Expected() []aggregate.Count {
	out := make([]aggregate.Count, len(c.ExpectedCounts))
	for i, e := range c.ExpectedCounts {
		out[i] = aggregate.Count{FlatType: e.FlatType, Count: e.Count}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FlatType < out[j].FlatType
	})
	return out
}
