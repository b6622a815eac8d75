package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config is the persistent application configuration
type Config struct {
	Crawl CrawlConfig `json:"crawl"`
	Probe ProbeConfig `json:"probe"`
	Dedup DedupConfig `json:"dedup"`
	Share ShareConfig `json:"share"`
}

// CrawlConfig holds sequence crawl settings
type CrawlConfig struct {
	Budget        int    `json:"budget"`         // images per pass
	Direction     string `json:"direction"`      // "both", "prev" or "next"
	MissTolerance int    `json:"miss_tolerance"` // consecutive misses before a direction is exhausted
	MinDelayMs    int    `json:"min_delay_ms"`
	MaxDelayMs    int    `json:"max_delay_ms"`
}

// ProbeConfig holds existence check settings
type ProbeConfig struct {
	TimeoutMs         int     `json:"timeout_ms"`
	CacheTTLSeconds   int     `json:"cache_ttl_seconds"`
	CacheSize         int     `json:"cache_size"`
	RequestsPerSecond float64 `json:"requests_per_second"` // 0 = unlimited
	UserAgent         string  `json:"user_agent"`
}

// DedupConfig holds duplicate detection settings
type DedupConfig struct {
	HashSize    int     `json:"hash_size"`
	Threshold   float64 `json:"threshold"`
	Concurrency int     `json:"concurrency"`
}

// ShareConfig holds share-link service settings
type ShareConfig struct {
	Endpoint  string `json:"endpoint"`
	TimeoutMs int    `json:"timeout_ms"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Crawl: CrawlConfig{
			Budget:        100,
			Direction:     "both",
			MissTolerance: 2,
			MinDelayMs:    200,
			MaxDelayMs:    500,
		},
		Probe: ProbeConfig{
			TimeoutMs:       3000,
			CacheTTLSeconds: 600,
			CacheSize:       1000,
			UserAgent:       "showmore/0.1 (+https://github.com/abelbrown/showmore)",
		},
		Dedup: DedupConfig{
			HashSize:    18,
			Threshold:   0.95,
			Concurrency: 10,
		},
		Share: ShareConfig{
			Endpoint:  "http://localhost:3000/api/create",
			TimeoutMs: 30000,
		},
	}
}

// Dir returns the showmore data directory
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".showmore")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(Dir(), "config.json")
}

// Load reads config from disk, or returns defaults
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads config from path. A missing file yields defaults.
// Fields absent from the file keep their default values.
// Environment overrides are applied last.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.AutoPopulateFromEnv()
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.AutoPopulateFromEnv()
	return cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes config to path, creating its directory.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// AutoPopulateFromEnv applies SHOWMORE_* environment overrides
func (c *Config) AutoPopulateFromEnv() {
	if v := os.Getenv("SHOWMORE_SHARE_ENDPOINT"); v != "" {
		c.Share.Endpoint = v
	}
	if v := os.Getenv("SHOWMORE_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Crawl.Budget = n
		}
	}
	if v := os.Getenv("SHOWMORE_USER_AGENT"); v != "" {
		c.Probe.UserAgent = v
	}
}

// Durations

func (c CrawlConfig) MinDelay() time.Duration { return ms(c.MinDelayMs) }
func (c CrawlConfig) MaxDelay() time.Duration { return ms(c.MaxDelayMs) }
func (c ProbeConfig) Timeout() time.Duration  { return ms(c.TimeoutMs) }
func (c ShareConfig) Timeout() time.Duration  { return ms(c.TimeoutMs) }

func (c ProbeConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
