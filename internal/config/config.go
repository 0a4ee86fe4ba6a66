package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/sporthub/internal/timing"
)

// Config holds everything sporthub reads at startup.
type Config struct {
	APIBaseURL       string
	APIKey           string
	CredentialHeader string
	Timeout          time.Duration

	StaleTime    time.Duration
	CacheTime    time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	RateBurst int

	PollInterval time.Duration
	LogFile      string
	LogLevel     string
	MetricsAddr  string

	PropagateStatus bool
	DedupeRequests  bool

	Endpoints []timing.Endpoint
}

// Environment variables that override the file. Both are read once by Load.
const (
	EnvBaseURL = "SPORTHUB_API_BASE_URL"
	EnvAPIKey  = "SPORTHUB_API_KEY"
)

const (
	defaultConfigPath       = "~/.config/sporthub/config.toml"
	defaultLogFile          = "~/.local/share/sporthub/sporthub.log"
	defaultBaseURL          = "http://localhost:8000"
	defaultCredentialHeader = "X-API-Key"
	defaultTimeout          = 10 * time.Second
	defaultStaleTime        = 5 * time.Minute
	defaultCacheTime        = 10 * time.Minute
	defaultMaxRetries       = 1
	defaultPollInterval     = 5 * time.Second
	defaultLogLevel         = "info"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIBaseURL:       defaultBaseURL,
		CredentialHeader: defaultCredentialHeader,
		Timeout:          defaultTimeout,
		StaleTime:        defaultStaleTime,
		CacheTime:        defaultCacheTime,
		MaxRetries:       defaultMaxRetries,
		PollInterval:     defaultPollInterval,
		LogFile:          mustExpand(defaultLogFile),
		LogLevel:         defaultLogLevel,
		Endpoints:        timing.DefaultEndpoints(),
	}
}

type rawConfig struct {
	APIBaseURL       string            `toml:"api_base_url"`
	APIKey           string            `toml:"api_key"`
	CredentialHeader string            `toml:"credential_header"`
	Timeout          string            `toml:"timeout"`
	StaleTime        string            `toml:"stale_time"`
	CacheTime        string            `toml:"cache_time"`
	MaxRetries       *int              `toml:"max_retries"`
	RetryBackoff     string            `toml:"retry_backoff"`
	RateLimit        float64           `toml:"rate_limit"`
	RateBurst        int               `toml:"rate_burst"`
	PollInterval     string            `toml:"poll_interval"`
	LogFile          string            `toml:"log_file"`
	LogLevel         string            `toml:"log_level"`
	MetricsAddr      string            `toml:"metrics_addr"`
	PropagateStatus  bool              `toml:"propagate_status"`
	DedupeRequests   bool              `toml:"dedupe_requests"`
	Endpoints        []timing.Endpoint `toml:"endpoints"`
}

// Load reads the sporthub config, falling back to defaults when missing, and
// applies the environment overrides.
func Load(path string) (Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

func loadFile(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIBaseURL); v != "" {
		cfg.APIBaseURL = v
	}
	cfg.APIKey = strings.TrimSpace(raw.APIKey)
	if v := strings.TrimSpace(raw.CredentialHeader); v != "" {
		cfg.CredentialHeader = v
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"timeout", raw.Timeout, &cfg.Timeout},
		{"stale_time", raw.StaleTime, &cfg.StaleTime},
		{"cache_time", raw.CacheTime, &cfg.CacheTime},
		{"retry_backoff", raw.RetryBackoff, &cfg.RetryBackoff},
		{"poll_interval", raw.PollInterval, &cfg.PollInterval},
	}
	for _, d := range durations {
		if err := parseDuration(d.name, d.raw, d.dst); err != nil {
			return Config{}, err
		}
	}

	if raw.MaxRetries != nil {
		if *raw.MaxRetries < 0 {
			return Config{}, fmt.Errorf("parse config: max_retries must not be negative")
		}
		cfg.MaxRetries = *raw.MaxRetries
	}
	if raw.RateLimit < 0 || raw.RateBurst < 0 {
		return Config{}, fmt.Errorf("parse config: rate_limit and rate_burst must not be negative")
	}
	cfg.RateLimit = raw.RateLimit
	cfg.RateBurst = raw.RateBurst
	if cfg.RateLimit > 0 && cfg.RateBurst == 0 {
		cfg.RateBurst = 1
	}

	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	cfg.PropagateStatus = raw.PropagateStatus
	cfg.DedupeRequests = raw.DedupeRequests

	if eps := cleanEndpoints(raw.Endpoints); len(eps) > 0 {
		cfg.Endpoints = eps
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		cfg.APIBaseURL = v
	}
	if v, ok := os.LookupEnv(EnvAPIKey); ok {
		cfg.APIKey = strings.TrimSpace(v)
	}
}

// SlogLevel maps LogLevel onto slog, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func parseDuration(name, raw string, dst *time.Duration) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse config: %s: %w", name, err)
	}
	if d < 0 {
		return fmt.Errorf("parse config: %s must not be negative", name)
	}
	*dst = d
	return nil
}

func cleanEndpoints(in []timing.Endpoint) []timing.Endpoint {
	var out []timing.Endpoint
	for _, ep := range in {
		ep.Path = strings.TrimSpace(ep.Path)
		if ep.Path == "" {
			continue
		}
		if !strings.HasPrefix(ep.Path, "/") {
			ep.Path = "/" + ep.Path
		}
		ep.Title = strings.TrimSpace(ep.Title)
		if ep.Title == "" {
			ep.Title = ep.Path
		}
		ep.Description = strings.TrimSpace(ep.Description)
		out = append(out, ep)
	}
	return out
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
