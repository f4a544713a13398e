package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the single source of truth for every tunable in the pipeline.
// It is built once from the configuration file and passed by value into
// component constructors; nothing mutates it afterwards.
type Config struct {
	Search    Search    `mapstructure:"search"`
	Staging   Staging   `mapstructure:"staging"`
	Database  Database  `mapstructure:"database"`
	RateLimit RateLimit `mapstructure:"rate-limit"`
	Embedding Embedding `mapstructure:"embedding"`
	Resume    Resume    `mapstructure:"resume"`
}

// Search describes what to ask the job-search API for.
type Search struct {
	Terms        []string `mapstructure:"terms"`
	Country      string   `mapstructure:"country"`
	DatePosted   string   `mapstructure:"date-posted"`
	RemoteOnly   bool     `mapstructure:"remote-only"`
	Pages        int      `mapstructure:"pages"`
	PagesPerCall int      `mapstructure:"pages-per-call"`
	APIURL       string   `mapstructure:"api-url"`
	APIHost      string   `mapstructure:"api-host"`
	APIKeyFile   string   `mapstructure:"api-key-file"`
}

// Staging holds the directories for the durable intermediate files between
// pipeline stages.
type Staging struct {
	RawDir       string `mapstructure:"raw-dir"`
	ProcessedDir string `mapstructure:"processed-dir"`
}

type Database struct {
	URL string `mapstructure:"url"`
}

// RateLimit tunes the search client's retry/backoff machine and the shared
// token bucket consulted by all page-fetch workers.
type RateLimit struct {
	MaxRetries        int           `mapstructure:"max-retries"`
	InitialBackoff    time.Duration `mapstructure:"initial-backoff"`
	MaxBackoff        time.Duration `mapstructure:"max-backoff"`
	RequestsPerSecond float64       `mapstructure:"requests-per-second"`
	Workers           int           `mapstructure:"workers"`
}

// Embedding selects and tunes the embedding provider.
type Embedding struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	Endpoint   string        `mapstructure:"endpoint"`
	APIKeyFile string        `mapstructure:"api-key-file"`
	Delay      time.Duration `mapstructure:"delay"`
	MaxChars   int           `mapstructure:"max-chars"`
}

type Resume struct {
	File string `mapstructure:"file"`
}

const (
	defaultAPIURL  = "https://jsearch.p.rapidapi.com/search"
	defaultAPIHost = "jsearch.p.rapidapi.com"

	defaultEndpoint = "https://api.openai.com/v1/embeddings"
	defaultModel    = "text-embedding-3-small"
)

// ApplyDefaults fills every zero-valued tunable with its documented default.
func (c *Config) ApplyDefaults() {
	if c.Search.Pages == 0 {
		c.Search.Pages = 5
	}
	if c.Search.PagesPerCall == 0 {
		c.Search.PagesPerCall = 1
	}
	if c.Search.Country == "" {
		c.Search.Country = "us"
	}
	if c.Search.DatePosted == "" {
		c.Search.DatePosted = "today"
	}
	if c.Search.APIURL == "" {
		c.Search.APIURL = defaultAPIURL
	}
	if c.Search.APIHost == "" {
		c.Search.APIHost = defaultAPIHost
	}

	if c.Staging.RawDir == "" {
		c.Staging.RawDir = "temp/data/raw"
	}
	if c.Staging.ProcessedDir == "" {
		c.Staging.ProcessedDir = "temp/data/processed"
	}

	if c.RateLimit.MaxRetries == 0 {
		c.RateLimit.MaxRetries = 5
	}
	if c.RateLimit.InitialBackoff == 0 {
		c.RateLimit.InitialBackoff = time.Second
	}
	if c.RateLimit.MaxBackoff == 0 {
		c.RateLimit.MaxBackoff = 60 * time.Second
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 2
	}
	if c.RateLimit.Workers == 0 {
		c.RateLimit.Workers = 3
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Endpoint == "" {
		c.Embedding.Endpoint = defaultEndpoint
	}
	if c.Embedding.Model == "" && c.Embedding.Provider == "openai" {
		c.Embedding.Model = defaultModel
	}
	if c.Embedding.Delay == 0 {
		c.Embedding.Delay = 250 * time.Millisecond
	}
	if c.Embedding.MaxChars == 0 {
		c.Embedding.MaxChars = 8000
	}
}

// Validate reports the first problem that would prevent a run.
func (c *Config) Validate() error {
	if len(c.Search.Terms) == 0 {
		return errors.New("at least one search term is required under search.terms")
	}
	if c.Database.URL == "" {
		return errors.New("database url is required under database.url")
	}

	switch c.Embedding.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}

	if c.RateLimit.InitialBackoff > c.RateLimit.MaxBackoff {
		return fmt.Errorf("initial backoff %s exceeds max backoff %s",
			c.RateLimit.InitialBackoff, c.RateLimit.MaxBackoff)
	}

	return nil
}
