package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/spanfetch"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	CORS      CORSConfig
	Log       LogConfig
	Providers ProvidersConfig
	Engine    EngineConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig selects the root logger level and output format
type LogConfig struct {
	Level  string
	Format string
}

// ProvidersConfig holds upstream endpoints and credentials
type ProvidersConfig struct {
	FinMindToken   string
	FinMindBaseURL string
	TWSEBaseURL    string
	YahooBaseURL   string
	Timeout        time.Duration // Per HTTP request
}

// EngineConfig tunes span fetching and composition
type EngineConfig struct {
	SpanMaxDays          int
	SpanMinDays          int
	RetryAttempts        int
	RetryBaseDelay       time.Duration
	RetryMaxDelay        time.Duration
	SpanCooldown         time.Duration
	RequestTimeout       time.Duration // Whole composition
	DividendLookbackDays int
	BackAdjustedFeed     bool // Prefer the back-adjusted feed for default requests
}

// SpanOptions returns the span fetcher options derived from the engine settings.
func (e EngineConfig) SpanOptions() spanfetch.Options {
	opts := spanfetch.DefaultOptions()
	opts.MaxSpanDays = e.SpanMaxDays
	opts.MinSpanDays = e.SpanMinDays
	opts.Attempts = e.RetryAttempts
	opts.BaseDelay = e.RetryBaseDelay
	opts.MaxDelay = e.RetryMaxDelay
	opts.Cooldown = e.SpanCooldown
	return opts
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	p := &parser{}
	defaults := spanfetch.DefaultOptions()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{
				"http://localhost:3000",
				"http://localhost",
			}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Providers: ProvidersConfig{
			FinMindToken:   os.Getenv("FINMIND_TOKEN"),
			FinMindBaseURL: getEnv("FINMIND_BASE_URL", ""),
			TWSEBaseURL:    getEnv("TWSE_BASE_URL", ""),
			YahooBaseURL:   getEnv("YAHOO_BASE_URL", ""),
			Timeout:        p.duration("PROVIDER_TIMEOUT", 10*time.Second),
		},
		Engine: EngineConfig{
			SpanMaxDays:          p.integer("SPAN_MAX_DAYS", defaults.MaxSpanDays),
			SpanMinDays:          p.integer("SPAN_MIN_DAYS", defaults.MinSpanDays),
			RetryAttempts:        p.integer("RETRY_ATTEMPTS", defaults.Attempts),
			RetryBaseDelay:       p.duration("RETRY_BASE_DELAY", defaults.BaseDelay),
			RetryMaxDelay:        p.duration("RETRY_MAX_DELAY", defaults.MaxDelay),
			SpanCooldown:         p.duration("SPAN_COOLDOWN", defaults.Cooldown),
			RequestTimeout:       p.duration("REQUEST_TIMEOUT", 25*time.Second),
			DividendLookbackDays: p.integer("DIVIDEND_LOOKBACK_DAYS", 30),
			BackAdjustedFeed:     p.boolean("ENABLE_BACK_ADJUSTED_FEED", true),
		},
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

func (c *Config) validate() error {
	e := c.Engine
	switch {
	case e.SpanMaxDays < 1:
		return fmt.Errorf("SPAN_MAX_DAYS must be positive, got %d", e.SpanMaxDays)
	case e.SpanMinDays < 1 || e.SpanMinDays > e.SpanMaxDays:
		return fmt.Errorf("SPAN_MIN_DAYS must be between 1 and SPAN_MAX_DAYS, got %d", e.SpanMinDays)
	case e.RetryAttempts < 1:
		return fmt.Errorf("RETRY_ATTEMPTS must be positive, got %d", e.RetryAttempts)
	case e.DividendLookbackDays < 0:
		return fmt.Errorf("DIVIDEND_LOOKBACK_DAYS must not be negative, got %d", e.DividendLookbackDays)
	case e.RequestTimeout <= 0:
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvList splits a comma separated variable, dropping blank entries
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// parser records the first malformed variable so Load can report it.
type parser struct {
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
}

func (p *parser) integer(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return n
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return d
}

func (p *parser) boolean(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return b
}
