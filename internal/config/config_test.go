package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/config"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SERVER_PORT", "SERVER_HOST", "CORS_ALLOWED_ORIGINS", "LOG_LEVEL", "LOG_FORMAT",
		"FINMIND_TOKEN", "FINMIND_BASE_URL", "TWSE_BASE_URL", "YAHOO_BASE_URL", "PROVIDER_TIMEOUT",
		"SPAN_MAX_DAYS", "SPAN_MIN_DAYS", "RETRY_ATTEMPTS", "RETRY_BASE_DELAY", "RETRY_MAX_DELAY",
		"SPAN_COOLDOWN", "REQUEST_TIMEOUT", "DIVIDEND_LOOKBACK_DAYS", "ENABLE_BACK_ADJUSTED_FEED",
	} {
		t.Setenv(key, "")
	}
}

// TestLoad_Defaults validates the configuration used when nothing is set.
//
// WHY: The span constants are tuned to what the upstream providers tolerate;
// an accidental change to a default silently changes request volume.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.Server.Addr != "localhost:5001" {
		t.Errorf("Expected localhost:5001, got %s", cfg.Server.Addr)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 {
		t.Errorf("Expected default origins, got %v", cfg.CORS.AllowedOrigins)
	}
	e := cfg.Engine
	if e.SpanMaxDays != 120 || e.SpanMinDays != 30 || e.RetryAttempts != 3 {
		t.Errorf("unexpected span defaults %+v", e)
	}
	if e.RetryBaseDelay != 350*time.Millisecond || e.RetryMaxDelay != 1800*time.Millisecond || e.SpanCooldown != 160*time.Millisecond {
		t.Errorf("unexpected delay defaults %+v", e)
	}
	if e.RequestTimeout != 25*time.Second || e.DividendLookbackDays != 30 || !e.BackAdjustedFeed {
		t.Errorf("unexpected composition defaults %+v", e)
	}
	if cfg.Providers.FinMindToken != "" {
		t.Error("Expected no token by default")
	}

	opts := e.SpanOptions()
	if opts.MaxSpanDays != 120 || opts.Jitter != 400*time.Millisecond {
		t.Errorf("unexpected span options %+v", opts)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_HOST", "0.0.0.0")
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("FINMIND_TOKEN", "abc")
	t.Setenv("SPAN_MAX_DAYS", "90")
	t.Setenv("RETRY_BASE_DELAY", "1s")
	t.Setenv("ENABLE_BACK_ADJUSTED_FEED", "false")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Server.Addr != "0.0.0.0:8080" {
		t.Errorf("Expected 0.0.0.0:8080, got %s", cfg.Server.Addr)
	}
	if got := strings.Join(cfg.CORS.AllowedOrigins, "|"); got != "https://a.example|https://b.example" {
		t.Errorf("unexpected origins %s", got)
	}
	if cfg.Providers.FinMindToken != "abc" || cfg.Engine.SpanMaxDays != 90 || cfg.Engine.RetryBaseDelay != time.Second {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Engine.BackAdjustedFeed {
		t.Error("Expected back-adjusted feed disabled")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non numeric span", "SPAN_MAX_DAYS", "lots"},
		{"bad duration", "REQUEST_TIMEOUT", "25"},
		{"bad bool", "ENABLE_BACK_ADJUSTED_FEED", "maybe"},
		{"min above max", "SPAN_MIN_DAYS", "500"},
		{"zero attempts", "RETRY_ATTEMPTS", "0"},
		{"negative lookback", "DIVIDEND_LOOKBACK_DAYS", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := config.Load(); err == nil {
				t.Errorf("Expected Load() to fail for %s=%s", tt.key, tt.value)
			} else if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("Expected error to name %s, got %v", tt.key, err)
			}
		})
	}
}
