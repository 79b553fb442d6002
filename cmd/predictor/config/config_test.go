package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HatiCode/ridewise/pkg/features"
)

func loadTest(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	return load(args, io.Discard)
}

func withModels(t *testing.T) {
	t.Helper()
	t.Setenv("DAILY_MODEL_PATH", "daily.json")
	t.Setenv("HOURLY_MODEL_PATH", "hourly.json")
}

func TestLoad_Defaults(t *testing.T) {
	withModels(t)

	cfg, err := loadTest(t)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Listen != ":8080" {
		t.Errorf("Listen = %q, want :8080", cfg.Listen)
	}
	if cfg.Storage != "memory" {
		t.Errorf("Storage = %q, want memory", cfg.Storage)
	}
	if !cfg.WeatherPenalty {
		t.Error("WeatherPenalty should default to true")
	}
	if cfg.BYOMTimeout != 5*time.Second {
		t.Errorf("BYOMTimeout = %v, want 5s", cfg.BYOMTimeout)
	}
	if cfg.RateLimit != 60 || cfg.RateWindow != time.Minute {
		t.Errorf("rate limit = %d/%v, want 60/1m", cfg.RateLimit, cfg.RateWindow)
	}
	if cfg.MaxBodyBytes != 1<<20 {
		t.Errorf("MaxBodyBytes = %d, want 1MiB", cfg.MaxBodyBytes)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins = %v, want [*]", cfg.CORSOrigins)
	}
	if cfg.ModelPath(features.Daily) != "daily.json" || cfg.ModelPath(features.Hourly) != "hourly.json" {
		t.Errorf("unexpected model paths %q %q", cfg.DailyModelPath, cfg.HourlyModelPath)
	}
}

func TestLoad_Environment(t *testing.T) {
	withModels(t)
	t.Setenv("LISTEN", ":9090")
	t.Setenv("WEATHER_PENALTY", "false")
	t.Setenv("RATE_LIMIT", "10")
	t.Setenv("REQUEST_TIMEOUT", "250ms")
	t.Setenv("MEMORY_TTL", "2h")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("HOURLY_MODEL_URL", "http://byom:8000/predict")

	cfg, err := loadTest(t)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Listen != ":9090" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.WeatherPenalty {
		t.Error("WeatherPenalty should be false")
	}
	if cfg.RateLimit != 10 {
		t.Errorf("RateLimit = %d", cfg.RateLimit)
	}
	if cfg.RequestTimeout != 250*time.Millisecond {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.MemoryTTL != 2*time.Hour {
		t.Errorf("MemoryTTL = %v", cfg.MemoryTTL)
	}
	want := []string{"https://a.example", "https://b.example"}
	if strings.Join(cfg.CORSOrigins, "|") != strings.Join(want, "|") {
		t.Errorf("CORSOrigins = %v, want %v", cfg.CORSOrigins, want)
	}
	if cfg.ModelURL(features.Hourly) != "http://byom:8000/predict" {
		t.Errorf("HourlyModelURL = %q", cfg.HourlyModelURL)
	}
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	withModels(t)
	t.Setenv("LISTEN", ":9090")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := loadTest(t, "--listen", ":7070", "--weather-penalty=false", "--redis-db", "3")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Listen != ":7070" {
		t.Errorf("Listen = %q, want :7070", cfg.Listen)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.WeatherPenalty {
		t.Error("WeatherPenalty should be false")
	}
	if cfg.RedisDB != 3 {
		t.Errorf("RedisDB = %d, want 3", cfg.RedisDB)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ridewise.yaml")
	yaml := `listen: ":6060"
daily_model_path: /models/daily.json
hourly_model_path: /models/hourly.json
storage: redis
redis_addr: redis:6379
cors_origins:
  - https://app.example
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STORAGE", "memory")

	cfg, err := loadTest(t, "--config-file", path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Listen != ":6060" {
		t.Errorf("Listen = %q, want :6060", cfg.Listen)
	}
	if cfg.Storage != "memory" {
		t.Errorf("environment should override the file, got Storage = %q", cfg.Storage)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "https://app.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
}

func TestLoad_ConfigFileFromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	os.WriteFile(path, []byte("daily_model_path: d.json\nhourly_model_path: h.json\n"), 0o600)
	t.Setenv(ConfigFileEnvVar, path)

	cfg, err := loadTest(t)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DailyModelPath != "d.json" {
		t.Errorf("DailyModelPath = %q", cfg.DailyModelPath)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	withModels(t)
	if _, err := loadTest(t, "--config-file", filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_UnknownFlag(t *testing.T) {
	if _, err := loadTest(t, "--workload", "x"); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.DailyModelPath = "d.json"
		c.HourlyModelPath = "h.json"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"byom instead of path", func(c *Config) { c.HourlyModelPath = ""; c.HourlyModelURL = "http://m/predict" }, ""},
		{"missing daily model", func(c *Config) { c.DailyModelPath = "" }, "DAILY_MODEL_PATH"},
		{"bad model url", func(c *Config) { c.DailyModelURL = "not a url" }, "DailyModelURL"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "LogLevel"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LogFormat"},
		{"bad storage", func(c *Config) { c.Storage = "badger" }, "Storage"},
		{"redis without addr", func(c *Config) { c.Storage = "redis"; c.RedisAddr = "" }, "REDIS_ADDR"},
		{"postgres without dsn", func(c *Config) { c.Storage = "postgres" }, "POSTGRES_DSN"},
		{"negative rate limit", func(c *Config) { c.RateLimit = -1 }, "RateLimit"},
		{"zero body limit", func(c *Config) { c.MaxBodyBytes = 0 }, "MaxBodyBytes"},
		{"tls without files", func(c *Config) { c.TLSEnabled = true }, "cert/key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
