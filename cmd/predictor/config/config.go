// Package config loads the predictor's runtime configuration.
//
// Values are layered, later sources overriding earlier ones:
//  1. Built-in defaults
//  2. An optional YAML file (--config-file or CONFIG_FILE)
//  3. Environment variables (LISTEN, DAILY_MODEL_PATH, ...)
//  4. Command-line flags (--listen, --daily-model-path, ...)
//
// Every key has the same name in all layers: the koanf key is the lower-case
// environment variable, and the flag replaces underscores with dashes.
//
// Example usage:
//
//	cfg, err := config.Load(os.Args[1:])
//	if err != nil {
//	    fmt.Fprintln(os.Stderr, err)
//	    os.Exit(2)
//	}
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/HatiCode/ridewise/pkg/features"
	"github.com/HatiCode/ridewise/pkg/tls"
	"github.com/HatiCode/ridewise/pkg/validation"
)

// ConfigFileEnvVar names the environment variable pointing at a YAML file.
const ConfigFileEnvVar = "CONFIG_FILE"

// Config holds all predictor configuration.
type Config struct {
	Listen     string `koanf:"listen" validate:"required"`
	GRPCListen string `koanf:"grpc_listen"`
	LogLevel   string `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogFormat  string `koanf:"log_format" validate:"oneof=text json"`

	DailyModelPath  string        `koanf:"daily_model_path"`
	HourlyModelPath string        `koanf:"hourly_model_path"`
	DailyModelURL   string        `koanf:"daily_model_url" validate:"omitempty,url"`
	HourlyModelURL  string        `koanf:"hourly_model_url" validate:"omitempty,url"`
	BYOMValuePath   string        `koanf:"byom_value_path" validate:"required"`
	BYOMTimeout     time.Duration `koanf:"byom_timeout" validate:"gt=0"`
	WeatherPenalty  bool          `koanf:"weather_penalty"`

	Storage       string        `koanf:"storage" validate:"oneof=memory redis postgres"`
	MemoryTTL     time.Duration `koanf:"memory_ttl" validate:"min=0"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db" validate:"min=0"`
	RedisTTL      time.Duration `koanf:"redis_ttl" validate:"min=0"`
	PostgresDSN   string        `koanf:"postgres_dsn"`

	JWTSecret      string        `koanf:"jwt_secret"`
	CORSOrigins    []string      `koanf:"cors_origins"`
	RateLimit      int           `koanf:"rate_limit" validate:"min=0"`
	RateWindow     time.Duration `koanf:"rate_window" validate:"gt=0"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"min=0"`
	MaxBodyBytes   int64         `koanf:"max_body_bytes" validate:"gt=0"`

	TLSEnabled  bool   `koanf:"tls_enabled"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
	TLSCAFile   string `koanf:"tls_ca_file"`

	ConfigFile string `koanf:"config_file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:         ":8080",
		LogLevel:       "info",
		LogFormat:      "text",
		BYOMValuePath:  "prediction",
		BYOMTimeout:    5 * time.Second,
		WeatherPenalty: true,
		Storage:        "memory",
		RedisAddr:      "localhost:6379",
		RedisTTL:       30 * 24 * time.Hour,
		CORSOrigins:    []string{"*"},
		RateLimit:      60,
		RateWindow:     time.Minute,
		RequestTimeout: 5 * time.Second,
		MaxBodyBytes:   1 << 20,
	}
}

// TLS returns the listener TLS settings.
func (c *Config) TLS() tls.Config {
	return tls.Config{
		Enabled:  c.TLSEnabled,
		CertFile: c.TLSCertFile,
		KeyFile:  c.TLSKeyFile,
		CAFile:   c.TLSCAFile,
	}
}

// ModelPath returns the artifact path configured for v.
func (c *Config) ModelPath(v features.Variant) string {
	if v == features.Hourly {
		return c.HourlyModelPath
	}
	return c.DailyModelPath
}

// ModelURL returns the BYOM endpoint configured for v.
func (c *Config) ModelURL(v features.Variant) string {
	if v == features.Hourly {
		return c.HourlyModelURL
	}
	return c.DailyModelURL
}

// Validate checks enums and ranges, then the cross-field requirements.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}

	var errs []error
	for _, v := range []features.Variant{features.Daily, features.Hourly} {
		if c.ModelPath(v) == "" && c.ModelURL(v) == "" {
			errs = append(errs, fmt.Errorf("%s model: set %s_MODEL_PATH or %s_MODEL_URL",
				v, strings.ToUpper(string(v)), strings.ToUpper(string(v))))
		}
	}

	switch c.Storage {
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("storage redis requires REDIS_ADDR"))
		}
	case "postgres":
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("storage postgres requires POSTGRES_DSN"))
		}
	}

	if err := c.TLS().Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// flagDef describes one command-line flag. The koanf key is derived from
// the name.
type flagDef struct {
	name   string
	usage  string
	isBool bool
}

var flagDefs = []flagDef{
	{name: "config-file", usage: "YAML configuration file"},
	{name: "listen", usage: "HTTP listen address"},
	{name: "grpc-listen", usage: "gRPC health listen address (disabled when empty)"},
	{name: "log-level", usage: "Log level: debug, info, warn, error"},
	{name: "log-format", usage: "Log format: text or json"},
	{name: "daily-model-path", usage: "Daily model artifact (JSON)"},
	{name: "hourly-model-path", usage: "Hourly model artifact (JSON)"},
	{name: "daily-model-url", usage: "Daily BYOM endpoint (overrides the artifact)"},
	{name: "hourly-model-url", usage: "Hourly BYOM endpoint (overrides the artifact)"},
	{name: "byom-value-path", usage: "gjson path of the prediction in BYOM responses"},
	{name: "byom-timeout", usage: "BYOM request timeout"},
	{name: "weather-penalty", usage: "Apply the weather penalty to predictions", isBool: true},
	{name: "storage", usage: "Prediction log backend: memory, redis or postgres"},
	{name: "memory-ttl", usage: "Drop in-memory prediction logs older than this (0 keeps them)"},
	{name: "redis-addr", usage: "Redis server address"},
	{name: "redis-password", usage: "Redis password"},
	{name: "redis-db", usage: "Redis database number"},
	{name: "redis-ttl", usage: "Redis key TTL for prediction logs"},
	{name: "postgres-dsn", usage: "Postgres connection string"},
	{name: "jwt-secret", usage: "HS256 secret for bearer tokens (identity disabled when empty)"},
	{name: "cors-origins", usage: "Comma-separated allowed CORS origins"},
	{name: "rate-limit", usage: "Prediction requests per window per client IP (0 disables)"},
	{name: "rate-window", usage: "Rate limit window"},
	{name: "request-timeout", usage: "Per-request timeout (0 disables)"},
	{name: "max-body-bytes", usage: "Maximum request body size"},
	{name: "tls-enabled", usage: "Enable TLS for the HTTP and gRPC listeners", isBool: true},
	{name: "tls-cert-file", usage: "TLS certificate file"},
	{name: "tls-key-file", usage: "TLS private key file"},
	{name: "tls-ca-file", usage: "TLS CA certificate file for client verification"},
}

func flagKey(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

func newFlagSet(output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("predictor", flag.ContinueOnError)
	fs.SetOutput(output)
	for _, def := range flagDefs {
		if def.isBool {
			fs.Bool(def.name, false, def.usage)
			continue
		}
		fs.String(def.name, "", def.usage)
	}
	return fs
}

// Load builds the configuration from defaults, the optional config file, the
// process environment and args, then validates it.
func Load(args []string) (*Config, error) {
	return load(args, os.Stderr)
}

func load(args []string, output io.Writer) (*Config, error) {
	fs := newFlagSet(output)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path := fs.Lookup("config-file").Value.String()
	if path == "" {
		path = os.Getenv(ConfigFileEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Only variables naming a known key are taken; the rest of the
	// environment is ignored.
	known := k.All()
	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		key = strings.ToLower(key)
		if _, ok := known[key]; !ok {
			return "", nil
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var setErr error
	fs.Visit(func(f *flag.Flag) {
		if err := k.Set(flagKey(f.Name), f.Value.String()); err != nil && setErr == nil {
			setErr = fmt.Errorf("flag --%s: %w", f.Name, err)
		}
	})
	if setErr != nil {
		return nil, setErr
	}

	if err := splitList(k, "cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.ConfigFile = path

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// splitList turns a comma-separated string value at key into a trimmed
// string slice.
func splitList(k *koanf.Koanf, key string) error {
	s, ok := k.Get(key).(string)
	if !ok {
		return nil
	}

	parts := strings.Split(s, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	if err := k.Set(key, list); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}
