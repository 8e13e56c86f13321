// Package config provides configuration loading and validation for the feed API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Storage
	DatabaseURL string `koanf:"database_url"`
	RedisURL    string `koanf:"redis_url"` // Optional; enables the shared rate-limit store

	// JWT validation. The previous secret keeps tokens valid during rotation.
	JWTSecret         string `koanf:"jwt_secret"`
	JWTPreviousSecret string `koanf:"jwt_previous_secret"`

	// Ranking and feed composition
	RankingCalibrationPath string `koanf:"ranking_calibration_path"`
	DiscoveryLimit         int    `koanf:"discovery_limit"`
	FeedExcludeOwnPosts    bool   `koanf:"feed_exclude_own_posts"`

	// Rate limiting
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`

	// Tracing
	TracingEnabled    bool    `koanf:"tracing_enabled"`
	TracingExporter   string  `koanf:"tracing_exporter"`
	OTLPEndpoint      string  `koanf:"otlp_endpoint"`
	TracingSampleRate float64 `koanf:"tracing_sample_rate"`

	// HTTP surface. An empty origin list means same-origin only.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
	ProfilingEnabled   bool     `koanf:"profiling_enabled"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL     = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret       = errors.New("JWT_SECRET is required")
	ErrInvalidPort            = errors.New("PORT must be a valid integer")
	ErrInvalidNumber          = errors.New("value must be a valid number")
	ErrInvalidDuration        = errors.New("value must be a valid duration")
	ErrInvalidDiscoveryLimit  = errors.New("DISCOVERY_LIMIT must be positive")
	ErrInvalidRateLimit       = errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	ErrInvalidTracingExporter = errors.New("TRACING_EXPORTER must be otlp-http or otlp-grpc")
	ErrInvalidSampleRate      = errors.New("TRACING_SAMPLE_RATE must be between 0 and 1")
)

// Default values for non-secret configuration.
const (
	DefaultPort                   = 8080
	DefaultEnv                    = "development"
	DefaultRankingCalibrationPath = "configs/ranking.calibration.json"
	DefaultDiscoveryLimit         = 50
	DefaultRateLimitRequests      = 100
	DefaultRateLimitWindow        = time.Minute
	DefaultTracingExporter        = "otlp-http"
	DefaultTracingSampleRate      = 0.1
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	collect := func(err error) {
		if err != nil {
			loadErrs = append(loadErrs, err)
		}
	}

	// Try GRATITUDE_PORT first, then PORT
	port, err := getEnvIntOrDefaultMulti([]string{"GRATITUDE_PORT", "PORT"}, k.Int("port"), DefaultPort)
	collect(err)

	discoveryLimit, err := getEnvIntOrDefault("DISCOVERY_LIMIT", k.Int("discovery_limit"), DefaultDiscoveryLimit)
	collect(err)

	rateLimitRequests, err := getEnvIntOrDefault("RATE_LIMIT_REQUESTS", k.Int("rate_limit_requests"), DefaultRateLimitRequests)
	collect(err)

	rateLimitWindow, err := getEnvDurationOrDefault("RATE_LIMIT_WINDOW", k.String("rate_limit_window"), DefaultRateLimitWindow)
	collect(err)

	sampleRate, err := getEnvFloatOrDefault("TRACING_SAMPLE_RATE", k, "tracing_sample_rate", DefaultTracingSampleRate)
	collect(err)

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:                   port,
		Env:                    getEnvOrDefaultMulti([]string{"GRATITUDE_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:            getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:               getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		JWTSecret:              getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		JWTPreviousSecret:      getEnvOrKoanf("JWT_PREVIOUS_SECRET", k, "jwt_previous_secret"),
		RankingCalibrationPath: getEnvOrDefault("RANKING_CALIBRATION_PATH", k.String("ranking_calibration_path"), DefaultRankingCalibrationPath),
		DiscoveryLimit:         discoveryLimit,
		FeedExcludeOwnPosts:    getEnvBoolOrDefault("FEED_EXCLUDE_OWN_POSTS", k, "feed_exclude_own_posts", false),
		RateLimitRequests:      rateLimitRequests,
		RateLimitWindow:        rateLimitWindow,
		TracingEnabled:         getEnvBoolOrDefault("TRACING_ENABLED", k, "tracing_enabled", false),
		TracingExporter:        getEnvOrDefault("TRACING_EXPORTER", k.String("tracing_exporter"), DefaultTracingExporter),
		OTLPEndpoint:           getEnvOrKoanf("OTLP_ENDPOINT", k, "otlp_endpoint"),
		TracingSampleRate:      sampleRate,
		CORSAllowedOrigins:     getEnvListOrKoanf("CORS_ALLOWED_ORIGINS", k, "cors_allowed_origins"),
		ProfilingEnabled:       getEnvBoolOrDefault("PROFILING_ENABLED", k, "profiling_enabled", false),
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvListOrKoanf reads a comma-separated list from the environment, or a
// YAML list from the file. Blank entries are dropped.
func getEnvListOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) []string {
	raw := k.Strings(koanfKey)
	if val := os.Getenv(envKey); val != "" {
		raw = strings.Split(val, ",")
	}
	var out []string
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
// A zero value from a YAML file falls back to the default.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, ErrInvalidNumber)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns an error if any environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the
// koanf value when the key exists, or default. An explicit 0 in the file is honored.
func getEnvFloatOrDefault(envKey string, k *koanf.Koanf, koanfKey string, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, ErrInvalidNumber)
		}
		return f, nil
	}
	if k.Exists(koanfKey) {
		return k.Float64(koanfKey), nil
	}
	return defaultVal, nil
}

// getEnvDurationOrDefault parses a Go duration string ("90s", "1m") from the
// environment or the file value, falling back to default.
func getEnvDurationOrDefault(envKey string, koanfVal string, defaultVal time.Duration) (time.Duration, error) {
	raw := os.Getenv(envKey)
	if raw == "" {
		raw = koanfVal
	}
	if raw == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", envKey, ErrInvalidDuration)
	}
	return d, nil
}

// getEnvBoolOrDefault reads a boolean flag. Env var takes precedence over file config;
// unrecognized env values are ignored.
func getEnvBoolOrDefault(envKey string, k *koanf.Koanf, koanfKey string, defaultVal bool) bool {
	result := defaultVal
	if k.Exists(koanfKey) {
		result = k.Bool(koanfKey)
	}
	if val := os.Getenv(envKey); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			result = true
		case "false", "0", "no", "off":
			result = false
		}
	}
	return result
}

// Validate checks that all required configuration values are present and in range.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.DiscoveryLimit <= 0 {
		errs = append(errs, ErrInvalidDiscoveryLimit)
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		errs = append(errs, ErrInvalidRateLimit)
	}

	// Tracing settings only matter when tracing is on.
	if c.TracingEnabled {
		if c.TracingExporter != "otlp-http" && c.TracingExporter != "otlp-grpc" {
			errs = append(errs, ErrInvalidTracingExporter)
		}
		if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
			errs = append(errs, ErrInvalidSampleRate)
		}
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                     fmt.Sprintf("%d", c.Port),
		"env":                      c.Env,
		"database_url":             maskDatabaseURL(c.DatabaseURL),
		"redis_url":                maskDatabaseURL(c.RedisURL),
		"jwt_secret":               maskSecret(c.JWTSecret),
		"jwt_previous_secret":      maskSecret(c.JWTPreviousSecret),
		"ranking_calibration_path": c.RankingCalibrationPath,
		"discovery_limit":          fmt.Sprintf("%d", c.DiscoveryLimit),
		"feed_exclude_own_posts":   fmt.Sprintf("%t", c.FeedExcludeOwnPosts),
		"rate_limit_requests":      fmt.Sprintf("%d", c.RateLimitRequests),
		"rate_limit_window":        c.RateLimitWindow.String(),
		"tracing_enabled":          fmt.Sprintf("%t", c.TracingEnabled),
		"tracing_exporter":         c.TracingExporter,
		"otlp_endpoint":            c.OTLPEndpoint,
		"tracing_sample_rate":      strconv.FormatFloat(c.TracingSampleRate, 'f', -1, 64),
		"cors_allowed_origins":     strings.Join(c.CORSAllowedOrigins, ","),
		"profiling_enabled":        fmt.Sprintf("%t", c.ProfilingEnabled),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL.
// Works for postgres://, postgresql:// and redis:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
