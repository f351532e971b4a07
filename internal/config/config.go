// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Sync backends.
const (
	SyncDrive = "drive"
	SyncGCS   = "gcs"
	SyncS3    = "s3"
	SyncAzure = "azure"
	SyncNone  = "none"
)

// SyncConfig holds cloud sync settings for the store file.
type SyncConfig struct {
	Backend   string // drive, gcs, s3, azure or none (default "none")
	RemoteDir string // remote folder path or key prefix (default "gps_report")
	Schedule  string // cron expression for periodic push; empty disables it

	DriveCredentialsFile string // service account key JSON

	GCSBucket  string
	GCSKeyFile string // empty uses application default credentials

	// S3 fields are optional; nil when not configured.
	S3KeyID     *string
	S3Secret    *string
	S3Endpoint  *string
	S3Region    *string
	S3Bucket    *string
	S3PathStyle bool

	AzureAccountName string
	AzureAccountKey  string
	AzureContainer   string
	AzureEndpoint    string // blob service URL; empty uses the public account URL
}

// Enabled reports whether a sync backend is configured.
func (s *SyncConfig) Enabled() bool {
	return s.Backend != "" && s.Backend != SyncNone
}

// HasS3Config returns true if all required S3 fields are set.
func (s *SyncConfig) HasS3Config() bool {
	return s.S3KeyID != nil && s.S3Secret != nil && s.S3Bucket != nil
}

// Validate checks that the selected backend has its required settings.
func (s *SyncConfig) Validate() error {
	switch s.Backend {
	case "", SyncNone:
		return nil
	case SyncDrive:
		if s.DriveCredentialsFile == "" {
			return fmt.Errorf("DRIVE_CREDENTIALS_FILE is required when SYNC_BACKEND=drive")
		}
	case SyncGCS:
		if s.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required when SYNC_BACKEND=gcs")
		}
	case SyncS3:
		if !s.HasS3Config() {
			return fmt.Errorf("S3_KEY_ID, S3_SECRET and S3_BUCKET are required when SYNC_BACKEND=s3")
		}
	case SyncAzure:
		if s.AzureAccountName == "" || s.AzureAccountKey == "" || s.AzureContainer == "" {
			return fmt.Errorf("AZURE_ACCOUNT_NAME, AZURE_ACCOUNT_KEY and AZURE_CONTAINER are required when SYNC_BACKEND=azure")
		}
	default:
		return fmt.Errorf("unknown SYNC_BACKEND %q: use drive, gcs, s3, azure or none", s.Backend)
	}
	return nil
}

// Config holds the configuration for the report API and cloud sync.
type Config struct {
	DBPath            string // path to the SQLite store file (default "data/gps_data.db")
	MetricsPath       string // metrics glossary JSON (default "glossaries/metrics.json")
	ListenAddr        string // HTTP listen address (default ":8080")
	TLSCertFile       string // TLS certificate file path (optional)
	TLSKeyFile        string // TLS private key file path (optional)
	AllowInsecureHTTP bool   // allow non-TLS listener in production (for trusted TLS termination)
	LogLevel          string // log level: debug, info, warn, error (default "info")
	Env               string // environment: "development" (default) or "production"

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	// Sync holds cloud sync configuration.
	Sync SyncConfig

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables.
// Sync variables are optional; the app can start without them.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		DBPath:            os.Getenv("DB_PATH"),
		MetricsPath:       os.Getenv("METRICS_PATH"),
		ListenAddr:        os.Getenv("LISTEN_ADDR"),
		TLSCertFile:       os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:        os.Getenv("TLS_KEY_FILE"),
		AllowInsecureHTTP: parseBoolEnvDefault("ALLOW_INSECURE_HTTP", false),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		Env:               os.Getenv("ENV"),
	}

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = compactNonEmpty(splitTrim(v))
	}

	cfg.Sync = loadSyncEnv()

	// Defaults
	if cfg.DBPath == "" {
		cfg.DBPath = "data/gps_data.db"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "glossaries/metrics.json"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return nil, fmt.Errorf("both TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	if err := cfg.Sync.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Sync.Enabled() {
		cfg.Warnings = append(cfg.Warnings, "SYNC_BACKEND not set, cloud sync is disabled")
		if cfg.Sync.Schedule != "" {
			cfg.Warnings = append(cfg.Warnings, "SYNC_SCHEDULE is ignored without a sync backend")
		}
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
		if cfg.TLSCertFile == "" && !cfg.AllowInsecureHTTP {
			return nil, fmt.Errorf("TLS_CERT_FILE/TLS_KEY_FILE must be set in production unless ALLOW_INSECURE_HTTP=true")
		}
	}

	return cfg, nil
}

// LoadSyncFromEnv loads and validates only the sync variables. The CLI uses
// it so server-only settings cannot block a manual push or pull.
func LoadSyncFromEnv() (SyncConfig, error) {
	s := loadSyncEnv()
	if err := s.Validate(); err != nil {
		return SyncConfig{}, err
	}
	return s, nil
}

func loadSyncEnv() SyncConfig {
	s := SyncConfig{
		Backend:              strings.ToLower(strings.TrimSpace(os.Getenv("SYNC_BACKEND"))),
		RemoteDir:            os.Getenv("SYNC_REMOTE_DIR"),
		Schedule:             os.Getenv("SYNC_SCHEDULE"),
		DriveCredentialsFile: os.Getenv("DRIVE_CREDENTIALS_FILE"),
		GCSBucket:            os.Getenv("GCS_BUCKET"),
		GCSKeyFile:           os.Getenv("GCS_KEY_FILE"),
		S3PathStyle:          parseBoolEnvDefault("S3_PATH_STYLE", true),
		AzureAccountName:     os.Getenv("AZURE_ACCOUNT_NAME"),
		AzureAccountKey:      os.Getenv("AZURE_ACCOUNT_KEY"),
		AzureContainer:       os.Getenv("AZURE_CONTAINER"),
		AzureEndpoint:        os.Getenv("AZURE_ENDPOINT"),
	}
	// S3 fields are optional, only set if present
	if v := os.Getenv("S3_KEY_ID"); v != "" {
		s.S3KeyID = &v
	}
	if v := os.Getenv("S3_SECRET"); v != "" {
		s.S3Secret = &v
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		s.S3Endpoint = &v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		s.S3Region = &v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		s.S3Bucket = &v
	}

	if s.Backend == "" {
		s.Backend = SyncNone
	}
	if s.RemoteDir == "" {
		s.RemoteDir = "gps_report"
	}
	return s
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

func splitTrim(v string) []string {
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
