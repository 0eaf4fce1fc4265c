package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the synthesis session service
type Config struct {
	// Server configuration
	Port     string `envconfig:"PORT" default:"8080"`
	GRPCPort string `envconfig:"GRPC_PORT" default:""` // gRPC health endpoint; empty disables it

	// Durable storage. Provisioned engine data lands in DATA_DIR/dict.
	DataDir   string `envconfig:"DATA_DIR" default:"./data"`
	BundleDir string `envconfig:"BUNDLE_DIR" default:"./assets"` // Read-only source of engine data files

	// Profile catalog. When unset the built-in ja/en catalog is used.
	ProfilesFile  string `envconfig:"PROFILES_FILE" default:""`
	WatchProfiles bool   `envconfig:"WATCH_PROFILES" default:"false"`

	// Provisioning
	AssetFingerprint string `envconfig:"ASSET_FINGERPRINT" default:""` // Overrides the executable-derived fingerprint
	CopyBufferSize   int    `envconfig:"COPY_BUFFER_SIZE" default:"2048"`
	PrefsBackend     string `envconfig:"PREFS_BACKEND" default:"file"` // file, sqlite
	PrefsPath        string `envconfig:"PREFS_PATH" default:""`

	// Engine configuration
	EngineBackend     string `envconfig:"ENGINE_BACKEND" default:"openjtalk"` // openjtalk, stub
	OpenJTalkBinary   string `envconfig:"OPENJTALK_BINARY" default:"open_jtalk"`
	EngineTimeout     int    `envconfig:"ENGINE_TIMEOUT" default:"60"` // seconds per native call
	SamplingFrequency int    `envconfig:"SAMPLING_FREQUENCY" default:"48000"`
	AudioBufferSize   int    `envconfig:"AUDIO_BUFFER_SIZE" default:"6000"`
	DebugSynthesis    bool   `envconfig:"DEBUG_SYNTHESIS" default:"false"` // Write wave.riff and log.txt for every request

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values envconfig cannot express in tags
func (c *Config) Validate() error {
	switch strings.ToLower(c.PrefsBackend) {
	case "file", "sqlite":
	default:
		return fmt.Errorf("PREFS_BACKEND must be file or sqlite, got %q", c.PrefsBackend)
	}
	if c.CopyBufferSize <= 0 {
		return fmt.Errorf("COPY_BUFFER_SIZE must be positive, got %d", c.CopyBufferSize)
	}
	if c.EngineTimeout <= 0 {
		return fmt.Errorf("ENGINE_TIMEOUT must be positive, got %d", c.EngineTimeout)
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	return nil
}

// DictDir is the durable root of provisioned engine data
func (c *Config) DictDir() string {
	return filepath.Join(c.DataDir, "dict")
}

// LogDir receives debug synthesis output
func (c *Config) LogDir() string {
	return filepath.Join(c.DataDir, "log")
}

// PreferencesPath resolves the fingerprint store location for the configured backend
func (c *Config) PreferencesPath() string {
	if c.PrefsPath != "" {
		return c.PrefsPath
	}
	if strings.EqualFold(c.PrefsBackend, "sqlite") {
		return filepath.Join(c.DataDir, "prefs.db")
	}
	return filepath.Join(c.DataDir, "prefs.json")
}

// EngineOptions renders backend options for the engine registry
func (c *Config) EngineOptions() map[string]string {
	return map[string]string{
		"binary_path":     c.OpenJTalkBinary,
		"timeout_seconds": fmt.Sprintf("%d", c.EngineTimeout),
	}
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
