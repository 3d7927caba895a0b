// Package config handles loading and managing cardscore configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for cardscore.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Events     EventsConfig     `yaml:"events"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig controls the HTTP service.
type ServerConfig struct {
	Port            string  `yaml:"port" validate:"required,numeric"`
	APIKey          string  `yaml:"api_key"`
	CORSOrigin      string  `yaml:"cors_origin"`
	RateLimit       float64 `yaml:"rate_limit" validate:"gte=0"` // requests per second, 0 disables
	RateBurst       int     `yaml:"rate_burst" validate:"gte=0"`
	ShutdownTimeout int     `yaml:"shutdown_timeout" validate:"gt=0"` // seconds
}

// DatabaseConfig points at the Postgres registry.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// StorageConfig selects the blob store for model documents and results.
type StorageConfig struct {
	Backend     string `yaml:"backend" validate:"oneof=local gcs s3"`
	LocalDir    string `yaml:"local_dir" validate:"required_if=Backend local"`
	GCSBucket   string `yaml:"gcs_bucket" validate:"required_if=Backend gcs"`
	S3Bucket    string `yaml:"s3_bucket" validate:"required_if=Backend s3"`
	S3Region    string `yaml:"s3_region"`
	S3Endpoint  string `yaml:"s3_endpoint"`
	S3AccessKey string `yaml:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key"`
}

// EventsConfig enables evaluation events. An empty NATSURL disables them.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url"`
	Stream  string `yaml:"stream" validate:"required_with=NATSURL"`
}

// EvaluationConfig tunes the scoring service.
type EvaluationConfig struct {
	CacheSize        int  `yaml:"cache_size" validate:"gt=0"` // compiled evaluators kept in memory
	BatchConcurrency int  `yaml:"batch_concurrency" validate:"gt=0"`
	MaxBatchSize     int  `yaml:"max_batch_size" validate:"gt=0"`
	PersistByDefault bool `yaml:"persist_by_default"`
}

// LoggingConfig controls zerolog output.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			CORSOrigin:      "*",
			RateLimit:       50,
			RateBurst:       100,
			ShutdownTimeout: 15,
		},
		Database: DatabaseConfig{
			URL: "postgres://localhost:5432/cardscore?sslmode=disable",
		},
		Storage: StorageConfig{
			Backend:  "local",
			LocalDir: DataDir(),
		},
		Events: EventsConfig{
			Stream: "CARDSCORE_EVALUATIONS",
		},
		Evaluation: EvaluationConfig{
			CacheSize:        64,
			BatchConcurrency: 8,
			MaxBatchSize:     1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a config file from the given path.
// If the file does not exist, it returns the default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv() error {
	strVars := map[string]*string{
		"PORT":                 &c.Server.Port,
		"API_KEY":              &c.Server.APIKey,
		"CORS_ORIGIN":          &c.Server.CORSOrigin,
		"DATABASE_URL":         &c.Database.URL,
		"STORAGE_BACKEND":      &c.Storage.Backend,
		"LOCAL_STORAGE_PATH":   &c.Storage.LocalDir,
		"GCS_BUCKET":           &c.Storage.GCSBucket,
		"S3_BUCKET":            &c.Storage.S3Bucket,
		"S3_REGION":            &c.Storage.S3Region,
		"S3_ENDPOINT":          &c.Storage.S3Endpoint,
		"S3_ACCESS_KEY_ID":     &c.Storage.S3AccessKey,
		"S3_SECRET_ACCESS_KEY": &c.Storage.S3SecretKey,
		"NATS_URL":             &c.Events.NATSURL,
		"LOG_LEVEL":            &c.Logging.Level,
		"LOG_FORMAT":           &c.Logging.Format,
	}
	for key, dst := range strVars {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT: %w", err)
		}
		c.Server.RateLimit = f
	}
	if v := os.Getenv("EVALUATOR_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EVALUATOR_CACHE_SIZE: %w", err)
		}
		c.Evaluation.CacheSize = n
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// FindConfigFile looks for .cardscore/config.yaml in the given directory
// and its parents, returning the path if found, or "" if not.
func FindConfigFile(dir string) string {
	for {
		candidate := filepath.Join(dir, ".cardscore", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// DataDir returns the default local storage directory, ~/.cache/cardscore.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to temp dir if HOME isn't available
		home = os.TempDir()
	}
	return filepath.Join(home, ".cache", "cardscore")
}
