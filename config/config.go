// Package config loads the settings of the disease tracker binaries. Values are layered as
// built-in defaults, then an optional YAML file, then TRACKER_ prefixed environment variables
// which may come from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	forecaster "github.com/aouyang1/go-disease-tracker"
	"github.com/aouyang1/go-disease-tracker/catalog"
	"github.com/aouyang1/go-disease-tracker/dashboard"
	"github.com/aouyang1/go-disease-tracker/server"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment variable, e.g. TRACKER_SERVER_ADDR
const EnvPrefix = "TRACKER"

// DefaultEnvFile is read when Load is given no env files. A missing file is not an error.
const DefaultEnvFile = ".env"

var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New(validator.WithRequiredStructEnabled())

type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Forecast  ForecastConfig  `yaml:"forecast" envconfig:"FORECAST"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	Sessions  SessionsConfig  `yaml:"sessions" envconfig:"SESSIONS"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" envconfig:"ADDR" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES" validate:"gt=0"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
}

// PathsConfig locates the case data files, the info and history texts and an optional
// catalog file replacing the built-in one
type PathsConfig struct {
	DataDir     string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	ContentDir  string `yaml:"content_dir" envconfig:"CONTENT_DIR" validate:"required"`
	CatalogFile string `yaml:"catalog_file" envconfig:"CATALOG_FILE"`
}

type ForecastConfig struct {
	WindowSize      int     `yaml:"window_size" envconfig:"WINDOW_SIZE" validate:"gte=2"`
	Degree          int     `yaml:"degree" envconfig:"DEGREE" validate:"gte=1"`
	SmoothingSigma  float64 `yaml:"smoothing_sigma" envconfig:"SMOOTHING_SIGMA" validate:"gte=0"`
	ConfidenceScale float64 `yaml:"confidence_scale" envconfig:"CONFIDENCE_SCALE" validate:"gt=0"`
	MinConfidence   float64 `yaml:"min_confidence" envconfig:"MIN_CONFIDENCE" validate:"gte=0,ltefield=MaxConfidence"`
	MaxConfidence   float64 `yaml:"max_confidence" envconfig:"MAX_CONFIDENCE" validate:"lte=1"`
	DefaultHorizon  int     `yaml:"default_horizon" envconfig:"DEFAULT_HORIZON" validate:"gte=1,ltefield=MaxHorizon"`
	MaxHorizon      int     `yaml:"max_horizon" envconfig:"MAX_HORIZON" validate:"gte=1"`
}

// CacheConfig controls the forecast cache. A zero TTL disables caching.
type CacheConfig struct {
	TTL           time.Duration `yaml:"ttl" envconfig:"TTL" validate:"gte=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SWEEP_INTERVAL" validate:"gt=0"`
}

type SessionsConfig struct {
	TTL        time.Duration `yaml:"ttl" envconfig:"TTL" validate:"gt=0"`
	MaxHistory int           `yaml:"max_history" envconfig:"MAX_HISTORY" validate:"gte=1"`
}

// RateLimitConfig sets the shared token bucket of the api. A zero RPS disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// Default returns the settings used when nothing is configured
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            server.DefaultAddr,
			ReadTimeout:     server.DefaultReadTimeout,
			WriteTimeout:    server.DefaultWriteTimeout,
			ShutdownTimeout: server.DefaultShutdownTimeout,
			MaxBodyBytes:    server.DefaultMaxBodyBytes,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Paths: PathsConfig{
			DataDir:    "data",
			ContentDir: "content",
		},
		Forecast: ForecastConfig{
			WindowSize:      forecaster.DefaultWindowSize,
			Degree:          forecaster.DefaultDegree,
			SmoothingSigma:  forecaster.DefaultSmoothingSigma,
			ConfidenceScale: forecaster.DefaultConfidenceScale,
			MinConfidence:   forecaster.DefaultMinConfidence,
			MaxConfidence:   forecaster.DefaultMaxConfidence,
			DefaultHorizon:  dashboard.DefaultHorizon,
			MaxHorizon:      server.DefaultMaxHorizon,
		},
		Cache: CacheConfig{
			TTL:           dashboard.DefaultCacheTTL,
			SweepInterval: server.DefaultSweepInterval,
		},
		Sessions: SessionsConfig{
			TTL:        server.DefaultSessionTTL,
			MaxHistory: server.DefaultMaxHistory,
		},
		RateLimit: RateLimitConfig{
			RPS:   20,
			Burst: 40,
		},
	}
}

// Load builds the configuration. The env files are read first without overriding variables
// already set in the process. An empty path skips the YAML file.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("unable to load env file %s, %w", f, err)
		}
	}

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("unable to load config from environment, %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read config %s, %w", path, err)
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return fmt.Errorf("unable to decode config %s, %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w, %w", ErrInvalidConfig, err)
	}
	return nil
}

// ServerConfig maps the settings onto the http server
func (c *Config) ServerConfig() server.Config {
	return server.Config{
		Addr:            c.Server.Addr,
		ReadTimeout:     c.Server.ReadTimeout,
		WriteTimeout:    c.Server.WriteTimeout,
		ShutdownTimeout: c.Server.ShutdownTimeout,
		DefaultHorizon:  c.Forecast.DefaultHorizon,
		MaxHorizon:      c.Forecast.MaxHorizon,
		SessionTTL:      c.Sessions.TTL,
		MaxHistory:      c.Sessions.MaxHistory,
		RateLimit:       c.RateLimit.RPS,
		RateBurst:       c.RateLimit.Burst,
		MaxBodyBytes:    c.Server.MaxBodyBytes,
		SweepInterval:   c.Cache.SweepInterval,
	}
}

// ForecastOptions maps the forecast section onto the forecaster options
func (c *Config) ForecastOptions() *forecaster.Options {
	opt := forecaster.NewDefaultOptions()
	opt.WindowSize = c.Forecast.WindowSize
	opt.Degree = c.Forecast.Degree
	opt.SmoothingSigma = c.Forecast.SmoothingSigma
	opt.ConfidenceScale = c.Forecast.ConfidenceScale
	opt.MinConfidence = c.Forecast.MinConfidence
	opt.MaxConfidence = c.Forecast.MaxConfidence
	return opt
}

// Catalog loads the configured catalog file or the built-in catalog
func (c *Config) Catalog() (*catalog.Catalog, error) {
	return catalog.Load(c.Paths.CatalogFile)
}
