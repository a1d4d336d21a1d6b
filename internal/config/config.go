package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values
const (
	DefaultPort              = 8080
	DefaultReadTimeout       = 15 * time.Second
	DefaultWriteTimeout      = 15 * time.Second
	DefaultDBPath            = "engine_health.db"
	DefaultClassifierTimeout = 5 * time.Second
	DefaultTopic             = "engine-assessments"
	DefaultLogLevel          = "info"
)

// Config is the full configuration tree
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Auth       AuthConfig       `yaml:"auth"`
	Engine     EngineConfig     `yaml:"engine"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Publisher  PublisherConfig  `yaml:"publisher"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// CORSOrigins lists allowed browser origins. Empty disables CORS headers.
	CORSOrigins []string `yaml:"cors_origins"`
}

// StorageConfig selects the database
type StorageConfig struct {
	Backend string `yaml:"backend"`
	DSN     string `yaml:"dsn"`
}

// AuthConfig controls bearer token verification on /api/v1
type AuthConfig struct {
	// JWTSecretEnv names the environment variable holding the HS256 secret.
	// Verification is off when unset or when the variable is empty.
	JWTSecretEnv string `yaml:"jwt_secret_env"`
}

// Secret returns the JWT secret resolved from the environment.
func (a AuthConfig) Secret() string {
	if a.JWTSecretEnv == "" {
		return ""
	}
	return os.Getenv(a.JWTSecretEnv)
}

// EngineConfig tunes the diagnostic engine
type EngineConfig struct {
	Seed int64 `yaml:"seed"`
}

// ClassifierConfig points at the external condition model
type ClassifierConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// PublisherConfig controls Kafka assessment events
type PublisherConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// LogConfig sets the log level
type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel parses Level, falling back to info.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Load reads and parses the config file at path. Missing fields are filled
// with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaults()
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         DefaultPort,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			DSN:     DefaultDBPath,
		},
		Classifier: ClassifierConfig{
			Timeout: DefaultClassifierTimeout,
		},
		Publisher: PublisherConfig{
			Topic: DefaultTopic,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// Validate checks structural constraints; exported for configs assembled
// from flags.
func Validate(cfg *Config) error {
	return validate(cfg)
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range [1, 65535]", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout < 0 || cfg.Server.WriteTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}
	switch cfg.Storage.Backend {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("storage.backend %q unknown: want sqlite|postgres", cfg.Storage.Backend)
	}
	if strings.TrimSpace(cfg.Storage.DSN) == "" {
		return fmt.Errorf("storage.dsn is required")
	}
	if cfg.Classifier.Timeout < 0 {
		return fmt.Errorf("classifier.timeout must not be negative")
	}
	if cfg.Publisher.Enabled {
		if len(cfg.Publisher.Brokers) == 0 {
			return fmt.Errorf("publisher.brokers is required when the publisher is enabled")
		}
		if strings.TrimSpace(cfg.Publisher.Topic) == "" {
			return fmt.Errorf("publisher.topic is required when the publisher is enabled")
		}
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q unknown: want debug|info|warn|error", cfg.Log.Level)
	}
	return nil
}
