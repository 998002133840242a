package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	customerrors "github.com/axellelanca/shortlinks/internal/errors"
)

// Config represents the main structure mapping the entire application configuration.
// This struct uses mapstructure tags to map YAML keys to Go struct fields.
type Config struct {
	// Server configuration section containing HTTP server settings
	Server struct {
		Port    int    `mapstructure:"port"`     // HTTP server port (default: 3000)
		BaseURL string `mapstructure:"base_url"` // Public base URL used to compose shortUrl
	} `mapstructure:"server"`

	// Database selects and configures the link store
	Database struct {
		Driver string `mapstructure:"driver"` // sqlite, memory or redis
		Name   string `mapstructure:"name"`   // SQLite database file name
	} `mapstructure:"database"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
		Prefix   string `mapstructure:"prefix"`
	} `mapstructure:"redis"`

	// Shortener configures short code generation
	Shortener struct {
		CodeLength  int `mapstructure:"code_length"`  // Length of generated codes
		MaxAttempts int `mapstructure:"max_attempts"` // Generation attempts before giving up
	} `mapstructure:"shortener"`

	// Analytics configuration for asynchronous click tracking
	Analytics struct {
		BufferSize  int `mapstructure:"buffer_size"`  // Size of the click event channel buffer
		WorkerCount int `mapstructure:"worker_count"` // Number of worker goroutines for processing clicks
	} `mapstructure:"analytics"`

	// Monitor configuration for destination health checking
	Monitor struct {
		Enabled  bool   `mapstructure:"enabled"`
		Schedule string `mapstructure:"schedule"` // cron spec, e.g. "@every 5m"
	} `mapstructure:"monitor"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Metrics struct {
		Enabled bool   `mapstructure:"enabled"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"metrics"`

	Shutdown struct {
		TimeoutSeconds int `mapstructure:"timeout_seconds"`
	} `mapstructure:"shutdown"`

	v *viper.Viper
}

// LoadConfig loads the application configuration using Viper.
// Precedence: environment (including a local .env file) > ./configs/config.yaml > defaults.
// The short variable names PORT, BASE_URL and SHORT_ID_LENGTH are honoured as well.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath("./configs")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.base_url", "")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.name", "shortlinks.db")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "shortlinks")
	v.SetDefault("shortener.code_length", 7)
	v.SetDefault("shortener.max_attempts", 20)
	v.SetDefault("analytics.buffer_size", 1000)
	v.SetDefault("analytics.worker_count", 4)
	v.SetDefault("monitor.enabled", false)
	v.SetDefault("monitor.schedule", "@every 5m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("shutdown.timeout_seconds", 10)

	// The first non-empty variable wins.
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("server.base_url", "SERVER_BASE_URL", "BASE_URL")
	_ = v.BindEnv("shortener.code_length", "SHORTENER_CODE_LENGTH", "SHORT_ID_LENGTH")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Debug("config file not found, using defaults and environment")
		} else {
			return nil, customerrors.ErrConfigLoad{Path: v.ConfigFileUsed(), Reason: err.Error()}
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	slog.Debug("configuration loaded",
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"driver", cfg.Database.Driver,
		"code_length", cfg.Shortener.CodeLength,
	)
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, customerrors.ErrConfigLoad{Path: v.ConfigFileUsed(), Reason: err.Error()}
	}
	cfg.v = v
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Server.BaseURL = strings.TrimRight(strings.TrimSpace(c.Server.BaseURL), "/")
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	fail := func(reason string) error {
		path := ""
		if c.v != nil {
			path = c.v.ConfigFileUsed()
		}
		return customerrors.ErrConfigLoad{Path: path, Reason: reason}
	}

	switch c.Database.Driver {
	case "sqlite", "memory", "redis":
	default:
		return fail(fmt.Sprintf("unknown database.driver %q", c.Database.Driver))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fail(fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	// the code generator only supports these lengths
	if c.Shortener.CodeLength < 2 || c.Shortener.CodeLength > 255 {
		return fail(fmt.Sprintf("shortener.code_length %d must be between 2 and 255", c.Shortener.CodeLength))
	}
	if c.Shortener.MaxAttempts < 1 {
		return fail("shortener.max_attempts must be positive")
	}
	if c.Analytics.WorkerCount < 1 {
		return fail("analytics.worker_count must be positive")
	}
	if c.Analytics.BufferSize < 0 {
		return fail("analytics.buffer_size must not be negative")
	}
	return nil
}

// ShortURL composes the public URL for code.
func (c *Config) ShortURL(code string) string {
	return c.Server.BaseURL + "/" + code
}

// Watch re-reads the config file whenever it changes and passes the new values to
// onChange. It does nothing when no file was loaded.
func (c *Config) Watch(onChange func(*Config)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		next, err := decode(c.v)
		if err != nil {
			slog.Warn("ignoring invalid configuration change", "file", e.Name, "error", err)
			return
		}
		slog.Info("configuration file changed", "file", e.Name, "op", e.Op.String())
		onChange(next)
	})
	c.v.WatchConfig()
}
