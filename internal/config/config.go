package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/menta2k/trackmate/pkg/types"
)

// EnvPrefix prefixes environment overrides, e.g. TRACKMATE_INFERENCE_MODEL
const EnvPrefix = "TRACKMATE"

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Auth       AuthConfig       `mapstructure:"auth" yaml:"auth"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Inference  InferenceConfig  `mapstructure:"inference" yaml:"inference"`
	Image      ImageConfig      `mapstructure:"image" yaml:"image"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	Activities ActivitiesConfig `mapstructure:"activities" yaml:"activities"`
	Stats      StatsConfig      `mapstructure:"stats" yaml:"stats"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Address string `mapstructure:"address" yaml:"address"`
	Mode    string `mapstructure:"mode" yaml:"mode"` // gin mode: debug, release or test
}

// AuthConfig holds session token settings
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	CookieName string        `mapstructure:"cookie_name" yaml:"cookie_name"`
	TokenTTL   time.Duration `mapstructure:"token_ttl" yaml:"-"`
}

// DatabaseConfig holds the activity store connection settings
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" yaml:"driver"` // mysql or sqlite
	DSN             string        `mapstructure:"dsn" yaml:"dsn"`
	AutoMigrate     bool          `mapstructure:"auto_migrate" yaml:"auto_migrate"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"-"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold" yaml:"-"`
}

// InferenceConfig holds the vision model endpoint and sampling parameters
type InferenceConfig struct {
	Backend        string        `mapstructure:"backend" yaml:"backend"` // ollama or llamacpp
	URL            string        `mapstructure:"url" yaml:"url"`
	Model          string        `mapstructure:"model" yaml:"model"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"-"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"-"`
	VerifyPeer     bool          `mapstructure:"verify_peer" yaml:"verify_peer"`
	VerifyHost     bool          `mapstructure:"verify_host" yaml:"verify_host"`
	Temperature    float64       `mapstructure:"temperature" yaml:"temperature"`
	NumPredict     int           `mapstructure:"num_predict" yaml:"num_predict"`
	TopP           float64       `mapstructure:"top_p" yaml:"top_p"`
	TopK           int           `mapstructure:"top_k" yaml:"top_k"`
	RepeatPenalty  float64       `mapstructure:"repeat_penalty" yaml:"repeat_penalty"`
	Stop           []string      `mapstructure:"stop" yaml:"-"`
}

// ImageConfig holds frame preparation settings
type ImageConfig struct {
	MaxSize int `mapstructure:"max_size" yaml:"max_size"`
	Quality int `mapstructure:"quality" yaml:"quality"`
}

// CacheConfig holds result cache settings
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Duration time.Duration `mapstructure:"duration" yaml:"-"`
}

// ActivitiesConfig holds the category display names in code order
type ActivitiesConfig struct {
	Categories []string `mapstructure:"categories" yaml:"categories"`
}

// StatsConfig holds settings for derived time values
type StatsConfig struct {
	SecondsPerDetection int `mapstructure:"seconds_per_detection" yaml:"seconds_per_detection"`
	RecentLimit         int `mapstructure:"recent_limit" yaml:"recent_limit"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // json or text
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address: ":8080",
			Mode:    "release",
		},
		Auth: AuthConfig{
			JWTSecret:  "change-me",
			CookieName: "trackmate_session",
			TokenTTL:   30 * 24 * time.Hour,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "trackmate.db",
			AutoMigrate:     true,
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			SlowThreshold:   200 * time.Millisecond,
		},
		Inference: InferenceConfig{
			Backend:        "ollama",
			URL:            "http://localhost:11433/api/generate",
			Model:          "qwen3-vl:2b",
			Timeout:        45 * time.Second,
			ConnectTimeout: 10 * time.Second,
			VerifyPeer:     true,
			VerifyHost:     true,
			Temperature:    0.3,
			NumPredict:     100,
			TopP:           0.95,
			TopK:           50,
			RepeatPenalty:  1.1,
			Stop:           []string{"\n\n", "---"},
		},
		Image: ImageConfig{
			MaxSize: 320,
			Quality: 80,
		},
		Cache: CacheConfig{
			Enabled:  true,
			Duration: 3 * time.Second,
		},
		Activities: ActivitiesConfig{
			Categories: append([]string(nil), types.DefaultCategoryNames...),
		},
		Stats: StatsConfig{
			SecondsPerDetection: 3,
			RecentLimit:         20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.mode", d.Server.Mode)

	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.cookie_name", d.Auth.CookieName)
	v.SetDefault("auth.token_ttl", d.Auth.TokenTTL)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.auto_migrate", d.Database.AutoMigrate)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("database.slow_threshold", d.Database.SlowThreshold)

	v.SetDefault("inference.backend", d.Inference.Backend)
	v.SetDefault("inference.url", d.Inference.URL)
	v.SetDefault("inference.model", d.Inference.Model)
	v.SetDefault("inference.timeout", d.Inference.Timeout)
	v.SetDefault("inference.connect_timeout", d.Inference.ConnectTimeout)
	v.SetDefault("inference.verify_peer", d.Inference.VerifyPeer)
	v.SetDefault("inference.verify_host", d.Inference.VerifyHost)
	v.SetDefault("inference.temperature", d.Inference.Temperature)
	v.SetDefault("inference.num_predict", d.Inference.NumPredict)
	v.SetDefault("inference.top_p", d.Inference.TopP)
	v.SetDefault("inference.top_k", d.Inference.TopK)
	v.SetDefault("inference.repeat_penalty", d.Inference.RepeatPenalty)
	v.SetDefault("inference.stop", d.Inference.Stop)

	v.SetDefault("image.max_size", d.Image.MaxSize)
	v.SetDefault("image.quality", d.Image.Quality)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.duration", d.Cache.Duration)

	v.SetDefault("activities.categories", d.Activities.Categories)

	v.SetDefault("stats.seconds_per_detection", d.Stats.SecondsPerDetection)
	v.SetDefault("stats.recent_limit", d.Stats.RecentLimit)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Load reads configuration from path, or from config.yaml in the working
// directory or the user config directory when path is empty. A missing file
// is not an error; defaults and environment overrides still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Dir(GetConfigPath()))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address cannot be empty")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret cannot be empty")
	}

	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("database.driver must be mysql or sqlite, got %q", c.Database.Driver)
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn cannot be empty")
	}

	switch c.Inference.Backend {
	case "ollama", "llamacpp":
	default:
		return fmt.Errorf("inference.backend must be ollama or llamacpp, got %q", c.Inference.Backend)
	}

	if u, err := url.Parse(c.Inference.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("inference.url must be an absolute URL, got %q", c.Inference.URL)
	}

	if c.Inference.Model == "" {
		return fmt.Errorf("inference.model cannot be empty")
	}

	if c.Inference.Timeout <= 0 || c.Inference.ConnectTimeout <= 0 {
		return fmt.Errorf("inference.timeout and inference.connect_timeout must be positive")
	}

	if c.Image.MaxSize < 1 {
		return fmt.Errorf("image.max_size must be positive")
	}

	if c.Image.Quality < 1 || c.Image.Quality > 100 {
		return fmt.Errorf("image.quality must be between 1 and 100")
	}

	if _, err := types.NewCategoryTable(c.Activities.Categories); err != nil {
		return fmt.Errorf("activities.categories: %w", err)
	}

	if c.Stats.SecondsPerDetection < 1 {
		return fmt.Errorf("stats.seconds_per_detection must be positive")
	}

	if c.Stats.RecentLimit < 1 {
		return fmt.Errorf("stats.recent_limit must be positive")
	}

	return nil
}

// CacheTTL returns the result cache lifetime, zero when caching is off
func (c *Config) CacheTTL() time.Duration {
	if !c.Cache.Enabled {
		return 0
	}
	return c.Cache.Duration
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "trackmate", "config.yaml")
}
