// Package config loads hyper's runtime configuration from defaults, an
// optional hyper.toml file and HYPER_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name and environment prefix.
	AppName = "hyper"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "hyper"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full runtime configuration.
type Config struct {
	Addr      string `mapstructure:"addr" toml:"addr"`
	ViewsDir  string `mapstructure:"views_dir" toml:"views_dir"`
	SecretKey string `mapstructure:"secret_key" toml:"secret_key"`

	Fragments FragmentsConfig `mapstructure:"fragments" toml:"fragments"`
	Locked    LockedConfig    `mapstructure:"locked" toml:"locked"`
	S3        S3Config        `mapstructure:"s3" toml:"s3"`
	Log       LogConfig       `mapstructure:"log" toml:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics" toml:"metrics"`
}

// FragmentsConfig names the fragment markers.
type FragmentsConfig struct {
	Open  string `mapstructure:"open" toml:"open"`
	Close string `mapstructure:"close" toml:"close"`
}

// LockedConfig configures the locked-signal cookie.
type LockedConfig struct {
	Cookie    string `mapstructure:"cookie" toml:"cookie"`
	Sensitive bool   `mapstructure:"sensitive" toml:"sensitive"`
	Secure    bool   `mapstructure:"secure" toml:"secure"`
}

// S3Config selects an S3 bucket as the view source. An empty bucket means
// views are read from ViewsDir.
type S3Config struct {
	Bucket string `mapstructure:"bucket" toml:"bucket"`
	Prefix string `mapstructure:"prefix" toml:"prefix"`
	Region string `mapstructure:"region" toml:"region"`
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	Level  string `mapstructure:"level" toml:"level"`
	Format string `mapstructure:"format" toml:"format"` // text or json
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Path    string `mapstructure:"path" toml:"path"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:     ":8080",
		ViewsDir: "views",
		Fragments: FragmentsConfig{
			Open:  "fragment",
			Close: "endfragment",
		},
		Locked: LockedConfig{Cookie: "hyper_locked"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// LoadOptions controls where Load looks for a file.
type LoadOptions struct {
	// ConfigFilePath, when set, is the only file read and must exist.
	ConfigFilePath string
	// SearchDirs are searched in order for hyper.toml. Defaults to ".".
	SearchDirs []string
}

// Load builds the configuration. A missing file in the search directories
// is not an error.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	// Set defaults
	defaults := DefaultConfig()
	v.SetDefault("addr", defaults.Addr)
	v.SetDefault("views_dir", defaults.ViewsDir)
	v.SetDefault("secret_key", defaults.SecretKey)
	v.SetDefault("fragments.open", defaults.Fragments.Open)
	v.SetDefault("fragments.close", defaults.Fragments.Close)
	v.SetDefault("locked.cookie", defaults.Locked.Cookie)
	v.SetDefault("locked.sensitive", defaults.Locked.Sensitive)
	v.SetDefault("locked.secure", defaults.Locked.Secure)
	v.SetDefault("s3.bucket", defaults.S3.Bucket)
	v.SetDefault("s3.prefix", defaults.S3.Prefix)
	v.SetDefault("s3.region", defaults.S3.Region)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	v.SetDefault("metrics.path", defaults.Metrics.Path)

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""
	v.SetConfigType(ConfigFileExt)

	if opts.ConfigFilePath != "" {
		// If a custom config file path is set via --config, use it exclusively.
		if _, err := os.Stat(opts.ConfigFilePath); err != nil {
			return nil, "", fmt.Errorf("config file not found: %s: %w", opts.ConfigFilePath, err)
		}
		v.SetConfigFile(opts.ConfigFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("read %s: %w", opts.ConfigFilePath, err)
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		dirs := opts.SearchDirs
		if len(dirs) == 0 {
			dirs = []string{"."}
		}
		v.SetConfigName(ConfigFileName)
		for _, dir := range dirs {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			// If no config file found, use defaults (no error)
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, "", fmt.Errorf("read config: %w", err)
			}
		} else {
			resolvedPath = v.ConfigFileUsed()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolvedPath, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	if c.Fragments.Open == "" || c.Fragments.Close == "" {
		return fmt.Errorf("%w: fragment markers must not be empty", ErrInvalidConfig)
	}
	if c.Fragments.Open == c.Fragments.Close {
		return fmt.Errorf("%w: fragment markers must differ", ErrInvalidConfig)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q (want text or json)", ErrInvalidConfig, c.Log.Format)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("%w: metrics.path %q must start with /", ErrInvalidConfig, c.Metrics.Path)
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	if out.SecretKey != "" {
		out.SecretKey = "********"
	}
	return &out
}

// TOML encodes the configuration as a hyper.toml document.
func (c *Config) TOML() ([]byte, error) {
	return toml.Marshal(c)
}
