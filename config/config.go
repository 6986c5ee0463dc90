package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/milare/google-instance-id/instanceid"
)

// EnvPrefix is prepended to environment overrides, e.g. IID_INSTANCE_ID_API_KEY
const EnvPrefix = "IID"

// Load loads the configuration from file and environment. A missing config
// file is not an error when no explicit path is given, so the tool can run
// from environment variables alone.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Shorthand for the one setting everybody needs
	if err := v.BindEnv("instance_id.api_key", EnvPrefix+"_INSTANCE_ID_API_KEY", EnvPrefix+"_API_KEY"); err != nil {
		return nil, fmt.Errorf("error binding environment: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".iid"))
		}

		// Check /etc
		v.AddConfigPath("/etc/iid/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("instance_id.url", instanceid.DefaultBaseURL)
	v.SetDefault("instance_id.api_key", "")
	v.SetDefault("instance_id.timeout", instanceid.DefaultTimeout)
	// Keys without a default are invisible to AutomaticEnv
	v.SetDefault("instance_id.proxy", "")
	v.SetDefault("instance_id.user_agent", "")

	v.SetDefault("batch.size", instanceid.MaxBatchSize)
	v.SetDefault("batch.concurrency", instanceid.DefaultConcurrency)

	v.SetDefault("output.format", "json")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", "auto")
}

// Validate checks if the configuration is valid
func Validate(cfg *Config) error {
	if cfg.InstanceID.URL == "" {
		return fmt.Errorf("instance_id.url is required")
	}

	if cfg.InstanceID.APIKey == "" || cfg.InstanceID.APIKey == "your-api-key-here" {
		return fmt.Errorf("instance_id.api_key must be set to a valid API key")
	}

	if cfg.InstanceID.Timeout < 0 {
		return fmt.Errorf("instance_id.timeout must not be negative")
	}

	if cfg.InstanceID.Proxy != "" {
		if _, err := url.Parse(cfg.InstanceID.Proxy); err != nil {
			return fmt.Errorf("invalid instance_id.proxy: %w", err)
		}
	}

	if cfg.Batch.Size < 1 || cfg.Batch.Size > instanceid.MaxBatchSize {
		return fmt.Errorf("invalid batch.size: %d (must be between 1 and %d)", cfg.Batch.Size, instanceid.MaxBatchSize)
	}

	if cfg.Batch.Concurrency < 1 {
		return fmt.Errorf("invalid batch.concurrency: %d (must be at least 1)", cfg.Batch.Concurrency)
	}

	validOutputs := map[string]bool{
		"json": true,
		"yaml": true,
	}
	if !validOutputs[cfg.Output.Format] {
		return fmt.Errorf("invalid output format: %s (must be 'json' or 'yaml')", cfg.Output.Format)
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	validColors := map[string]bool{
		"auto":   true,
		"always": true,
		"never":  true,
	}
	if !validColors[cfg.Logging.Color] {
		return fmt.Errorf("invalid logging color: %s (must be 'auto', 'always' or 'never')", cfg.Logging.Color)
	}

	return nil
}

// ClientOptions translates the connection settings into client options
func (c InstanceIDConfig) ClientOptions() ([]instanceid.Option, error) {
	opts := []instanceid.Option{
		instanceid.WithBaseURL(c.URL),
	}
	if c.Timeout > 0 {
		opts = append(opts, instanceid.WithTimeout(c.Timeout))
	}
	if c.Proxy != "" {
		proxy, err := url.Parse(c.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid instance_id.proxy: %w", err)
		}
		opts = append(opts, instanceid.WithProxy(proxy))
	}
	if c.UserAgent != "" {
		opts = append(opts, instanceid.WithUserAgent(c.UserAgent))
	}
	for key, value := range c.Headers {
		opts = append(opts, instanceid.WithHeader(key, value))
	}
	return opts, nil
}

// ClientOptions translates the batch settings into client options
func (b BatchConfig) ClientOptions() []instanceid.Option {
	return []instanceid.Option{
		instanceid.WithBatchSize(b.Size),
		instanceid.WithConcurrency(b.Concurrency),
	}
}
