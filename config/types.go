package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	InstanceID InstanceIDConfig `mapstructure:"instance_id"`
	Batch      BatchConfig      `mapstructure:"batch"`
	Output     OutputConfig     `mapstructure:"output"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// InstanceIDConfig holds Instance ID API connection details
type InstanceIDConfig struct {
	URL       string            `mapstructure:"url"`
	APIKey    string            `mapstructure:"api_key"`
	Timeout   time.Duration     `mapstructure:"timeout"`
	Proxy     string            `mapstructure:"proxy"`
	UserAgent string            `mapstructure:"user_agent"`
	Headers   map[string]string `mapstructure:"headers"`
}

// BatchConfig controls how large token lists are split
type BatchConfig struct {
	Size        int `mapstructure:"size"`
	Concurrency int `mapstructure:"concurrency"`
}

// OutputConfig controls how command results are printed
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  string `mapstructure:"color"`
}
