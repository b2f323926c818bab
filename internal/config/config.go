package config

import (
	"errors"
	"time"
)

// Config holds all configuration for the demo CLI and the dev sink
type Config struct {
	Gemini GeminiConfig
	Trace  TraceConfig
	Sink   SinkConfig
	Log    LogConfig
}

// GeminiConfig holds model-provider configuration
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// TraceConfig holds storytrace client configuration
type TraceConfig struct {
	Host          string        `mapstructure:"host"`
	APIKey        string        `mapstructure:"api_key"`
	Enabled       bool          `mapstructure:"enabled"`
	FlushAt       int           `mapstructure:"flush_at"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// SinkConfig holds dev sink server configuration
type SinkConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RequireGemini validates the fields the generation commands depend on
func (c *Config) RequireGemini() error {
	if c.Gemini.APIKey == "" {
		return errors.New("config: GEMINI_API_KEY is required")
	}
	return nil
}
