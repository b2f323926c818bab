package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from environment variables and an optional
// config file
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/storytrace")

	// Ignore error if config file not found
	_ = v.ReadInConfig()

	var cfg Config

	// Gemini
	cfg.Gemini.APIKey = v.GetString("gemini_api_key")
	cfg.Gemini.Model = v.GetString("gemini_model")

	// storytrace client
	cfg.Trace.Host = v.GetString("storytrace_host")
	cfg.Trace.APIKey = v.GetString("storytrace_api_key")
	cfg.Trace.Enabled = v.GetBool("storytrace_enabled")
	cfg.Trace.FlushAt = v.GetInt("storytrace_flush_at")
	cfg.Trace.FlushInterval = time.Duration(v.GetInt("storytrace_flush_interval_ms")) * time.Millisecond

	// dev sink
	cfg.Sink.Host = v.GetString("sink_host")
	cfg.Sink.Port = v.GetInt("sink_port")

	// logging
	cfg.Log.Level = v.GetString("log_level")
	cfg.Log.Format = v.GetString("log_format")

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gemini_model", "gemini-2.0-flash")

	v.SetDefault("storytrace_host", "http://localhost:8080")
	v.SetDefault("storytrace_enabled", true)
	v.SetDefault("storytrace_flush_at", 20)
	v.SetDefault("storytrace_flush_interval_ms", 5000)

	v.SetDefault("sink_host", "0.0.0.0")
	v.SetDefault("sink_port", 8080)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}
