package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Settings are the server options after merging defaults, seadrive.yaml,
// SEADRIVE_* environment variables and command line flags, in that order.
type Settings struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ConfigDir       string        `mapstructure:"config_dir"`
	StaticDir       string        `mapstructure:"static_dir"`
	LogLevel        string        `mapstructure:"log_level"`
	Store           string        `mapstructure:"store"` // file or sqlite
	SessionsDir     string        `mapstructure:"sessions_dir"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	SyncInterval    time.Duration `mapstructure:"sync_interval"`
	APIURL          string        `mapstructure:"api_url"`
	Ngrok           NgrokSettings `mapstructure:"ngrok"`
}

// NgrokSettings configure the optional public tunnel
type NgrokSettings struct {
	Enabled   bool   `mapstructure:"enabled"`
	AuthToken string `mapstructure:"authtoken"`
	Domain    string `mapstructure:"domain"`
}

// Addr is the listen address
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

const settingsFile = "seadrive"

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "localhost")
	v.SetDefault("port", 8080)
	v.SetDefault("config_dir", "configs")
	v.SetDefault("static_dir", "static")
	v.SetDefault("log_level", "info")
	v.SetDefault("store", "file")
	v.SetDefault("sessions_dir", "sessions")
	v.SetDefault("sqlite_path", "sessions.db")
	v.SetDefault("session_ttl", "24h")
	v.SetDefault("cleanup_interval", "1h")
	v.SetDefault("sync_interval", "5s")
	v.SetDefault("api_url", "http://localhost:8080")
	v.SetDefault("ngrok.enabled", false)
	v.SetDefault("ngrok.authtoken", "")
	v.SetDefault("ngrok.domain", "")
}

// loadSettings reads settings from dir/seadrive.{yaml,json,toml} when present.
// overrides are applied last and normally come from explicitly set flags.
func loadSettings(dir string, overrides map[string]interface{}) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(settingsFile)
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading settings file: %w", err)
		}
	}

	v.SetEnvPrefix("SEADRIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names kept for existing deployments
	v.BindEnv("config_dir", "SEADRIVE_CONFIG_DIR", "CONFIG_DIR")
	v.BindEnv("ngrok.enabled", "SEADRIVE_NGROK_ENABLED", "NGROK_ENABLED")
	v.BindEnv("ngrok.authtoken", "SEADRIVE_NGROK_AUTHTOKEN", "NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")
	v.BindEnv("ngrok.domain", "SEADRIVE_NGROK_DOMAIN", "NGROK_DOMAIN")

	for key, value := range overrides {
		v.Set(key, value)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("error decoding settings: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("settings: port must be between 1 and 65535, got %d", s.Port)
	}
	switch s.Store {
	case "file", "sqlite":
	default:
		return fmt.Errorf("settings: store must be file or sqlite, got %q", s.Store)
	}
	if s.SessionTTL <= 0 || s.CleanupInterval <= 0 || s.SyncInterval <= 0 {
		return fmt.Errorf("settings: session_ttl, cleanup_interval and sync_interval must be positive")
	}
	return nil
}

// newLogger builds the console logger every component derives from
func newLogger(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().
		Logger()
}
