// Package config loads runtime settings for the playback service.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Pacing modes for the paced reader.
const (
	PacingFixed    = "fixed"
	PacingRealtime = "realtime"
)

type Config struct {
	Server struct {
		HTTPAddr    string   `mapstructure:"http_addr"`
		SocketPath  string   `mapstructure:"socket_path"`
		MetricsAddr string   `mapstructure:"metrics_addr"`
		CORSOrigins []string `mapstructure:"cors_origins"`
	} `mapstructure:"server"`
	Database struct {
		Driver   string `mapstructure:"driver"` // sqlite or postgres
		DSN      string `mapstructure:"dsn"`
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`
	Playback struct {
		ChunkSize         int           `mapstructure:"chunk_size"`
		TickInterval      time.Duration `mapstructure:"tick_interval"`
		Pacing            string        `mapstructure:"pacing"`
		DefaultSampleRate int           `mapstructure:"default_sample_rate"`
		DefaultMode       string        `mapstructure:"default_mode"`
		RecordingsDir     string        `mapstructure:"recordings_dir"`
	} `mapstructure:"playback"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"` // console or json
	} `mapstructure:"log"`
}

var keys = []string{
	"server.http_addr",
	"server.socket_path",
	"server.metrics_addr",
	"server.cors_origins",
	"database.driver",
	"database.dsn",
	"database.host",
	"database.port",
	"database.user",
	"database.password",
	"database.name",
	"playback.chunk_size",
	"playback.tick_interval",
	"playback.pacing",
	"playback.default_sample_rate",
	"playback.default_mode",
	"playback.recordings_dir",
	"log.level",
	"log.format",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_addr", ":8180")
	v.SetDefault("server.socket_path", "/tmp/timemachine.sock")
	v.SetDefault("server.metrics_addr", ":9091")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "recordings.db")
	v.SetDefault("database.port", "5432")

	// 8 KiB every 50ms is the reference cadence.
	v.SetDefault("playback.chunk_size", 8192)
	v.SetDefault("playback.tick_interval", 50*time.Millisecond)
	v.SetDefault("playback.pacing", PacingFixed)
	v.SetDefault("playback.default_sample_rate", 2048000)
	v.SetDefault("playback.default_mode", "FM")
	v.SetDefault("playback.recordings_dir", "./recordings")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads config.yaml from path (or the working directory when path is
// empty) and overlays TIMEMACHINE_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TIMEMACHINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges that viper cannot express.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver: unsupported driver %q", c.Database.Driver)
	}
	if c.Playback.ChunkSize <= 0 {
		return fmt.Errorf("playback.chunk_size must be positive, got %d", c.Playback.ChunkSize)
	}
	if c.Playback.TickInterval <= 0 {
		return fmt.Errorf("playback.tick_interval must be positive, got %s", c.Playback.TickInterval)
	}
	switch c.Playback.Pacing {
	case PacingFixed, PacingRealtime:
	default:
		return fmt.Errorf("playback.pacing: unknown mode %q", c.Playback.Pacing)
	}
	if c.Playback.DefaultSampleRate <= 0 {
		return fmt.Errorf("playback.default_sample_rate must be positive, got %d", c.Playback.DefaultSampleRate)
	}
	return nil
}
