package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
	Sketch    SketchConfig    `mapstructure:"sketch"`
	Map       MapConfig       `mapstructure:"map"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr      string `mapstructure:"addr"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Enabled      bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SketchConfig tunes the draw workflow.
type SketchConfig struct {
	DefaultRadius  float64 `mapstructure:"default_radius"`
	DebounceMS     int     `mapstructure:"debounce_ms"`
	BufferSegments int     `mapstructure:"buffer_segments"`
	MaxSessions    int     `mapstructure:"max_sessions"`
}

// DebounceWait returns the quiet period as a duration.
func (s SketchConfig) DebounceWait() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// MapConfig is the initial view served to map clients.
type MapConfig struct {
	Basemap        string  `mapstructure:"basemap"`
	NextBasemap    string  `mapstructure:"next_basemap"`
	TogglePosition string  `mapstructure:"toggle_position"`
	CenterLon      float64 `mapstructure:"center_lon"`
	CenterLat      float64 `mapstructure:"center_lat"`
	Zoom           int     `mapstructure:"zoom"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: GEOSKETCH_SKETCH_DEFAULT_RADIUS → sketch.default_radius
	v.SetEnvPrefix("GEOSKETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "geosketch")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "geosketch")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.key_prefix", "geosketch:")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_endpoint", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("sketch.default_radius", 1000)
	v.SetDefault("sketch.debounce_ms", 500)
	v.SetDefault("sketch.buffer_segments", 64)
	v.SetDefault("sketch.max_sessions", 1000)
	v.SetDefault("map.basemap", "topo-vector")
	v.SetDefault("map.next_basemap", "satellite")
	v.SetDefault("map.toggle_position", "bottom-right")
	v.SetDefault("map.center_lon", 69)
	v.SetDefault("map.center_lat", 30.5)
	v.SetDefault("map.zoom", 6)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Sketch.DefaultRadius <= 0 {
		errs = append(errs, fmt.Sprintf("sketch.default_radius must be positive, got %g", c.Sketch.DefaultRadius))
	}
	if c.Sketch.DebounceMS < 0 {
		errs = append(errs, "sketch.debounce_ms must not be negative")
	}
	if c.Sketch.BufferSegments < 8 {
		errs = append(errs, fmt.Sprintf("sketch.buffer_segments must be at least 8, got %d", c.Sketch.BufferSegments))
	}
	if c.Sketch.MaxSessions < 0 {
		errs = append(errs, "sketch.max_sessions must not be negative")
	}
	if c.Map.CenterLat < -90 || c.Map.CenterLat > 90 {
		errs = append(errs, fmt.Sprintf("map.center_lat must be -90..90, got %g", c.Map.CenterLat))
	}
	if c.Map.CenterLon < -180 || c.Map.CenterLon > 180 {
		errs = append(errs, fmt.Sprintf("map.center_lon must be -180..180, got %g", c.Map.CenterLon))
	}
	if c.Map.Basemap == "" {
		errs = append(errs, "map.basemap is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
