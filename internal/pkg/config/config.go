package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/samirrijal/perspectives/internal/core/camera"
	"github.com/samirrijal/perspectives/internal/core/clustering"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
	Globe     GlobeConfig     `mapstructure:"globe"`
	Warmer    WarmerConfig    `mapstructure:"warmer"`
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
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GlobeConfig tunes clustering and the camera controller. Delays are in
// milliseconds, speed in degrees of longitude per frame.
type GlobeConfig struct {
	Centroid         string  `mapstructure:"centroid"`
	RotationSpeed    float64 `mapstructure:"rotation_speed"`
	ResumeDelayMs    int     `mapstructure:"resume_delay_ms"`
	HoverResumeMs    int     `mapstructure:"hover_resume_delay_ms"`
	FrameRate        int     `mapstructure:"frame_rate"`
	ReadyTimeoutSecs int     `mapstructure:"ready_timeout_seconds"`
}

// Camera converts the globe section into a controller config.
func (g GlobeConfig) Camera() camera.Config {
	cfg := camera.Config{
		Speed:            g.RotationSpeed,
		ResumeDelay:      time.Duration(g.ResumeDelayMs) * time.Millisecond,
		HoverResumeDelay: time.Duration(g.HoverResumeMs) * time.Millisecond,
		ReadyTimeout:     time.Duration(g.ReadyTimeoutSecs) * time.Second,
	}
	if g.FrameRate > 0 {
		cfg.FrameInterval = time.Second / time.Duration(g.FrameRate)
	}
	return cfg
}

// Strategy parses the configured centroid strategy.
func (g GlobeConfig) Strategy() (clustering.Strategy, error) {
	return clustering.ParseStrategy(g.Centroid)
}

// WarmerConfig points the warm-up worker at Temporal.
type WarmerConfig struct {
	TemporalHost string `mapstructure:"temporal_host"`
	Namespace    string `mapstructure:"namespace"`
	TaskQueue    string `mapstructure:"task_queue"`
	IntervalSecs int    `mapstructure:"interval_seconds"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "perspectives")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "perspectives")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.key_prefix", "perspectives:")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("globe.centroid", "linear")
	v.SetDefault("globe.rotation_speed", 0.1)
	v.SetDefault("globe.resume_delay_ms", 2000)
	v.SetDefault("globe.hover_resume_delay_ms", 200)
	v.SetDefault("globe.frame_rate", 60)
	v.SetDefault("globe.ready_timeout_seconds", 30)
	v.SetDefault("warmer.temporal_host", "localhost:7233")
	v.SetDefault("warmer.namespace", "default")
	v.SetDefault("warmer.task_queue", "cluster-warmup")
	v.SetDefault("warmer.interval_seconds", 300)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: PERSPECTIVES_GLOBE_CENTROID → globe.centroid
	v.SetEnvPrefix("PERSPECTIVES")
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

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
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
	if _, err := c.Globe.Strategy(); err != nil {
		errs = append(errs, "globe.centroid: "+err.Error())
	}
	if c.Globe.RotationSpeed < 0 {
		errs = append(errs, "globe.rotation_speed must not be negative")
	}
	if c.Globe.ResumeDelayMs < 0 || c.Globe.HoverResumeMs < 0 {
		errs = append(errs, "globe resume delays must not be negative")
	}
	if c.Globe.FrameRate <= 0 || c.Globe.FrameRate > 240 {
		errs = append(errs, fmt.Sprintf("globe.frame_rate must be 1-240, got %d", c.Globe.FrameRate))
	}
	if c.Warmer.TaskQueue == "" {
		errs = append(errs, "warmer.task_queue is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
