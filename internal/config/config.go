package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"trip-guardian/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Guardian GuardianConfig `mapstructure:"guardian"`
	Rescue   RescueConfig   `mapstructure:"rescue"`
	Routing  RoutingConfig  `mapstructure:"routing"`
	Phrasing PhrasingConfig `mapstructure:"phrasing"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for the optional
// tick/alert audit store.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// StreamConfig locates the live position feed.
type StreamConfig struct {
	NATSURL string `mapstructure:"nats_url"`
	Subject string `mapstructure:"subject"`
	Name    string `mapstructure:"name"`
}

// GuardianConfig 描述告警策略阈值。All values are tunable policy, not
// derived constants.
type GuardianConfig struct {
	AlertThresholdPct int           `mapstructure:"alert_threshold_pct"`
	SafeThresholdPct  int           `mapstructure:"safe_threshold_pct"`
	Cooldown          time.Duration `mapstructure:"cooldown"`
	ComputeTimeout    time.Duration `mapstructure:"compute_timeout"`
}

// RescueConfig bands the rescue-mode recommendation.
type RescueConfig struct {
	NearKm           float64 `mapstructure:"near_km"`
	FarKm            float64 `mapstructure:"far_km"`
	WaitMinutes      float64 `mapstructure:"wait_minutes"`
	LastMileSpeedKmh float64 `mapstructure:"last_mile_speed_kmh"`
}

// RoutingConfig covers the external routing provider.
type RoutingConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// PhrasingConfig covers the external text-generation provider.
type PhrasingConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// NotifyConfig 描述推送网关参数。
type NotifyConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	GatewayURL     string        `mapstructure:"gateway_url"`
	Token          string        `mapstructure:"token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// MetricsConfig gates the Prometheus endpoint; empty addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRIPGUARDIAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tripguardian")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")

	v.SetDefault("stream.nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("stream.subject", "positions.device")
	v.SetDefault("stream.name", "tripguardian")

	v.SetDefault("guardian.alert_threshold_pct", 60)
	v.SetDefault("guardian.safe_threshold_pct", 25)
	v.SetDefault("guardian.cooldown", "3m")
	v.SetDefault("guardian.compute_timeout", "6s")

	v.SetDefault("rescue.near_km", 2.0)
	v.SetDefault("rescue.far_km", 8.0)
	v.SetDefault("rescue.wait_minutes", 5.0)
	v.SetDefault("rescue.last_mile_speed_kmh", 15.0)

	v.SetDefault("routing.base_url", "https://router.project-osrm.org")
	v.SetDefault("routing.request_timeout", "5s")
	v.SetDefault("routing.user_agent", "tripguardian/1.0")

	v.SetDefault("phrasing.enabled", false)
	v.SetDefault("phrasing.request_timeout", "6s")

	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.request_timeout", "10s")

	v.SetDefault("metrics.addr", "")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Guardian.AlertThresholdPct <= 0 || c.Guardian.AlertThresholdPct > 100 {
		return fmt.Errorf("guardian.alert_threshold_pct must be in (0,100]")
	}
	if c.Guardian.SafeThresholdPct < 0 || c.Guardian.SafeThresholdPct >= c.Guardian.AlertThresholdPct {
		return fmt.Errorf("guardian.safe_threshold_pct must be non-negative and below the alert threshold")
	}
	if c.Guardian.Cooldown <= 0 {
		return fmt.Errorf("guardian.cooldown must be greater than zero")
	}
	if c.Guardian.ComputeTimeout <= 0 {
		return fmt.Errorf("guardian.compute_timeout must be greater than zero")
	}
	if c.Rescue.NearKm <= 0 || c.Rescue.FarKm <= c.Rescue.NearKm {
		return fmt.Errorf("rescue bands must satisfy 0 < near_km < far_km")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Phrasing.Enabled && c.Phrasing.BaseURL == "" {
		return fmt.Errorf("phrasing.base_url 必须配置")
	}
	if c.Notify.Enabled && c.Notify.GatewayURL == "" {
		return fmt.Errorf("notify.gateway_url 必须配置")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
