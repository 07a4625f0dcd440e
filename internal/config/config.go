package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	PhonebooksFile string `mapstructure:"phonebooks_file"`
	PublishersFile string `mapstructure:"publishers_file"`

	RefreshIntervalSeconds int64         `mapstructure:"refresh_interval"`
	RefreshInterval        time.Duration `mapstructure:"-"`
	FetchTimeoutSeconds    int64         `mapstructure:"fetch_timeout_seconds"`
	FetchTimeout           time.Duration `mapstructure:"-"`

	// DefaultRegion is the ISO country code used as the phone number
	// parsing hint when a source does not declare its own.
	DefaultRegion string `mapstructure:"default_region"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	SnapshotTTLSeconds     int64         `mapstructure:"snapshot_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	SnapshotTTL            time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`

	CallMonitorEnabled bool   `mapstructure:"callmonitor_enabled"`
	CallMonitorAddress string `mapstructure:"callmonitor_address"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "fonwatch")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("phonebooks_file", "./configs/phonebooks.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("refresh_interval", 600) // seconds
	v.SetDefault("fetch_timeout_seconds", 2)
	v.SetDefault("default_region", "")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/phonebooks.db")
	v.SetDefault("snapshot_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))
	v.SetDefault("callmonitor_enabled", false)
	v.SetDefault("callmonitor_address", "fritz.box:1012")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.RefreshIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid refresh_interval (must be positive seconds)")
	}
	cfg.RefreshInterval = time.Duration(cfg.RefreshIntervalSeconds) * time.Second

	if cfg.FetchTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid fetch_timeout_seconds (must be positive seconds)")
	}
	cfg.FetchTimeout = time.Duration(cfg.FetchTimeoutSeconds) * time.Second

	if cfg.SnapshotTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid snapshot_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.SnapshotTTL = time.Duration(cfg.SnapshotTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	if cfg.CallMonitorEnabled && strings.TrimSpace(cfg.CallMonitorAddress) == "" {
		return nil, fmt.Errorf("callmonitor_address is required when callmonitor_enabled is set")
	}

	cfg.DefaultRegion = strings.ToUpper(strings.TrimSpace(cfg.DefaultRegion))

	return &cfg, nil
}
