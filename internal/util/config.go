// Package util provides common utilities for netmon.
package util

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	DataDir  string `mapstructure:"data_dir" yaml:"data_dir"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	LogFile  string `mapstructure:"log_file" yaml:"log_file"`

	// Log store
	StoreBackend      string `mapstructure:"store_backend" yaml:"store_backend"`
	DynamoRegion      string `mapstructure:"dynamo_region" yaml:"dynamo_region"`
	DynamoTablePrefix string `mapstructure:"dynamo_table_prefix" yaml:"dynamo_table_prefix"`

	// Latency prober
	ProbeCount       int           `mapstructure:"probe_count" yaml:"probe_count"`
	ProbeTimeout     time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
	ProbeConcurrency int           `mapstructure:"probe_concurrency" yaml:"probe_concurrency"`

	// Uptime checker
	UptimeTimeout time.Duration `mapstructure:"uptime_timeout" yaml:"uptime_timeout"`

	// Device scanner
	ScanWait      time.Duration `mapstructure:"scan_wait" yaml:"scan_wait"`
	ScanInterface string        `mapstructure:"scan_interface" yaml:"scan_interface"`

	// Identity resolver
	PublicIPURL     string        `mapstructure:"public_ip_url" yaml:"public_ip_url"`
	IdentityTimeout time.Duration `mapstructure:"identity_timeout" yaml:"identity_timeout"`
	STUNServers     []string      `mapstructure:"stun_servers" yaml:"stun_servers"`
	GeoIPCountryDB  string        `mapstructure:"geoip_country_db" yaml:"geoip_country_db"`
	GeoIPASNDB      string        `mapstructure:"geoip_asn_db" yaml:"geoip_asn_db"`

	// Watcher daemon
	WatchUserID       int64         `mapstructure:"watch_user_id" yaml:"watch_user_id"`
	WatchPingTargets  []string      `mapstructure:"watch_ping_targets" yaml:"watch_ping_targets"`
	WatchUptimeURLs   []string      `mapstructure:"watch_uptime_urls" yaml:"watch_uptime_urls"`
	PingInterval      time.Duration `mapstructure:"ping_interval" yaml:"ping_interval"`
	UptimeInterval    time.Duration `mapstructure:"uptime_interval" yaml:"uptime_interval"`
	BandwidthInterval time.Duration `mapstructure:"bandwidth_interval" yaml:"bandwidth_interval"`

	// Report settings
	ReportOutputDir string `mapstructure:"report_output_dir" yaml:"report_output_dir"`

	// Web server
	WebPort int `mapstructure:"web_port" yaml:"web_port"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".netmon")

	return &Config{
		DataDir:  dataDir,
		LogLevel: "info",
		LogFile:  filepath.Join(dataDir, "netmon.log"),

		StoreBackend:      "sqlite",
		DynamoRegion:      "us-east-1",
		DynamoTablePrefix: "netmon_",

		ProbeCount:       4,
		ProbeTimeout:     10 * time.Second,
		ProbeConcurrency: 8,

		UptimeTimeout: 5 * time.Second,

		ScanWait: 2 * time.Second,

		PublicIPURL:     "https://api.ipify.org",
		IdentityTimeout: 5 * time.Second,

		WatchPingTargets: []string{
			"8.8.8.8", // Google DNS
			"1.1.1.1", // Cloudflare DNS
		},
		WatchUptimeURLs:   []string{"google.com"},
		PingInterval:      5 * time.Minute,
		UptimeInterval:    5 * time.Minute,
		BandwidthInterval: 15 * time.Minute,

		ReportOutputDir: filepath.Join(dataDir, "reports"),
		WebPort:         5000,
	}
}

// LoadConfig loads configuration from file and environment. An explicit
// path takes precedence over the search locations.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(cfg.DataDir)
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("netmon")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults in viper so env overrides bind to every key
	viper.SetDefault("data_dir", cfg.DataDir)
	viper.SetDefault("log_level", cfg.LogLevel)
	viper.SetDefault("log_file", cfg.LogFile)
	viper.SetDefault("store_backend", cfg.StoreBackend)
	viper.SetDefault("dynamo_region", cfg.DynamoRegion)
	viper.SetDefault("dynamo_table_prefix", cfg.DynamoTablePrefix)
	viper.SetDefault("probe_count", cfg.ProbeCount)
	viper.SetDefault("probe_timeout", cfg.ProbeTimeout)
	viper.SetDefault("probe_concurrency", cfg.ProbeConcurrency)
	viper.SetDefault("uptime_timeout", cfg.UptimeTimeout)
	viper.SetDefault("scan_wait", cfg.ScanWait)
	viper.SetDefault("scan_interface", cfg.ScanInterface)
	viper.SetDefault("public_ip_url", cfg.PublicIPURL)
	viper.SetDefault("identity_timeout", cfg.IdentityTimeout)
	viper.SetDefault("stun_servers", cfg.STUNServers)
	viper.SetDefault("geoip_country_db", cfg.GeoIPCountryDB)
	viper.SetDefault("geoip_asn_db", cfg.GeoIPASNDB)
	viper.SetDefault("watch_user_id", cfg.WatchUserID)
	viper.SetDefault("watch_ping_targets", cfg.WatchPingTargets)
	viper.SetDefault("watch_uptime_urls", cfg.WatchUptimeURLs)
	viper.SetDefault("ping_interval", cfg.PingInterval)
	viper.SetDefault("uptime_interval", cfg.UptimeInterval)
	viper.SetDefault("bandwidth_interval", cfg.BandwidthInterval)
	viper.SetDefault("report_output_dir", cfg.ReportOutputDir)
	viper.SetDefault("web_port", cfg.WebPort)

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Ensure data directory exists
	if err := EnsureDir(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	return cfg, nil
}

// Validate rejects settings the probes cannot run with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "sqlite", "dynamodb":
	default:
		return fmt.Errorf("store_backend must be sqlite or dynamodb, got %q", c.StoreBackend)
	}
	if c.ProbeCount <= 0 {
		return fmt.Errorf("probe_count must be positive")
	}
	if c.ProbeTimeout <= 0 || c.UptimeTimeout <= 0 || c.ScanWait <= 0 {
		return fmt.Errorf("probe_timeout, uptime_timeout and scan_wait must be positive")
	}
	if c.WatchUserID < 0 {
		return fmt.Errorf("watch_user_id must not be negative")
	}
	return nil
}

// SaveConfig writes cfg as YAML to path, creating parent directories.
func SaveConfig(path string, cfg *Config) error {
	data, err := MarshalConfig(cfg)
	if err != nil {
		return err
	}
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// MarshalConfig renders cfg as YAML.
func MarshalConfig(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// EnsureDir ensures a directory exists.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
