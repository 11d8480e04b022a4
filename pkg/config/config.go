/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Configuration for FVM. Values come from defaults, an optional YAML/JSON/TOML
config file, FVM_* environment variables and bound command-line flags, resolved by viper.
*/

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kleascm/fvm/pkg/logging"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. FVM_SERVER_ADDR
const EnvPrefix = "FVM"

// Config is the resolved application configuration
type Config struct {
	Server  ServerConfig         `mapstructure:"server"`
	MVT     MVTConfig            `mapstructure:"mvt"`
	Catalog CatalogConfig        `mapstructure:"catalog"`
	Log     logging.LoggerConfig `mapstructure:"log"`
	History HistoryConfig        `mapstructure:"history"`
	Metrics MetricsConfig        `mapstructure:"metrics"`
	EnvFile string               `mapstructure:"env_file"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

type MVTConfig struct {
	Binary        string        `mapstructure:"binary"`
	ADBBinary     string        `mapstructure:"adb_binary"`
	OutputFolder  string        `mapstructure:"output_folder"`
	IndicatorsDir string        `mapstructure:"indicators_dir"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type CatalogConfig struct {
	// Path to a JSON or YAML catalog; empty uses the embedded one
	Path string `mapstructure:"path"`
}

type HistoryConfig struct {
	PostgresDSN string `mapstructure:"postgres_dsn"`
	Capacity    int    `mapstructure:"capacity"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// DefaultIndicatorsDir is where mvt-android keeps downloaded IOCs
func DefaultIndicatorsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".local", "share", "mvt", "indicators")
	}
	return filepath.Join(home, ".local", "share", "mvt", "indicators")
}

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	logDefaults := logging.DefaultConfig()

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Minute)
	v.SetDefault("server.max_body_bytes", int64(1<<20))

	v.SetDefault("mvt.binary", "mvt-android")
	v.SetDefault("mvt.adb_binary", "adb")
	v.SetDefault("mvt.output_folder", "/tmp/fvm")
	v.SetDefault("mvt.indicators_dir", DefaultIndicatorsDir())
	v.SetDefault("mvt.timeout", 10*time.Minute)

	v.SetDefault("catalog.path", "")

	v.SetDefault("log.level", string(logDefaults.Level))
	v.SetDefault("log.format", string(logDefaults.Format))
	v.SetDefault("log.dir", logDefaults.OutputDir)
	v.SetDefault("log.file", logDefaults.FileName)
	v.SetDefault("log.max_files", logDefaults.MaxFiles)
	v.SetDefault("log.max_size", logDefaults.MaxSize)
	v.SetDefault("log.max_age", logDefaults.MaxAge)
	v.SetDefault("log.timestamp", logDefaults.Timestamp)
	v.SetDefault("log.caller", logDefaults.Caller)
	v.SetDefault("log.colors", logDefaults.Colors)
	v.SetDefault("log.compress", logDefaults.Compress)

	v.SetDefault("history.postgres_dsn", "")
	v.SetDefault("history.capacity", 200)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("env_file", ".env")
}

// Load resolves configuration. configFile may be empty.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the resolved values
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.MVT.Binary == "" || c.MVT.ADBBinary == "" {
		return fmt.Errorf("mvt.binary and mvt.adb_binary must not be empty")
	}
	if c.MVT.Timeout <= 0 {
		return fmt.Errorf("mvt.timeout must be positive")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}
