// Package config loads a syncdbd replica's configuration with
// spf13/viper: defaults, a config file, and SYNCDB_-prefixed
// environment overrides, in that precedence order (env wins).
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// StorageConfig selects and configures the storage backend (spec
// §4.3: any Store implementation is pluggable).
type StorageConfig struct {
	Kind   string `mapstructure:"kind"` // "memory" | "redis"
	Memory struct {
		Capacity int `mapstructure:"capacity"` // 0 = unbounded
	} `mapstructure:"memory"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
		Prefix   string `mapstructure:"prefix"`
	} `mapstructure:"redis"`
}

// SyncConfig selects and configures the transport/replication layer.
type SyncConfig struct {
	Kind             string        `mapstructure:"kind"` // "manual" | "websocket"
	URL              string        `mapstructure:"url"`
	ReplicaID        string        `mapstructure:"replicaId"`
	AutoSyncInterval time.Duration `mapstructure:"autoSyncInterval"`
	PreferMerge      bool          `mapstructure:"preferMerge"`
}

// HTTPConfig configures the gin-based admin/WebSocket-upgrade surface.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// AuthorizationConfig is an extension point (spec §6): syncdb itself
// enforces no policy, but a DefaultSubject lets an embedder stamp
// every locally originated operation with an identity for a
// downstream authorization layer to consume.
type AuthorizationConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	DefaultSubject string `mapstructure:"defaultSubject"`
}

// Config is the root configuration for a syncdbd process.
type Config struct {
	Storage       StorageConfig       `mapstructure:"storage"`
	Sync          SyncConfig          `mapstructure:"sync"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Authorization AuthorizationConfig `mapstructure:"authorization"`
	LogLevel      string              `mapstructure:"logLevel"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.kind", "memory")
	v.SetDefault("storage.memory.capacity", 0)
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.prefix", "syncdb:")

	v.SetDefault("sync.kind", "manual")
	v.SetDefault("sync.autoSyncInterval", 5*time.Second)
	v.SetDefault("sync.preferMerge", false)

	v.SetDefault("http.addr", ":8080")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("authorization.enabled", false)

	v.SetDefault("logLevel", "info")
}

// Load reads configuration from configPath (if non-empty and
// present), then SYNCDB_-prefixed environment variables, which take
// precedence over both the file and the defaults above.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SYNCDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			_, notFound := err.(viper.ConfigFileNotFoundError)
			if !notFound && !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
