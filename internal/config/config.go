// Package config handles configuration loading and validation for the
// trex-miner daemon.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/NexTokenTech/TREX-PoW/internal/consts"
)

// Config holds all configuration for the miner.
type Config struct {
	Chain          ChainConfig          `mapstructure:"chain"`
	Mining         MiningConfig         `mapstructure:"mining"`
	Difficulty     DifficultyConfig     `mapstructure:"difficulty"`
	CollisionStore CollisionStoreConfig `mapstructure:"collision_store"`
	API            APIConfig            `mapstructure:"api"`
	StatusStream   StatusStreamConfig   `mapstructure:"status_stream"`
	Telemetry      TelemetryConfig      `mapstructure:"telemetry"`
	Log            LogConfig            `mapstructure:"log"`
}

// ChainConfig defines how the miner reaches the host blockchain.
type ChainConfig struct {
	NodeURL string        `mapstructure:"node_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MiningConfig carries spec.md's three core configuration flags.
type MiningConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Author  string `mapstructure:"author"`
	CPUs    int    `mapstructure:"cpus"`
}

// DifficultyConfig overrides the canonical retarget constants, mainly for
// test networks that want faster convergence than mainnet parameters.
type DifficultyConfig struct {
	Initial         uint64 `mapstructure:"initial"`
	Min             uint64 `mapstructure:"min"`
	Max             uint64 `mapstructure:"max"`
	TargetBlockTime int64  `mapstructure:"target_block_time_ms"`
}

// CollisionStoreConfig selects and configures the distinguished-point
// store the parallel solver shares collisions through.
type CollisionStoreConfig struct {
	Kind     string `mapstructure:"kind"` // "memory" or "redis"
	RedisURL string `mapstructure:"redis_url"`
	Password string `mapstructure:"redis_password"`
	DB       int    `mapstructure:"redis_db"`
}

// APIConfig defines the read-only status/metrics HTTP server.
type APIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Bind    string `mapstructure:"bind"`
}

// StatusStreamConfig defines the websocket broadcaster of driver events.
type StatusStreamConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Bind    string `mapstructure:"bind"`
}

// TelemetryConfig defines the optional APM wrapper.
type TelemetryConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	AppName    string `mapstructure:"app_name"`
	LicenseKey string `mapstructure:"license_key"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Load reads configuration from file and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/trex-miner")
	}

	v.SetEnvPrefix("TREX_POW")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("chain.node_url", "http://127.0.0.1:9933")
	v.SetDefault("chain.timeout", "10s")

	v.SetDefault("mining.enabled", true)
	v.SetDefault("mining.author", "")
	v.SetDefault("mining.cpus", 0)

	v.SetDefault("difficulty.initial", consts.InitDifficulty)
	v.SetDefault("difficulty.min", consts.MinDifficulty)
	v.SetDefault("difficulty.max", consts.MaxDifficulty)
	v.SetDefault("difficulty.target_block_time_ms", consts.BlockTimeMillisec)

	v.SetDefault("collision_store.kind", "memory")
	v.SetDefault("collision_store.redis_db", 0)

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.bind", "0.0.0.0:8080")

	v.SetDefault("status_stream.enabled", false)
	v.SetDefault("status_stream.bind", "0.0.0.0:8081")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.app_name", "trex-miner")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.Chain.NodeURL == "" {
		return fmt.Errorf("chain.node_url is required")
	}

	if c.Difficulty.Min > c.Difficulty.Max {
		return fmt.Errorf("difficulty.min must be <= difficulty.max")
	}

	if c.Difficulty.Initial < c.Difficulty.Min || c.Difficulty.Initial > c.Difficulty.Max {
		return fmt.Errorf("difficulty.initial must be within [difficulty.min, difficulty.max]")
	}

	if c.Difficulty.TargetBlockTime <= 0 {
		return fmt.Errorf("difficulty.target_block_time_ms must be positive")
	}

	switch c.CollisionStore.Kind {
	case "memory":
	case "redis":
		if c.CollisionStore.RedisURL == "" {
			return fmt.Errorf("collision_store.redis_url is required when collision_store.kind is \"redis\"")
		}
	default:
		return fmt.Errorf("collision_store.kind must be \"memory\" or \"redis\", got %q", c.CollisionStore.Kind)
	}

	if c.Mining.CPUs < 0 {
		return fmt.Errorf("mining.cpus must be >= 0 (0 means use all available CPUs)")
	}

	return nil
}
