// Package config loads and parses the application configuration.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env         string `mapstructure:"env"`
	StoragePath string `mapstructure:"storage_path"`
	HTTPServer  `mapstructure:"http_server"`
	Mining      Mining `mapstructure:"mining"`
}

type HTTPServer struct {
	Address     string        `mapstructure:"address"`
	Timeout     time.Duration `mapstructure:"timeout"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// Mining holds the proof-of-work parameters. Difficulty is the required count
// of leading zero hex digits in a block hash; BlockReward is informational;
// Workers is the number of goroutines racing over the nonce space;
// FaucetAmount is the development-mode starting balance of new wallets.
type Mining struct {
	Difficulty   int     `mapstructure:"difficulty"`
	BlockReward  float64 `mapstructure:"block_reward"`
	Workers      int     `mapstructure:"workers"`
	FaucetAmount float64 `mapstructure:"faucet_amount"`
}

// Load reads the configuration from the given directory.
// 1. config.yaml is tried first
// 2. config.example.yaml is the fallback
func Load(configPath string) (*Config, error) {
	viper.AddConfigPath(configPath)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("BLOCKLEDGER")
	viper.AutomaticEnv()

	viper.SetDefault("env", "development")
	viper.SetDefault("http_server.address", "0.0.0.0:8080")
	viper.SetDefault("http_server.timeout", "4s")
	viper.SetDefault("http_server.idle_timeout", "60s")
	viper.SetDefault("storage_path", "/app/data/ledger.db")
	viper.SetDefault("mining.difficulty", 3)
	viper.SetDefault("mining.block_reward", 10)
	viper.SetDefault("mining.workers", 1)
	viper.SetDefault("mining.faucet_amount", 0)

	if err := viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config.example")
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, err
	}

	if cfg.Mining.Difficulty < 1 {
		return nil, fmt.Errorf("mining.difficulty must be positive, got %d", cfg.Mining.Difficulty)
	}

	return &cfg, nil
}

// parseDurations converts the string timeouts into time.Duration values.
func parseDurations(cfg *Config) error {
	timeout, err := time.ParseDuration(viper.GetString("http_server.timeout"))
	if err != nil {
		return fmt.Errorf("failed to parse http_server.timeout: %w", err)
	}
	idleTimeout, err := time.ParseDuration(viper.GetString("http_server.idle_timeout"))
	if err != nil {
		return fmt.Errorf("failed to parse http_server.idle_timeout: %w", err)
	}

	cfg.HTTPServer.Timeout = timeout
	cfg.HTTPServer.IdleTimeout = idleTimeout
	return nil
}
