// Package config loads application configuration from a file and
// environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// USDCMint is the default settlement reference.
const USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Solana    SolanaConfig    `mapstructure:"solana"`
	Indexer   IndexerConfig   `mapstructure:"indexer"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Portfolio PortfolioConfig `mapstructure:"portfolio"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	ListenAddr   string        `mapstructure:"listen_addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type SolanaConfig struct {
	RPCEndpoint string `mapstructure:"rpc_endpoint"`
	WSEndpoint  string `mapstructure:"ws_endpoint"`
}

type IndexerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
}

type OracleConfig struct {
	PriceURL   string        `mapstructure:"price_url"`
	HistoryURL string        `mapstructure:"history_url"`
	APIKey     string        `mapstructure:"api_key"`
	SpotTTL    time.Duration `mapstructure:"spot_ttl"`
	HistoryTTL time.Duration `mapstructure:"history_ttl"`
}

type PortfolioConfig struct {
	// ReferenceMint is the settlement currency for cross-position totals.
	ReferenceMint string `mapstructure:"reference_mint"`
}

type DatabaseConfig struct {
	// Empty DSNs disable the durable caches; everything falls back to
	// in-memory stores.
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the optional file at configPath and from
// DLMM_-prefixed environment variables. Environment overrides the file.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DLMM")
	v.AutomaticEnv()

	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("solana.rpc_endpoint", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana.ws_endpoint", "")
	v.SetDefault("indexer.enabled", true)
	v.SetDefault("indexer.base_url", "https://dlmm-api.meteora.ag")
	v.SetDefault("oracle.price_url", "")
	v.SetDefault("oracle.history_url", "")
	v.SetDefault("oracle.api_key", "")
	v.SetDefault("oracle.spot_ttl", "60s")
	v.SetDefault("oracle.history_ttl", "5m")
	v.SetDefault("portfolio.reference_mint", USDCMint)
	v.SetDefault("database.postgres_dsn", "")
	v.SetDefault("database.clickhouse_dsn", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
