// Package main is a one-shot CLI: reconstruct every position of a wallet
// and print the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"dlmm-viewer/internal/api"
	"dlmm-viewer/internal/config"
	"dlmm-viewer/internal/dlmm"
	"dlmm-viewer/internal/engine"
	"dlmm-viewer/internal/meteora"
	"dlmm-viewer/internal/metrics"
	"dlmm-viewer/internal/oracle"
	"dlmm-viewer/internal/solana"
	"dlmm-viewer/internal/storage/memory"
	"dlmm-viewer/internal/tokens"
)

type report struct {
	Wallet    string              `json:"wallet"`
	Positions []*api.PositionView `json:"positions"`
	Portfolio *api.PortfolioView  `json:"portfolio"`
}

func main() {
	godotenv.Load()

	var (
		configPath string
		wallet     string
		currency   string
		timeout    time.Duration
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file (optional)")
	flag.StringVar(&wallet, "wallet", "", "Wallet public key (required)")
	flag.StringVar(&currency, "currency", "", "Settlement mint for the portfolio rollup (defaults to the configured reference)")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Overall timeout")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(zerolog.WarnLevel).With().Timestamp().Logger()

	if _, err := dlmm.DecodeBase58Pubkey(wallet); err != nil {
		logger.Fatal().Err(err).Msg("-wallet must be a base58 public key")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if currency == "" {
		currency = cfg.Portfolio.ReferenceMint
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	rpc := solana.NewHTTPClient(cfg.Solana.RPCEndpoint)
	resolver := tokens.NewService(rpc, memory.NewTokenMetadataStore(), logger)

	priceOracle := oracle.NewClient(buildPriceSource(cfg.Oracle), logger,
		oracle.WithTTL(cfg.Oracle.SpotTTL, cfg.Oracle.HistoryTTL))

	var opts []engine.ServiceOption
	if cfg.Indexer.Enabled {
		opts = append(opts, engine.WithIndexer(
			meteora.NewClient(logger, meteora.WithBaseURL(cfg.Indexer.BaseURL))))
	}
	service := engine.NewService(rpc, resolver, priceOracle, logger, opts...)
	runner := engine.NewRunner(service,
		engine.NewBackfiller(priceOracle, cfg.Portfolio.ReferenceMint, logger))

	positions, err := runner.ReconstructWallet(ctx, wallet)
	if err != nil {
		logger.Fatal().Err(err).Msg("reconstruction failed")
	}

	out := report{Wallet: wallet}
	for _, p := range positions {
		out.Positions = append(out.Positions, api.NewPositionView(p))
	}
	out.Portfolio = api.NewPortfolioView(wallet, currency, len(positions),
		metrics.RollUp(positions, currency))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Fatal().Err(err).Msg("failed to encode report")
	}
}

func buildPriceSource(cfg config.OracleConfig) *oracle.HTTPSource {
	var opts []oracle.SourceOption
	if cfg.PriceURL != "" {
		opts = append(opts, oracle.WithPriceURL(cfg.PriceURL))
	}
	if cfg.HistoryURL != "" {
		opts = append(opts, oracle.WithHistoryURL(cfg.HistoryURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, oracle.WithAPIKey(cfg.APIKey))
	}
	return oracle.NewHTTPSource(opts...)
}
