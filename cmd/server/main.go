// Package main runs the position viewer API server: on-demand wallet
// reconstruction over Solana RPC and the Meteora indexer, priced through
// the oracle, served as JSON.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"dlmm-viewer/internal/api"
	"dlmm-viewer/internal/config"
	"dlmm-viewer/internal/engine"
	"dlmm-viewer/internal/meteora"
	"dlmm-viewer/internal/observability"
	"dlmm-viewer/internal/oracle"
	"dlmm-viewer/internal/solana"
	"dlmm-viewer/internal/storage"
	chstore "dlmm-viewer/internal/storage/clickhouse"
	"dlmm-viewer/internal/storage/memory"
	"dlmm-viewer/internal/storage/migrations"
	pgstore "dlmm-viewer/internal/storage/postgres"
	"dlmm-viewer/internal/tokens"
)

func main() {
	// .env is optional; system environment wins either way.
	godotenv.Load()

	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging)
	logger.Info().Str("listen_addr", cfg.Server.ListenAddr).Msg("starting position viewer")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rpc := solana.NewHTTPClient(cfg.Solana.RPCEndpoint)

	metaStore, seriesStore := buildStores(ctx, cfg, logger)

	resolver := tokens.NewService(rpc, metaStore, logger)

	priceSource := buildPriceSource(cfg.Oracle)
	priceOracle := oracle.NewClient(priceSource, logger,
		oracle.WithTTL(cfg.Oracle.SpotTTL, cfg.Oracle.HistoryTTL),
		oracle.WithSeriesStore(seriesStore),
		oracle.WithCacheCounters(
			observability.DefaultMetrics.PriceCacheHits,
			observability.DefaultMetrics.PriceCacheMisses,
		),
	)

	var opts []engine.ServiceOption
	if cfg.Indexer.Enabled {
		opts = append(opts, engine.WithIndexer(
			meteora.NewClient(logger, meteora.WithBaseURL(cfg.Indexer.BaseURL))))
	}
	service := engine.NewService(rpc, resolver, priceOracle, logger, opts...)

	backfiller := engine.NewBackfiller(priceOracle, cfg.Portfolio.ReferenceMint, logger)
	runner := engine.NewRunner(service, backfiller)

	if cfg.Solana.WSEndpoint != "" {
		ws, err := solana.NewWSClient(ctx, cfg.Solana.WSEndpoint, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("websocket unavailable, pool refresh disabled")
		} else {
			defer ws.Close()
			go service.WatchPairs(ctx, ws)
		}
	}

	go trackUptime(ctx)

	apiServer := api.NewServer(runner, cfg.Portfolio.ReferenceMint, logger)
	server := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      apiServer.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", cfg.Server.ListenAddr).Msg("serving")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server failed")
	}
	logger.Info().Msg("shut down")
}

// buildStores connects the configured durable caches, falling back to
// in-memory stores when a DSN is absent or the backend is unreachable.
// Neither cache is authoritative, so degraded startup beats no startup.
func buildStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (storage.TokenMetadataStore, oracle.SeriesStore) {
	var metaStore storage.TokenMetadataStore = memory.NewTokenMetadataStore()
	if dsn := cfg.Database.PostgresDSN; dsn != "" {
		pool, err := pgstore.NewPool(ctx, dsn)
		if err != nil {
			logger.Warn().Err(err).Msg("postgres unavailable, using in-memory metadata store")
		} else if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Warn().Err(err).Msg("postgres migrations failed, using in-memory metadata store")
		} else {
			metaStore = pgstore.NewTokenMetadataStore(pool)
			logger.Info().Msg("token metadata store: postgres")
		}
	}

	var seriesStore oracle.SeriesStore = memory.NewPriceSeriesStore()
	if dsn := cfg.Database.ClickhouseDSN; dsn != "" {
		conn, err := chstore.NewConn(ctx, dsn)
		if err != nil {
			logger.Warn().Err(err).Msg("clickhouse unavailable, using in-memory series store")
		} else if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			logger.Warn().Err(err).Msg("clickhouse migrations failed, using in-memory series store")
		} else {
			seriesStore = chstore.NewPriceSeriesStore(conn)
			logger.Info().Msg("price series store: clickhouse")
		}
	}

	return metaStore, seriesStore
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

func trackUptime(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observability.DefaultMetrics.UptimeSeconds.Inc()
		}
	}
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05.000"}
		return zerolog.New(output).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}
