// Package main is the entry point for the Quantfolio selection server.
// It wires the history and cache databases, the market data feed, the
// scheduler, and the HTTP API, then blocks until a shutdown signal.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/quantfolio/quantfolio/internal/clients/marketdata"
	"github.com/quantfolio/quantfolio/internal/config"
	"github.com/quantfolio/quantfolio/internal/database"
	"github.com/quantfolio/quantfolio/internal/modules/calculations"
	"github.com/quantfolio/quantfolio/internal/modules/performance"
	"github.com/quantfolio/quantfolio/internal/modules/selection"
	selectionhandlers "github.com/quantfolio/quantfolio/internal/modules/selection/handlers"
	"github.com/quantfolio/quantfolio/internal/modules/statistics"
	"github.com/quantfolio/quantfolio/internal/modules/universe"
	universehandlers "github.com/quantfolio/quantfolio/internal/modules/universe/handlers"
	"github.com/quantfolio/quantfolio/internal/scheduler"
	"github.com/quantfolio/quantfolio/internal/server"
	"github.com/quantfolio/quantfolio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logging is not configured yet.
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Bool("dev_mode", cfg.DevMode).
		Msg("Starting Quantfolio")

	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	for _, db := range []*database.DB{historyDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to apply schema")
		}
	}

	// Domain services.
	priceRepo := universe.NewPriceRepository(historyDB, log)
	calcCache := calculations.NewCache(cacheDB, log)
	estimator := statistics.NewEstimator(priceRepo, calcCache, log)
	evaluator := performance.NewEvaluator(cfg.AnnualizationPct, log)
	selectionService := selection.NewService(estimator, evaluator, log)

	// Background price sync.
	feed := marketdata.New(cfg.MarketDataURL, log)
	syncJob := universe.NewPriceSyncJob(feed, priceRepo, statistics.DefaultLookbackDays, log)

	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.PriceSyncSpec, syncJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register price sync job")
	}
	if err := sched.AddJob(cfg.CachePurgeSpec, calculations.NewPurgeJob(calcCache, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache purge job")
	}
	sched.Start()
	defer sched.Stop()

	// HTTP API.
	srv := server.New(server.Config{
		Log:               log,
		Config:            cfg,
		HistoryDB:         historyDB,
		CacheDB:           cacheDB,
		SelectionHandlers: selectionhandlers.NewHandler(selectionService, log),
		UniverseHandlers:  universehandlers.NewHandler(priceRepo, log),
		Port:              cfg.Port,
		DevMode:           cfg.DevMode,
	})
	srv.SetPriceSyncTrigger(func() error { return sched.RunNow(syncJob) })

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server stopped")
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Quantfolio stopped")
}
