package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockwell/replenish/internal/cache"
	"github.com/stockwell/replenish/internal/config"
	"github.com/stockwell/replenish/internal/database"
	"github.com/stockwell/replenish/internal/domain"
	"github.com/stockwell/replenish/internal/engine"
	"github.com/stockwell/replenish/internal/modules/alerts"
	"github.com/stockwell/replenish/internal/modules/analytics"
	"github.com/stockwell/replenish/internal/modules/catalog"
	"github.com/stockwell/replenish/internal/modules/forecast"
	"github.com/stockwell/replenish/internal/modules/history"
	"github.com/stockwell/replenish/internal/modules/orders"
	"github.com/stockwell/replenish/internal/modules/patterns"
	"github.com/stockwell/replenish/internal/modules/reorder"
	"github.com/stockwell/replenish/internal/monitor"
	"github.com/stockwell/replenish/internal/reliability"
	"github.com/stockwell/replenish/internal/scheduler"
	"github.com/stockwell/replenish/internal/server"
	"github.com/stockwell/replenish/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not configured yet; fall back to a default one
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Int("port", cfg.Port).
		Bool("offline", cfg.Offline).
		Msg("Starting Replenish")

	// Databases
	catalogDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "catalog.db"),
		Profile: database.ProfileStandard,
		Name:    "catalog",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open catalog database")
	}
	defer catalogDB.Close()

	ordersDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "orders.db"),
		Profile: database.ProfileLedger,
		Name:    "orders",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open orders database")
	}
	defer ordersDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	databases := map[string]*database.DB{
		"catalog": catalogDB,
		"orders":  ordersDB,
		"cache":   cacheDB,
	}
	for _, db := range databases {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Migration failed")
		}
	}

	// Repositories
	productRepo := catalog.NewProductRepository(catalogDB.Conn(), log)
	salesRepo := catalog.NewSalesRepository(catalogDB.Conn(), log)
	orderRepo := orders.NewRepository(ordersDB.Conn(), log)
	cacheRepo := cache.NewRepository(cacheDB.Conn())

	// Data sources: the offline mode swaps the catalog-backed sources for
	// deterministic synthetic ones.
	var salesSource domain.SalesHistorySource = salesRepo
	var productStore domain.ProductStore = productRepo
	var lowStock monitor.LowStockLister = productRepo
	if cfg.Offline {
		log.Warn().Msg("Offline mode: using synthetic sales and catalog data")
		offlineStore := engine.NewOfflineProductStore()
		salesSource = engine.NewOfflineSalesSource(engine.OfflineProducts())
		productStore = offlineStore
		lowStock = offlineStore
	}

	// Core services
	aggregator := history.NewAggregator(salesSource, cacheRepo, cfg.HistoryWindowDays, log)
	extractor := patterns.NewExtractor(log)
	forecaster := forecast.NewForecaster(time.Now().UnixNano(), log)
	forecastSvc := forecast.NewService(forecaster, log)
	reorderSvc := reorder.NewService(productStore, log)
	alertLog := alerts.NewLog(alerts.DefaultCapacity, log)
	orderSvc := orders.NewService(orderRepo, productStore, log)
	generator := orders.NewGenerator(productStore, reorderSvc, orderRepo, alertLog, cfg.ConfidenceThreshold, log)
	analyticsSvc := analytics.NewService(forecastSvc, reorderSvc, productStore, salesRepo, cacheRepo, log)

	eng := engine.New(aggregator, extractor, forecastSvc, reorderSvc, log)
	if err := eng.Retrain(); err != nil {
		log.Error().Err(err).Msg("Initial retrain failed, continuing without forecasts")
	}

	// Background jobs
	sched := scheduler.New(log)
	registerJobs(sched, cfg, eng, lowStock, reorderSvc, forecastSvc, alertLog, generator, cacheRepo, databases, log)
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Port:   cfg.Port,
		Log:    log,
		Config: cfg,
		System: server.NewSystemHandlers(databases, log),
		Modules: []server.RouteRegistrar{
			catalog.NewHandler(productRepo, log),
			forecast.NewHandler(forecastSvc, log),
			reorder.NewHandler(reorderSvc, log),
			orders.NewHandler(orderSvc, generator, log),
			alerts.NewHandler(alertLog, log),
			analytics.NewHandler(analyticsSvc, log),
			engine.NewHandler(eng, log),
		},
		DevMode: cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}

func registerJobs(
	sched *scheduler.Scheduler,
	cfg *config.Config,
	eng *engine.Engine,
	lowStock monitor.LowStockLister,
	reorderSvc *reorder.Service,
	forecastSvc *forecast.Service,
	alertLog *alerts.Log,
	generator *orders.Generator,
	cacheRepo *cache.Repository,
	databases map[string]*database.DB,
	log zerolog.Logger,
) {
	if err := sched.AddJob(cfg.RetrainSchedule, eng); err != nil {
		log.Fatal().Err(err).Msg("Failed to register retrain job")
	}

	stockJob := monitor.NewStockMonitorJob(lowStock, reorderSvc, forecastSvc, alertLog, cfg.LowStockThreshold, log)
	if err := sched.AddJob(cfg.StockMonitorSchedule, stockJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register stock monitor job")
	}

	autoOrderJob := monitor.NewAutoOrderJob(generator, log)
	if err := sched.AddJob(cfg.AutoOrderSchedule, autoOrderJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register auto-order job")
	}

	cleanupJob := cache.NewCleanupJob(cacheRepo, log)
	if err := sched.AddJob(cfg.CacheCleanupSchedule, cleanupJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache cleanup job")
	}

	if cfg.Backup != nil && cfg.Backup.Enabled {
		client, err := reliability.NewS3Client(context.Background(), cfg.Backup, log)
		if err != nil {
			log.Error().Err(err).Msg("Backup disabled: S3 client initialization failed")
			return
		}
		backupSvc := reliability.NewBackupService(client, databases, cfg.DataDir, cfg.Backup.Retention, log)
		if err := sched.AddJob(cfg.BackupSchedule, reliability.NewBackupJob(backupSvc)); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	}
}
