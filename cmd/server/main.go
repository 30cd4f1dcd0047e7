package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	automationapp "github.com/sellsync/backend/internal/application/automation"
	reconcileapp "github.com/sellsync/backend/internal/application/reconcile"
	stocksyncapp "github.com/sellsync/backend/internal/application/stocksync"
	"github.com/sellsync/backend/internal/infrastructure/cache"
	"github.com/sellsync/backend/internal/infrastructure/config"
	"github.com/sellsync/backend/internal/infrastructure/event"
	"github.com/sellsync/backend/internal/infrastructure/formula"
	"github.com/sellsync/backend/internal/infrastructure/logger"
	mkt "github.com/sellsync/backend/internal/infrastructure/marketplace"
	"github.com/sellsync/backend/internal/infrastructure/persistence"
	"github.com/sellsync/backend/internal/infrastructure/scheduler"
	"github.com/sellsync/backend/internal/interfaces/http/handler"
	"github.com/sellsync/backend/internal/interfaces/http/router"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting sellsync backend",
		zap.String("version", version),
		zap.String("env", cfg.App.Env))

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, cfg.Log.Level)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	if err := persistence.AutoMigrate(db.DB); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Repositories
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	mappingRepo := persistence.NewGormProductMappingRepository(db.DB)
	inventoryRepo := persistence.NewGormInventoryRepository(db.DB)
	syncRuleRepo := persistence.NewGormSyncRuleRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)
	automationRepo := persistence.NewGormAutomationRuleRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Event bus
	bus := event.NewInMemoryEventBus(log)

	// Marketplace adapters. The sandbox adapters serve development and
	// tests; production talks to the real seller APIs.
	registry := mkt.NewRegistry()
	if cfg.App.Env == "production" {
		for _, profile := range mkt.DefaultProfiles() {
			adapter, err := mkt.NewHTTPAdapter(profile)
			if err != nil {
				log.Fatal("failed to build marketplace adapter",
					zap.String("marketplace", string(profile.Code)), zap.Error(err))
			}
			registry.Register(adapter)
		}
	} else {
		for _, profile := range mkt.DefaultProfiles() {
			registry.Register(mkt.NewSandboxAdapter(profile.Code))
		}
	}

	// Order reconciliation
	reconcileEngine := reconcileapp.NewEngine(
		reconcileapp.Config{
			MaxPages:       cfg.Reconcile.MaxPages,
			PageSize:       cfg.Reconcile.PageSize,
			AdapterTimeout: cfg.Reconcile.AdapterTimeout,
		},
		accountRepo, registry, productRepo, txScope, bus, log,
	)

	// Automation rules, with a Redis read-through cache when available
	redisCfg := cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	var automationRules automationapp.RuleProvider = &automationapp.RepositoryRuleProvider{Repo: automationRepo}
	automationCache, err := cache.NewRedisAutomationRuleCache(redisCfg, automationRules,
		cache.WithAutomationRuleLogger(log))
	if err != nil {
		log.Warn("redis unavailable, automation rules read from database", zap.Error(err))
	} else {
		defer func() { _ = automationCache.Close() }()
		automationRules = automationCache
	}
	evaluator := automationapp.NewEvaluator(automationRules, orderRepo, bus, log)
	reconcileEngine.SetEvaluator(evaluator)

	// Stock sync rules, same caching arrangement
	var syncRules stocksyncapp.RuleProvider = &stocksyncapp.RepositoryRuleProvider{Repo: syncRuleRepo}
	syncRuleCache, err := cache.NewRedisSyncRuleCache(redisCfg, syncRules,
		cache.WithSyncRuleTTL(cfg.StockSync.RuleCacheTTL),
		cache.WithSyncRuleLogger(log))
	if err != nil {
		log.Warn("redis unavailable, sync rules cached in process memory", zap.Error(err))
		memCache := cache.NewInMemorySyncRuleCache(syncRules, cfg.StockSync.RuleCacheTTL)
		defer func() { _ = memCache.Close() }()
		syncRules = memCache
	} else {
		defer func() { _ = syncRuleCache.Close() }()
		syncRules = syncRuleCache
	}

	stockEngine := stocksyncapp.NewEngine(
		syncRules, accountRepo, mappingRepo, productRepo, inventoryRepo,
		syncLogRepo, registry, formula.NewEvaluator(), bus, log,
	)
	bus.Subscribe(stockEngine, stockEngine.EventTypes()...)

	// Background scheduling
	sched, err := scheduler.NewScheduler(
		scheduler.Config{
			MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
			JobTimeout:        cfg.Scheduler.JobTimeout,
			RetryAttempts:     3,
			RetryDelay:        time.Minute,
		},
		scheduler.NewReconcileExecutor(reconcileEngine),
		log,
	)
	if err != nil {
		log.Fatal("failed to create scheduler", zap.Error(err))
	}
	trigger := scheduler.NewReconcileTrigger(
		scheduler.TriggerConfig{
			Interval: cfg.Scheduler.ReconcileInterval,
			Lookback: cfg.Reconcile.Lookback,
		},
		sched, accountRepo, log,
	)
	sweeper := scheduler.NewStockSweeper(
		scheduler.SweepConfig{
			Interval: cfg.Scheduler.StockSweepInterval,
			Lookback: cfg.StockSync.SweepLookback,
			Timeout:  cfg.Scheduler.JobTimeout,
		},
		stockEngine, log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Scheduler.Enabled {
		if err := sched.Start(ctx); err != nil {
			log.Fatal("failed to start scheduler", zap.Error(err))
		}
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("failed to start reconcile trigger", zap.Error(err))
		}
		if err := sweeper.Start(ctx); err != nil {
			log.Fatal("failed to start stock sweeper", zap.Error(err))
		}
	} else {
		// Manual runs still need the worker pool
		if err := sched.Start(ctx); err != nil {
			log.Fatal("failed to start scheduler", zap.Error(err))
		}
		log.Info("periodic scheduling disabled, manual sync only")
	}

	// HTTP surface
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(router.RequestID(), logger.GinMiddleware(log), logger.Recovery(log))
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("invalid trusted proxies", zap.Error(err))
		}
	}

	r := router.New(engine)
	r.RegisterRoot(handler.NewSystemHandler(db, version))
	r.Register(
		handler.NewSyncHandler(trigger, sched, stockEngine, syncLogRepo),
		handler.NewOrderHandler(orderRepo, reconcileEngine),
	)

	server := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		if err := sweeper.Stop(shutdownCtx); err != nil {
			log.Error("stock sweeper shutdown failed", zap.Error(err))
		}
		if err := trigger.Stop(shutdownCtx); err != nil {
			log.Error("reconcile trigger shutdown failed", zap.Error(err))
		}
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error("scheduler shutdown failed", zap.Error(err))
	}

	log.Info("shutdown complete")
}
