package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	appstore "github.com/storefront/stores/internal/application/store"
	"github.com/storefront/stores/internal/infrastructure/cache"
	"github.com/storefront/stores/internal/infrastructure/config"
	"github.com/storefront/stores/internal/infrastructure/logger"
	"github.com/storefront/stores/internal/infrastructure/persistence"
	"github.com/storefront/stores/internal/infrastructure/rates"
	"github.com/storefront/stores/internal/interfaces/http/handler"
	"github.com/storefront/stores/internal/interfaces/http/middleware"
	"github.com/storefront/stores/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting stores backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database with a bounded pool; queries log through zap.
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Redis is a soft dependency: a failed ping only means reads start
	// in degraded mode, so it is logged, not fatal.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	{
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn("Redis unreachable at startup, cache reads will degrade", zap.Error(err))
		}
		cancel()
	}

	profileCache := cache.NewProfileCache(redisClient, cfg.Cache.ProfileTTL, cfg.Cache.NegativeTTL, log)
	profileRepo := persistence.NewGormStoreProfileRepository(db.DB)

	// Rate refresher runs for the whole process lifetime.
	refresher := rates.NewRefresher(rates.NewClient(&cfg.Rates), &cfg.Rates, log)
	refreshCtx, stopRefresher := context.WithCancel(context.Background())
	defer stopRefresher()
	go refresher.Run(refreshCtx)

	profileService := appstore.NewProfileService(profileRepo, profileCache, refresher, log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Metrics(),
		middleware.Timeout(cfg.HTTP.RequestTimeout),
	)

	r := router.NewRouter(engine)
	r.Register(handler.NewStoreProfileHandler(profileService))
	r.Register(handler.NewSystemHandler(db, profileCache, refresher))
	r.Setup()

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	stopRefresher()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
