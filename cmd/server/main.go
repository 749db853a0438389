package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"strategyhub/internal/auth"
	"strategyhub/internal/cache"
	"strategyhub/internal/config"
	cronrunner "strategyhub/internal/cron"
	"strategyhub/internal/db"
	"strategyhub/internal/events"
	"strategyhub/internal/handler"
	"strategyhub/internal/logger"
	"strategyhub/internal/metrics"
	"strategyhub/internal/middleware"
	gormrepository "strategyhub/internal/repository/gorm"
	"strategyhub/internal/service"

	_ "strategyhub/docs"
)

func main() {
	cfgPath := os.Getenv("SH_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("SH_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("auth.jwt_secret is required")
	}

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	m := metrics.New("strategyhub")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cacheStore := newCacheStore(ctx, cfg.Cache, logger)

	publisher, outbox, closePublisher := newPublisher(cfg.Events, store, logger)
	defer closePublisher()

	jwt := auth.JWT{
		Secret:     []byte(cfg.Auth.JWTSecret),
		Issuer:     cfg.Auth.Issuer,
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	}
	requireUser := auth.RequireUser(jwt, store)

	authSvc := &service.AuthService{
		Repo:       store,
		JWT:        jwt,
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	}
	strategySvc := &service.StrategyService{
		Repo:       store,
		Cache:      cacheStore,
		CacheTTL:   cfg.Cache.StrategiesTTL,
		Events:     publisher,
		Metrics:    m,
		Logger:     logger,
		Simulation: cfg.Simulation,
	}

	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger(logger))
	engine.Use(middleware.Recovery(logger))
	engine.Use(m.Middleware())

	healthHandler := &handler.HealthHandler{DB: dbConn}
	healthHandler.Register(engine)
	authHandler := &handler.AuthHandler{Auth: authSvc, RequireUser: requireUser}
	authHandler.Register(engine)
	strategyHandler := &handler.StrategyHandler{Strategies: strategySvc, RequireUser: requireUser}
	strategyHandler.Register(engine)
	m.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	cronRunner := cronrunner.New(logger, ctx)
	if outbox != nil {
		_, err = cronRunner.Add("outbox_flush", cfg.Events.FlushSpec, func(ctx context.Context) error {
			_, err := outbox.Flush(ctx)
			return err
		})
		if err != nil {
			logger.Warn("cron register outbox flush failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func newCacheStore(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) cache.Store {
	if !strings.EqualFold(cfg.Backend, "redis") {
		return cache.NewMemoryStore()
	}
	rs := cache.NewRedisStore(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rs.Ping(ctx); err != nil {
		logger.Warn("redis ping failed", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	return rs
}

func newPublisher(cfg config.EventsConfig, store *gormrepository.Store, logger *zap.Logger) (events.Publisher, *events.OutboxPublisher, func()) {
	if len(cfg.Brokers) == 0 {
		logger.Info("no kafka brokers configured, events go to the log")
		return events.LogPublisher{Logger: logger}, nil, func() {}
	}
	kp := events.NewKafkaPublisher(events.KafkaConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		WriteTimeout: cfg.WriteTimeout,
		MaxAttempts:  cfg.MaxAttempts,
	}, logger)
	closeFn := func() {
		if err := kp.Close(); err != nil {
			logger.Warn("kafka writer close failed", zap.Error(err))
		}
	}
	if !cfg.Outbox {
		return kp, nil, closeFn
	}
	ob := &events.OutboxPublisher{
		Next:       kp,
		Repo:       store,
		Logger:     logger,
		BatchSize:  cfg.FlushBatch,
		MaxRetries: cfg.MaxRetries,
	}
	return ob, ob, closeFn
}
