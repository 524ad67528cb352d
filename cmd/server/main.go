package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/geofence-verify/internal/api"
	"github.com/jengzang/geofence-verify/internal/config"
	"github.com/jengzang/geofence-verify/internal/database"
	"github.com/jengzang/geofence-verify/internal/geoip"
	"github.com/jengzang/geofence-verify/internal/kvstore"
	"github.com/jengzang/geofence-verify/internal/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := newLogger(cfg)
	log.Logger = logger
	if !strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer database.Close()

	// 初始化键值存储
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer closeStore()

	// IP 定位 (可选)
	var locator geoip.Locator = geoip.NopLocator{}
	if cfg.GeoIPDBPath != "" {
		l, err := geoip.Open(cfg.GeoIPDBPath)
		if err != nil {
			logger.Warn().Err(err).Msg("GeoIP disabled")
		} else {
			locator = l
		}
	}
	defer locator.Close()

	limiter := middleware.NewRateLimiter(cfg.IPRateLimit, time.Minute)
	go limiter.Run(ctx)

	// 初始化路由
	router, err := api.SetupRouter(cfg, api.Dependencies{
		DB:      database.GetDB(),
		Store:   store,
		Locator: locator,
		Limiter: limiter,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to set up router")
	}

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		logger.Info().Str("addr", cfg.Port).Str("store", cfg.StoreDriver).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Str("service", "geofence-verify").Logger()
}

// openStore 按 STORE_DRIVER 选择存储
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (kvstore.Store, func(), error) {
	if cfg.StoreDriver == "redis" {
		redisCfg := kvstore.RedisConfigFromEnv()
		store, err := kvstore.OpenRedisStore(ctx, redisCfg)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("addr", redisCfg.Addr()).Msg("Using redis store")
		return store, func() { store.Close() }, nil
	}

	store := kvstore.NewMemoryStore()
	go store.RunJanitor(ctx, time.Minute)
	logger.Info().Msg("Using in-memory store")
	return store, func() {}, nil
}
