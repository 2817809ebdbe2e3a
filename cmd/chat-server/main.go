package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KondratovaLudmila/exchange-chat/internal/config"
	"github.com/KondratovaLudmila/exchange-chat/internal/domain"
	"github.com/KondratovaLudmila/exchange-chat/internal/infrastructure/audit"
	"github.com/KondratovaLudmila/exchange-chat/internal/infrastructure/metrics"
	"github.com/KondratovaLudmila/exchange-chat/internal/infrastructure/mysql"
	"github.com/KondratovaLudmila/exchange-chat/internal/infrastructure/privatbank"
	"github.com/KondratovaLudmila/exchange-chat/internal/infrastructure/redis"
	"github.com/KondratovaLudmila/exchange-chat/internal/infrastructure/websocket"
	"github.com/KondratovaLudmila/exchange-chat/internal/services"
	"github.com/KondratovaLudmila/exchange-chat/pkg/logger"
)

func main() {
	log := logger.New()
	log.Info("Starting exchange chat server")

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Audit sink: MySQL repository when a DSN is configured, the
	// file/stdout sink otherwise.
	var auditSink domain.AuditSink
	var auditRepo *mysql.AuditRepository
	if cfg.Audit.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.Audit.MySQLDSN)
		if err != nil {
			log.Error("Failed to open MySQL", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			log.Error("Failed to ping MySQL", "error", err)
			os.Exit(1)
		}
		log.Info("Connected to MySQL audit store")

		auditRepo = mysql.NewAuditRepository(db)
		auditSink = auditRepo
	} else {
		fileSink := audit.NewFileSink(cfg.Audit.FilePath)
		defer fileSink.Close()
		auditSink = fileSink
		log.Info("Audit log destination", "path", cfg.Audit.FilePath)
	}

	// Rate cache is optional; without redis every command goes upstream.
	var rateCache domain.RateCache
	if cfg.Redis.Enabled {
		rdb := redisClient.NewClient(&redisClient.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		log.Info("Connected to Redis", "address", cfg.Redis.Address)
		rateCache = redis.NewRateCache(rdb)
	}

	rates := privatbank.NewClient(cfg.Provider.BaseURL, cfg.Provider.Timeout, rateCache, m, log)
	dispatcher := services.NewDispatcher(rates, auditSink, m, log)
	registry := websocket.NewConnectionManager(services.NewNameGenerator(), m, log)
	chatHandler := websocket.NewChatHandler(registry, dispatcher, log)

	var warmer *services.RateWarmer
	if cfg.Warmer.Enabled && rateCache != nil {
		warmer = services.NewRateWarmer(rates, log)
		if err := warmer.Start(context.Background(), cfg.Warmer.Interval); err != nil {
			log.Error("Failed to start rate warmer", "error", err)
			os.Exit(1)
		}
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.GET("/ws", func(c echo.Context) error {
		chatHandler.HandleConnection(c.Response(), c.Request())
		return nil
	})

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "exchange-chat",
			"peers":     registry.Count(),
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if auditRepo != nil {
		e.GET("/audit/recent", func(c echo.Context) error {
			records, err := auditRepo.RecentRecords(c.Request().Context(), 50)
			if err != nil {
				log.Error("Failed to load audit records", "error", err)
				return c.JSON(http.StatusInternalServerError,
					map[string]string{"error": "Failed to load audit records"})
			}
			return c.JSON(http.StatusOK, records)
		})
	}

	serverAddr := cfg.Addr()
	log.Info("Starting chat server", "address", serverAddr)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down chat server...")

	if warmer != nil {
		warmer.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Chat server stopped")
}
