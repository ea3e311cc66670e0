package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/pickuporder/backend/internal/config"
	"github.com/pickuporder/backend/internal/httpserver"
	"github.com/pickuporder/backend/internal/logging"
	"github.com/pickuporder/backend/internal/middleware/loggingmw"
	"github.com/pickuporder/backend/internal/notify"
	"github.com/pickuporder/backend/internal/repo"
	"github.com/pickuporder/backend/internal/service"
	"github.com/pickuporder/backend/internal/session"
	"github.com/pickuporder/backend/pkg/db"
)

func main() {
	cfg := config.MustLoad()
	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	r := repo.New(gdb)
	if err := r.AutoMigrate(); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	var sessions session.Store = session.NewMemoryStore()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		sessions = session.NewRedisStore(client)
		logger.Info("using redis session store", "addr", cfg.RedisAddr)
	}

	var producer *notify.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = notify.NewProducer(cfg.KafkaBrokers, cfg.OrderTopic)
		defer producer.Close()
	}

	carts := service.NewCartService(r, cfg.DeliveryFee, cfg.CartTTL)
	checkout := service.NewCheckoutService(r, carts, sessions, cfg.SessionTTL)
	orders := service.NewOrderService(r, checkout, sessions, producer, cfg.CancelWindow)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), middleware.CORS())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		CartHandler:     &httpserver.CartHTTP{Svc: carts},
		CheckoutHandler: &httpserver.CheckoutHTTP{Svc: checkout},
		OrderHandler:    &httpserver.OrderHTTP{Svc: orders},
		JWTSecret:       cfg.JWTSecret,
	})

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := e.Start(":" + strconv.Itoa(cfg.ServerPort)); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo shutdown", "error", err)
	}

	if sqlDB, err := gdb.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Info("server stopped")
}
