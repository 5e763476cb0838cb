package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/evocart/internal/auth"
	"github.com/Skotchmaster/evocart/internal/cart"
	"github.com/Skotchmaster/evocart/internal/catalog"
	"github.com/Skotchmaster/evocart/internal/config"
	"github.com/Skotchmaster/evocart/internal/events"
	"github.com/Skotchmaster/evocart/internal/httpserver"
	"github.com/Skotchmaster/evocart/internal/middleware/csrf"
	"github.com/Skotchmaster/evocart/internal/models"
	"github.com/Skotchmaster/evocart/internal/notify"
	"github.com/Skotchmaster/evocart/internal/order"
	"github.com/Skotchmaster/evocart/internal/search"
	"github.com/Skotchmaster/evocart/internal/session"
	"github.com/Skotchmaster/evocart/internal/user"
	pkgdb "github.com/Skotchmaster/evocart/pkg/db"
	"github.com/Skotchmaster/evocart/pkg/logging"
	middleware "github.com/Skotchmaster/evocart/pkg/middleware/auth"
	loggingmw "github.com/Skotchmaster/evocart/pkg/middleware/logging"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	sessions := session.NewRedisStore(rdb, cfg.SessionTTL)

	var (
		publisher events.Publisher = events.Nop{}
		kafkaPub  *events.KafkaPublisher
	)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub = events.NewKafkaPublisher(cfg.KafkaBrokers...)
		publisher = events.NewBreakerPublisher(kafkaPub, logger)
	}

	users := &user.Service{Repo: &user.GormRepo{DB: db}}
	catalogSvc := &catalog.Service{Repo: &catalog.GormRepo{DB: db}, Events: publisher}
	catalogHTTP := &httpserver.CatalogHTTP{Svc: catalogSvc, Search: catalogSvc}
	if cfg.ESURL != "" {
		sc, err := search.NewClient(search.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword, Index: cfg.ESIndex})
		if err != nil {
			log.Fatalf("search client: %v", err)
		}
		catalogSvc.Index = sc
		catalogHTTP.Search = sc
	}

	authSvc := &auth.Service{
		Users:         users,
		Tokens:        &auth.TokenRepo{DB: db},
		Sessions:      sessions,
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
	}
	carts := &cart.Service{Sessions: sessions, Catalog: catalogSvc}
	orders := &order.Service{
		Repo:     &order.GormRepo{DB: db},
		Carts:    carts,
		Sessions: sessions,
		Pricing:  order.Pricing{TaxRate: cfg.TaxRate, Shipping: cfg.ShippingFlat},
		Events:   publisher,
	}

	hub := notify.NewHub(logger.With("component", "ws"), nil)

	bg, stopBG := context.WithCancel(logging.IntoContext(context.Background(), logger))
	defer stopBG()

	// With Kafka the admin feed is driven by the topic, so every replica's
	// clients see every event. Without it the service broadcasts directly.
	var consumer *events.Consumer
	if kafkaPub != nil {
		consumer = events.NewConsumer(events.NewOrderReader(cfg.ServiceName+"-ws", cfg.KafkaBrokers...), hub, logger.With("component", "order_consumer"))
		go consumer.Run(bg)
	} else {
		orders.Notify = hub
	}

	sweeper := &order.Sweeper{
		Svc:      orders,
		TTL:      cfg.PendingOrderTTL,
		Interval: cfg.SweepInterval,
		Log:      logger.With("component", "order_sweeper"),
	}
	go sweeper.Run(bg)

	if _, err := users.SeedAdmin(bg, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Error("admin_seed_failed", "error", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpserver.ErrorHandler(logger)
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: len(cfg.CORSOrigins) > 0,
	}))
	e.Use(echomw.Secure())
	e.Use(csrf.Middleware(csrf.Config{
		SkipPaths: []string{"/api/v1/login", "/api/v1/register", "/api/v1/refresh"},
	}))

	httpserver.Register(e, &httpserver.Deps{
		Auth:    &httpserver.AuthHTTP{Svc: authSvc},
		Catalog: catalogHTTP,
		Cart:    &httpserver.CartHTTP{Svc: carts},
		Orders:  &httpserver.OrderHTTP{Svc: orders},
		Users:   &httpserver.UsersHTTP{Svc: users},
		AuthMW:  middleware.NewAutoRefreshMiddleware(cfg.JWTAccessSecret, authSvc),
		Hub:     hub,
		Ready: []func(context.Context) error{
			func(ctx context.Context) error { return pkgdb.Ping(ctx, db) },
			sessions.Ping,
		},
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")
	stopBG()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	hub.Close()

	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error("kafka_consumer_close_failed", "error", err)
		}
	}
	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			logger.Error("kafka_close_failed", "error", err)
		}
	}
	if err := rdb.Close(); err != nil {
		logger.Error("redis_close_failed", "error", err)
	}
	if err := pkgdb.Close(db); err != nil {
		logger.Error("db_close_failed", "error", err)
	}

	logger.Info("shutdown_complete")
}
