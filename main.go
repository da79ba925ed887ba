package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"quickbite-api/audit"
	"quickbite-api/cache"
	"quickbite-api/config"
	"quickbite-api/events"
	"quickbite-api/handlers"
	"quickbite-api/logging"
	"quickbite-api/middleware"
	"quickbite-api/routes"
	"quickbite-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "quickbite-api:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := config.OpenDB(cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database ready", zap.String("driver", cfg.Database.Driver))

	deps := services.Deps{
		DB:           db,
		BcryptCost:   cfg.Auth.BcryptCost,
		MaxListLimit: cfg.Listing.MaxLimit,
	}

	// Optional backends: each is skipped when not configured.
	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		deps.Cache = cache.NewListingCache(rdb, cfg.Redis.TTL, logger)
		logger.Info("listing cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	sinks := []audit.Sink{audit.NewLogSink(logger)}
	if cfg.MongoDB.URI != "" {
		mongoSink, err := audit.NewMongoSink(ctx, cfg.MongoDB)
		if err != nil {
			return err
		}
		defer func() { _ = mongoSink.Close(context.Background()) }()
		sinks = append(sinks, mongoSink)
		logger.Info("audit collection enabled", zap.String("database", cfg.MongoDB.Database))
	}
	deps.Audit = audit.Tee(sinks...)

	if cfg.RabbitMQ.URL != "" {
		pub, err := events.DialRabbit(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			return err
		}
		defer pub.Close()
		deps.Events = pub
		logger.Info("order events enabled", zap.String("exchange", cfg.RabbitMQ.Exchange))
	}

	tokens := middleware.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	h := handlers.New(deps, tokens, logger)
	h.OAuth = handlers.NewGoogleOAuth(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	h.FrontendURL = cfg.Google.FrontendURL

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.CORS(cfg.Server.AllowedOrigins))
	routes.SetupRoutes(r, h)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
