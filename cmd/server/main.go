package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/aviator-hackers/backend-avapk/internal/config"
	"github.com/aviator-hackers/backend-avapk/internal/contact"
	"github.com/aviator-hackers/backend-avapk/internal/directory"
	"github.com/aviator-hackers/backend-avapk/internal/handler"
	"github.com/aviator-hackers/backend-avapk/internal/hub"
	"github.com/aviator-hackers/backend-avapk/internal/kafka"
	"github.com/aviator-hackers/backend-avapk/internal/registry"
	"github.com/aviator-hackers/backend-avapk/internal/service"
	"github.com/aviator-hackers/backend-avapk/internal/upload"
	pkglog "github.com/aviator-hackers/backend-avapk/pkg/log"
	"github.com/aviator-hackers/backend-avapk/pkg/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Upload storage
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to initialize storage")
	}

	// Optional session directory
	var dir directory.Directory = directory.Nop{}
	if cfg.Redis.Enabled {
		rd, err := directory.NewRedisDirectory(cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		dir = rd
		logger.Info().Str("address", cfg.Redis.Address).Msg("session directory connected")
	}

	// Optional message tap
	var producer kafka.MessageProducer = kafka.NopProducer{}
	if cfg.Kafka.Enabled {
		cp, err := kafka.NewConfluentProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize kafka producer")
		}
		producer = cp
		logger.Info().Str("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka tap connected")
	}

	// Relay
	wsHub := hub.NewHub(cfg.WebSocket)
	reg := registry.New()
	relay := service.NewRelayService(wsHub.Router(), reg, cfg.Relay,
		service.WithDirectory(dir),
		service.WithProducer(producer),
	)
	if err := relay.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start relay service")
	}
	defer relay.Stop()

	wsHandler := handler.NewWSHandler(wsHub, relay, cfg.WebSocket)
	httpHandler := handler.NewHandler(
		contact.NewService(cfg.Contact),
		upload.NewProcessor(store, cfg.Upload),
		wsHub,
		reg,
		dir,
		cfg.App,
	)

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	r.Use(handler.CORS())
	if local, ok := store.(*storage.LocalStorage); ok {
		r.Static(storage.RoutePrefix, local.BasePath())
	}
	wsHandler.RegisterRoutes(r)
	httpHandler.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return wsHub.Run(pkglog.WithLogger(gCtx, logger), wsHandler)
	})

	g.Go(func() error {
		logger.Info().Str("addr", addr).Str("storage", cfg.Storage.Driver).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return
	}
	logger.Info().Msg("server stopped")
}
