package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"primeNotify/internal/config"
	"primeNotify/internal/modules/notifications/application/usecase"
	notifinfra "primeNotify/internal/modules/notifications/infrastructure"
	"primeNotify/internal/modules/notifications/infrastructure/expo"
	notiftransport "primeNotify/internal/modules/notifications/interface"
	rtinfra "primeNotify/internal/modules/realtime/infrastructure"
	rttransport "primeNotify/internal/modules/realtime/interface"
	"primeNotify/internal/platform/broker"
	"primeNotify/internal/platform/mongodb"
	"primeNotify/internal/shared/auth"
	"primeNotify/internal/shared/logging"
)

func main() {
	// Attempt to load variables from .env so local runs honour configuration tweaks.
	if err := godotenv.Overload(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, ".env load warning: %v\n", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logFile, logger, err := setupLogging(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	slog.SetDefault(logger)
	slog.Info("logging initialized", slog.String("directory", cfg.Logging.Directory), slog.String("level", cfg.Logging.Level), slog.String("format", cfg.Logging.Format))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	mongo, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		slog.Error("mongodb connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	store := notifinfra.NewNotificationRepository(mongo.Database())
	users := notifinfra.NewUserRepository(mongo.Database())

	// Broker transport
	b := broker.New(broker.Config{
		Host:                 cfg.Broker.Host,
		Port:                 cfg.Broker.Port,
		Username:             cfg.Broker.Username,
		Password:             cfg.Broker.Password,
		VHost:                cfg.Broker.VHost,
		Heartbeat:            cfg.Broker.Heartbeat,
		ReconnectDelay:       cfg.Broker.ReconnectDelay,
		MaxReconnectAttempts: cfg.Broker.MaxReconnectAttempts,
		MaxChannels:          cfg.Broker.MaxChannels,
		Prefetch:             cfg.Broker.Prefetch,
	})

	// Push delivery
	pushGateway := expo.NewClient(cfg.Push.BaseURL, cfg.Push.Timeout, nil)
	pushDelivery := usecase.NewPushDeliveryUseCase(b, store, users, pushGateway)

	// Topology and consumers follow the connection: the observer re-declares
	// everything after each (re)connect. Both steps are idempotent.
	b.OnStateChange(func(s broker.State) {
		if s != broker.StateConnected {
			return
		}
		setupCtx, setupCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer setupCancel()
		if err := notifinfra.SetupTopology(setupCtx, b); err != nil {
			slog.Error("broker topology setup failed", slog.Any("error", err))
			return
		}
		if err := pushDelivery.Start(setupCtx); err != nil {
			slog.Error("push delivery start failed", slog.Any("error", err))
		}
	})

	// A broker outage at boot is not fatal: the store-backed REST surface
	// keeps working and the transport reconnects in the background.
	if err := b.Connect(ctx); err != nil {
		slog.Warn("broker unavailable at startup", slog.Any("error", err))
	}

	// Use cases
	publisher := usecase.NewPublisherUseCase(store, users, b)
	notifications := usecase.NewNotificationsUseCase(store, publisher)
	pushSend := usecase.NewPushSendUseCase(store, users, pushGateway)

	// Realtime gateway
	hub := rtinfra.NewHub()
	eventSource := rtinfra.NewAMQPEventSource(b)
	commands := rtinfra.NewCommandProcessor(eventSource)

	// HTTP surface
	e := echo.New()
	e.Logger.SetOutput(log.Writer())

	validator := auth.NewJWTValidator(cfg.Security.JWTSecret)
	notifHandler := notiftransport.NewNotificationHandler(pushSend, notifications)
	notifHandler.Register(e.Group("/notification"), auth.Middleware(validator))
	e.GET("/ws", rttransport.NewWebsocketHandler(hub, commands, cfg.Websocket.SendBuffer))

	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil {
			slog.Error("http server stopped", slog.Any("error", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	slog.Info("shutting down")

	cancel()
	_ = pushDelivery.Stop()
	hub.Close()
	_ = e.Close()
	if err := b.Close(); err != nil {
		slog.Warn("broker close error", slog.Any("error", err))
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := mongo.Close(shutdownCtx); err != nil {
		slog.Warn("mongodb close error", slog.Any("error", err))
	}
}

func setupLogging(cfg config.LoggingConfig) (*os.File, *slog.Logger, error) {
	dir := cfg.Directory
	if dir == "" {
		dir = "./logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	fileName := filepath.Join(dir, time.Now().UTC().Format("2006-01-02")+".log")
	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	writer := io.MultiWriter(os.Stdout, file)
	logger := logging.New(writer, logging.Config{
		Level:     cfg.Level,
		Format:    cfg.Format,
		AddSource: true,
	})
	log.SetOutput(writer)
	log.SetFlags(0)
	log.SetPrefix("")

	return file, logger, nil
}
