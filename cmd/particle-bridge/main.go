// cmd/particle-bridge/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/ssh-relay/internal/bridge"
	"github.com/tamzrod/ssh-relay/internal/cloud"
	"github.com/tamzrod/ssh-relay/internal/config"
	"github.com/tamzrod/ssh-relay/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: particle-bridge <config.yaml>")
	}

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := config.ValidateBridge(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("bridge stopped", zap.Error(err))
		_ = logger.Sync()
		stop()
		os.Exit(1)
	}
	logger.Info("bridge stopped")
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	c := cfg.Cloud
	mq, err := cloud.New(cloud.Config{
		Broker:         c.Broker,
		ClientID:       c.ClientID + "-bridge",
		Username:       c.Username,
		Password:       c.Password,
		DeviceID:       cfg.Device.ID,
		TopicPrefix:    c.TopicPrefix,
		QoS:            c.QoS,
		ConnectTimeout: ms(c.ConnectTimeoutMs),
		KeepAlive:      time.Duration(c.KeepAliveSec) * time.Second,
		RetryInitial:   ms(c.RetryInitialMs),
		RetryMax:       ms(c.RetryMaxMs),
	}, logger.Named("cloud"))
	if err != nil {
		return fmt.Errorf("cloud client init: %w", err)
	}
	defer mq.Close()

	if err := mq.Connect(ctx); err != nil {
		logger.Info("bridge stopped before connect", zap.Error(err))
		return nil
	}

	b, err := bridge.New(bridge.Config{
		StreamURL:    cfg.Bridge.StreamURL,
		AccessToken:  cfg.Bridge.AccessToken,
		TopicPrefix:  cfg.Bridge.TopicPrefix,
		RetryInitial: ms(cfg.Bridge.RetryInitialMs),
		RetryMax:     ms(cfg.Bridge.RetryMaxMs),
	}, mq, logger.Named("bridge"))
	if err != nil {
		return fmt.Errorf("bridge init: %w", err)
	}

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
