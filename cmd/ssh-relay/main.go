// cmd/ssh-relay/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/ssh-relay/internal/cloud"
	"github.com/tamzrod/ssh-relay/internal/config"
	"github.com/tamzrod/ssh-relay/internal/logging"
	"github.com/tamzrod/ssh-relay/internal/netwatch"
	"github.com/tamzrod/ssh-relay/internal/publicip"
	"github.com/tamzrod/ssh-relay/internal/publisher"
	"github.com/tamzrod/ssh-relay/internal/relay"
	"github.com/tamzrod/ssh-relay/internal/status"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: ssh-relay <config.yaml>")
	}

	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger = logger.With(zap.String("device", cfg.Device.ID))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("relay stopped", zap.Error(err))
		_ = logger.Sync()
		stop()
		os.Exit(1)
	}
	logger.Info("relay stopped")
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// --------------------
	// Cloud session + public IP
	// --------------------

	pending := &publicip.Pending{}

	var (
		cc  *cloud.Client
		req publicip.Requester
		pub publisher.EventPublisher
	)
	if cfg.Cloud.Broker != "" {
		c := cfg.Cloud
		var err error
		cc, err = cloud.New(cloud.Config{
			Broker:         c.Broker,
			ClientID:       c.ClientID,
			Username:       c.Username,
			Password:       c.Password,
			DeviceID:       cfg.Device.ID,
			TopicPrefix:    c.TopicPrefix,
			QoS:            c.QoS,
			ConnectTimeout: ms(c.ConnectTimeoutMs),
			KeepAlive:      time.Duration(c.KeepAliveSec) * time.Second,
			RetryInitial:   ms(c.RetryInitialMs),
			RetryMax:       ms(c.RetryMaxMs),
			WillEvent:      status.NameStatus,
			WillData:       fmt.Sprint(uint16(status.Disconnected)),
		}, logger.Named("cloud"))
		if err != nil {
			return err
		}
		defer cc.Close()
		req, pub = cc, cc
	}

	resolver := publicip.NewResolver(pending, req, publicip.Options{
		LookupURL: cfg.PublicIP.LookupURL,
		Timeout:   ms(cfg.PublicIP.TimeoutMs),
	}, logger.Named("publicip"))

	requestIP := func() {
		go func() {
			rctx, rcancel := context.WithTimeout(ctx, ms(cfg.PublicIP.TimeoutMs))
			defer rcancel()
			_ = resolver.Request(rctx)
		}()
	}

	if cc != nil {
		if err := cc.Subscribe(status.NamePublicIPTopic, resolver.Handler); err != nil {
			return err
		}
		if err := cc.RegisterFunction(status.NameGetPublicIP, resolver.GetPublicIP); err != nil {
			return err
		}
		go func() {
			if err := cc.Connect(ctx); err != nil {
				return
			}
			requestIP()
		}()
	}

	// --------------------
	// Publisher
	// --------------------

	sinks, err := publisher.BuildSinks(ctx, cfg, pub)
	if err != nil {
		return err
	}
	defer func() { _ = sinks.Close() }()

	dispatcher := publisher.NewDispatcher(sinks.Sinks, ms(cfg.Sinks.TimeoutMs), logger.Named("publisher"))
	go dispatcher.Run(ctx)

	if m := sinks.Metrics; m != nil {
		go func() {
			if err := m.Serve(ctx, cfg.Sinks.Metrics.Listen, cfg.Sinks.Metrics.Path, logger.Named("metrics")); err != nil {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	reporter := status.NewReporter(dispatcher, logger.Named("status"))

	// --------------------
	// Relay
	// --------------------

	s := cfg.Relay.Serial
	opener, err := relay.SerialOpener(relay.SerialConfig{
		Address:  s.Address,
		BaudRate: s.BaudRate,
		DataBits: s.DataBits,
		StopBits: s.StopBits,
		Parity:   s.Parity,
		Timeout:  ms(s.TimeoutMs),
	})
	if err != nil {
		return err
	}

	allow, err := relay.ParseAllow(cfg.Relay.Allow)
	if err != nil {
		return err
	}

	rl, err := relay.New(relay.Config{Listen: cfg.Relay.Listen, Allow: allow}, opener, logger.Named("relay"))
	if err != nil {
		return err
	}

	relayEvents := make(chan relay.Event, 16)
	relayErr := make(chan error, 1)
	go func() { relayErr <- rl.Run(ctx, relayEvents) }()

	// --------------------
	// Link watcher
	// --------------------

	w, err := netwatch.New(
		netwatch.Config{Interval: ms(cfg.Network.PollIntervalMs)},
		netwatch.InterfaceAddr(cfg.Network.Interface),
		logger.Named("netwatch"),
	)
	if err != nil {
		return err
	}

	links := make(chan netwatch.LinkEvent, 4)
	go w.Run(ctx, links)

	// --------------------
	// Main loop (runner-owned state)
	// --------------------

	rn := &runner{
		reporter:   reporter,
		pending:    pending,
		logger:     logger,
		requestIP:  requestIP,
		endSession: rl.EndSession,
		period:     ms(cfg.Reporter.PublishPeriodMs),
	}

	tick := time.NewTicker(ms(cfg.Reporter.LoopIntervalMs))
	defer tick.Stop()

	logger.Info("relay started",
		zap.String("listen", cfg.Relay.Listen),
		zap.String("serial", s.Address),
		zap.Int("sinks", len(sinks.Sinks)),
	)

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-relayErr:
			if err != nil {
				return err
			}
			return nil

		case ev := <-relayEvents:
			rn.onRelay(ev)

		case ev := <-links:
			rn.onLink(ev)

		case now := <-tick.C:
			rn.onTick(now)
		}
	}
}
