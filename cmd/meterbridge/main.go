// cmd/meterbridge/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/meterbridge/internal/bridge"
	"github.com/tamzrod/meterbridge/internal/catalog"
	"github.com/tamzrod/meterbridge/internal/config"
	"github.com/tamzrod/meterbridge/internal/diag"
	"github.com/tamzrod/meterbridge/internal/discovery"
	"github.com/tamzrod/meterbridge/internal/link"
	"github.com/tamzrod/meterbridge/internal/logging"
	"github.com/tamzrod/meterbridge/internal/mqtt"
	"github.com/tamzrod/meterbridge/internal/poller"
	"github.com/tamzrod/meterbridge/internal/publisher"
	"github.com/tamzrod/meterbridge/internal/status"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: meterbridge <config.yaml>")
		os.Exit(2)
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config validation failed: %v\n", err)
		os.Exit(1)
	}
	config.Normalize(cfg)

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger = logger.With(zap.String("device", cfg.Device.Host))
	logger.Info("starting meterbridge",
		zap.String("version", version),
		zap.String("endpoint", cfg.Device.Endpoint()),
		zap.String("broker", cfg.MQTT.Broker),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("meterbridge stopped", zap.Error(err))
	}
	logger.Info("meterbridge stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	cat, err := catalog.SDM120()
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	// ---- device link ----
	client, err := poller.BuildClient(cfg)
	if err != nil {
		return fmt.Errorf("modbus client: %w", err)
	}
	defer client.Close()

	lnk := link.New()
	sup, err := link.NewSupervisor(lnk, client, client, link.SupervisorConfig{
		ProbeInterval:  config.Ms(cfg.Link.ProbeIntervalMs),
		ConnectTimeout: config.Ms(cfg.Link.ConnectTimeoutMs),
		RetryInterval:  config.Ms(cfg.Link.RetryIntervalMs),
	}, logger.Named("link"))
	if err != nil {
		return err
	}
	client.OnLoss(sup.ReportLoss)

	p, err := poller.Build(cfg, cat, client, sup, logger.Named("poller"))
	if err != nil {
		return fmt.Errorf("poller: %w", err)
	}

	// ---- bus ----
	topics := mqtt.Topics{Prefix: cfg.MQTT.TopicPrefix, Discovery: cfg.Discovery.Prefix}
	bus := mqtt.New(mqtt.Config{
		Broker:        cfg.MQTT.Broker,
		ClientID:      cfg.MQTT.ClientID,
		Username:      cfg.MQTT.Username,
		Password:      cfg.MQTT.Password,
		QoS:           cfg.MQTT.QoS,
		KeepAlive:     time.Duration(cfg.MQTT.KeepAliveS) * time.Second,
		RetryInterval: config.Ms(cfg.Link.RetryIntervalMs),
		StatusTopic:   topics.Status(),
	}, logger.Named("mqtt"))
	defer bus.Close()

	pub, err := publisher.New(publisher.Config{
		Topics:  topics,
		Catalog: cat,
		QoS:     cfg.MQTT.QoS,
	}, bus, lnk, logger.Named("publisher"))
	if err != nil {
		return fmt.Errorf("publisher: %w", err)
	}

	var ann bridge.Announcer
	if cfg.Discovery.Enabled {
		em, err := discovery.New(discovery.Config{
			Topics:  topics,
			Catalog: cat,
			Identity: discovery.Identity{
				Host:      cfg.Device.Host,
				Name:      cfg.Device.Name,
				SWVersion: version,
			},
			QoS:    cfg.MQTT.QoS,
			Pacing: config.Ms(cfg.Discovery.PacingMs),
			Settle: config.Ms(cfg.Discovery.SettleMs),
		}, bus, logger.Named("discovery"))
		if err != nil {
			return fmt.Errorf("discovery: %w", err)
		}
		ann = em
	}

	tracker := status.NewTracker(cfg.Device.Host, cat)

	svc, err := bridge.New(lnk, bus, pub, ann, tracker, logger.Named("bridge"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, config.Ms(cfg.Link.ConnectTimeoutMs))
	if err := bus.Connect(connectCtx); err != nil {
		// paho keeps retrying; the bridge reacts to the connect callback.
		logger.Warn("broker not reachable yet", zap.Error(err))
	}
	cancel()

	results := make(chan poller.PollResult)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sup.Run(ctx) })
	g.Go(func() error { return p.Run(ctx, results) })
	g.Go(func() error { return svc.Run(ctx, results) })

	if cfg.Diagnostics.Enabled {
		srv := diag.NewServer(cfg.Diagnostics.Listen, tracker, logger.Named("diag"))
		g.Go(func() error { return srv.Run(ctx) })
	}

	err = g.Wait()
	logger.Info("shutting down", zap.Error(err))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
