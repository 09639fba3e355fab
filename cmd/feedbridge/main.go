// Package main is the entry point for the feedbridge service. FeedBridge
// turns followed web pages into hub subscriptions and fans pushed feed
// entries out into per-actor activity timelines.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/feedbridge/config"
	"github.com/c360/feedbridge/fetch"
	"github.com/c360/feedbridge/gateway"
	"github.com/c360/feedbridge/health"
	"github.com/c360/feedbridge/hubclient"
	"github.com/c360/feedbridge/metric"
	"github.com/c360/feedbridge/natsclient"
	"github.com/c360/feedbridge/notification"
	"github.com/c360/feedbridge/store"
	"github.com/c360/feedbridge/subscription"
)

const (
	// Version is set at build time
	Version = "0.1.0"
	appName = "feedbridge"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Validate {
		fmt.Println("configuration is valid")
		return nil
	}

	logger := setupLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	logger.Info("starting feedbridge",
		"version", Version,
		"config_path", cliCfg.ConfigPath,
		"nats_url", cfg.NATS.URL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := metric.NewRegistry()
	metrics := registry.CoreMetrics()

	natsClient, err := connectNATS(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cliCfg.ShutdownTimeout)
		defer cancel()
		if err := natsClient.Close(closeCtx); err != nil {
			logger.Warn("nats close failed", "error", err)
		}
	}()

	links, err := store.NewLinks(ctx, natsClient)
	if err != nil {
		return fmt.Errorf("open link store: %w", err)
	}
	subs, err := store.NewSubscriptions(ctx, natsClient)
	if err != nil {
		return fmt.Errorf("open subscription store: %w", err)
	}
	objects, err := store.NewObjects(ctx, natsClient)
	if err != nil {
		return fmt.Errorf("open object store: %w", err)
	}
	activities, err := store.NewActivities(ctx, natsClient)
	if err != nil {
		return fmt.Errorf("open activity stream: %w", err)
	}

	fetcher := fetch.New(fetch.Config{
		Timeout:           cfg.Fetch.Timeout,
		MaxBodyBytes:      cfg.Fetch.MaxBodyBytes,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		Burst:             cfg.Fetch.Burst,
	}, metrics)

	hub, err := hubclient.New(hubclient.Config{
		DefaultHub:   cfg.Hub.DefaultURL,
		Username:     cfg.Hub.Username,
		Password:     cfg.Hub.Password,
		CallbackBase: cfg.Hub.CallbackBase,
		LeaseSeconds: cfg.Hub.LeaseSeconds,
		Timeout:      cfg.Hub.Timeout,
	})
	if err != nil {
		return fmt.Errorf("create hub client: %w", err)
	}

	manager, err := subscription.NewManager(subscription.Config{
		Workers:   cfg.Workers.Count,
		QueueSize: cfg.Workers.QueueSize,
	}, natsClient, links, subs, fetcher, hub, registry, logger)
	if err != nil {
		return fmt.Errorf("create subscription manager: %w", err)
	}

	processor, err := notification.NewProcessor(links, objects, activities, metrics, logger)
	if err != nil {
		return fmt.Errorf("create notification processor: %w", err)
	}

	monitor := health.NewMonitor()
	monitor.Register("nats", func(context.Context) health.Status {
		if natsClient.IsHealthy() {
			return health.Healthy("nats", "connected")
		}
		return health.Unhealthy("nats", "disconnected")
	})

	gw, err := gateway.New(gateway.Config{
		Addr:            cfg.HTTP.Addr,
		MaxBodyBytes:    cfg.HTTP.MaxBodyBytes,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, subs, processor, natsClient, natsClient, monitor, metrics, logger)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("start subscription manager: %w", err)
	}
	defer func() {
		if err := manager.Stop(cliCfg.ShutdownTimeout); err != nil {
			logger.Warn("manager stop timed out", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return gw.Run(gctx)
	})

	if cfg.Metrics.Enabled {
		metricsServer := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
		g.Go(func() error {
			return metricsServer.Start()
		})
		g.Go(func() error {
			<-gctx.Done()
			return metricsServer.Stop()
		})
	}

	logger.Info("feedbridge running",
		"http_addr", cfg.HTTP.Addr,
		"metrics_enabled", cfg.Metrics.Enabled)

	err = g.Wait()
	if err != nil && err != context.Canceled {
		return err
	}
	logger.Info("feedbridge stopped")
	return nil
}

// connectNATS dials the broker and waits for the connection to settle
func connectNATS(ctx context.Context, cfg *config.Config, metrics *metric.Metrics) (*natsclient.Client, error) {
	opts := []natsclient.ClientOption{
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natsclient.WithReconnectWait(cfg.NATS.ReconnectWait),
		natsclient.WithTimeout(cfg.NATS.Timeout),
		natsclient.WithMetrics(metrics),
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}

	client, err := natsclient.NewClient(cfg.NATS.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("create nats client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, fmt.Errorf("nats connection timeout: %w", err)
	}

	return client, nil
}
