// Package gateway is the HTTP surface of the pipeline: the hub callback
// endpoint (verification handshake and content delivery), a small link API
// that publishes lifecycle events, and a websocket tail of actor timelines.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/c360/feedbridge/errors"
	"github.com/c360/feedbridge/feed"
	"github.com/c360/feedbridge/health"
	"github.com/c360/feedbridge/metric"
	"github.com/c360/feedbridge/natsclient"
	"github.com/c360/feedbridge/store"
)

// SubscriptionStore is the slice of subscription persistence the gateway needs
type SubscriptionStore interface {
	Get(ctx context.Context, id string) (*store.Subscription, error)
	Update(ctx context.Context, sub *store.Subscription) error
}

// Notifier processes a parsed delivery
type Notifier interface {
	Handle(ctx context.Context, f *feed.Feed, sub *store.Subscription) error
}

// EventPublisher publishes link lifecycle events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Config holds gateway configuration
type Config struct {
	// Addr is the listen address, e.g. ":8080"
	Addr string
	// MaxBodyBytes caps accepted notification payloads
	MaxBodyBytes int64
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the gateway defaults
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		MaxBodyBytes:    5 * 1024 * 1024,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "gateway", "Validate", "addr is required")
	}
	if c.MaxBodyBytes < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "gateway", "Validate",
			"max body bytes cannot be negative")
	}
	return nil
}

// Gateway serves the pipeline's HTTP endpoints
type Gateway struct {
	config  Config
	subs    SubscriptionStore
	notes   Notifier
	events  EventPublisher
	nats    *natsclient.Client
	monitor *health.Monitor
	metrics *metric.Metrics
	logger  *slog.Logger

	server *http.Server
}

// New wires the gateway. The nats client powers the websocket tail and may
// be nil when the tail is not served; the health monitor and metrics
// recorder may be nil.
func New(
	cfg Config,
	subs SubscriptionStore,
	notes Notifier,
	events EventPublisher,
	nats *natsclient.Client,
	monitor *health.Monitor,
	metrics *metric.Metrics,
	logger *slog.Logger,
) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if subs == nil || notes == nil || events == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("missing dependency"),
			"Gateway", "New", "wire gateway")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 5 * 1024 * 1024
	}

	g := &Gateway{
		config:  cfg,
		subs:    subs,
		notes:   notes,
		events:  events,
		nats:    nats,
		monitor: monitor,
		metrics: metrics,
		logger:  logger.With("component", "gateway"),
	}

	g.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return g, nil
}

// Handler builds the route table. Exposed for tests.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /hub/callback/{id}", g.handleVerification)
	mux.HandleFunc("POST /hub/callback/{id}", g.handleNotification)
	mux.HandleFunc("POST /links", g.handleCreateLink)
	mux.HandleFunc("DELETE /links/{id}", g.handleDeleteLink)
	mux.HandleFunc("GET /ws/activities", g.handleActivityTail)
	mux.HandleFunc("GET /healthz", g.handleHealth)

	return mux
}

// Run serves until the context is cancelled, then shuts down gracefully
func (g *Gateway) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Addr)
		if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return errors.WrapFatal(err, "Gateway", "Run", "serve")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), g.config.ShutdownTimeout)
	defer cancel()

	if err := g.server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "Gateway", "Run", "shutdown")
	}
	return nil
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if g.monitor == nil {
		status := http.StatusOK
		body := "ok"
		if g.nats != nil && !g.nats.IsHealthy() {
			status = http.StatusServiceUnavailable
			body = "nats disconnected"
		}
		w.WriteHeader(status)
		_, _ = fmt.Fprintln(w, body)
		return
	}

	report := g.monitor.Report(r.Context())
	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(report)
}
