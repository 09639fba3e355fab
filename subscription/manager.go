package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/c360/feedbridge/discovery"
	"github.com/c360/feedbridge/errors"
	"github.com/c360/feedbridge/hubclient"
	"github.com/c360/feedbridge/metric"
	"github.com/c360/feedbridge/pkg/retry"
	"github.com/c360/feedbridge/pkg/worker"
	"github.com/c360/feedbridge/store"
)

type taskKind int

const (
	taskSubscribe taskKind = iota
	taskUnsubscribe
)

type task struct {
	kind  taskKind
	event *LinkEvent
}

// LinkStore is the slice of link persistence the manager needs
type LinkStore interface {
	Create(ctx context.Context, link *store.Link) error
	Get(ctx context.Context, id string) (*store.Link, error)
	Update(ctx context.Context, link *store.Link) error
	Delete(ctx context.Context, id string) error
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*store.Link, error)
}

// SubscriptionStore is the slice of subscription persistence the manager needs
type SubscriptionStore interface {
	Create(ctx context.Context, sub *store.Subscription) error
	Get(ctx context.Context, id string) (*store.Subscription, error)
	Update(ctx context.Context, sub *store.Subscription) error
	FindByTopic(ctx context.Context, topic string) (*store.Subscription, error)
}

// Fetcher retrieves remote pages and feeds
type Fetcher interface {
	Get(ctx context.Context, url, kind string) ([]byte, error)
}

// HubRequester sends subscriber requests to hubs
type HubRequester interface {
	Subscribe(ctx context.Context, sub *store.Subscription) error
	Unsubscribe(ctx context.Context, sub *store.Subscription) error
	DefaultHub() string
}

// EventSource delivers link lifecycle events
type EventSource interface {
	Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error
}

// Config holds manager configuration
type Config struct {
	Workers   int
	QueueSize int
}

// DefaultConfig returns the manager defaults
func DefaultConfig() Config {
	return Config{
		Workers:   4,
		QueueSize: 256,
	}
}

// Manager turns link lifecycle events into hub subscriptions
type Manager struct {
	links   LinkStore
	subs    SubscriptionStore
	fetcher Fetcher
	hub     HubRequester
	events  EventSource
	pool    *worker.Pool[task]
	metrics *metric.Metrics
	logger  *slog.Logger

	// Retry budget shared by each network step of the subscribe flow
	retryCfg retry.Config
}

// NewManager wires the manager. The metrics registry may be nil.
func NewManager(
	cfg Config,
	events EventSource,
	links LinkStore,
	subs SubscriptionStore,
	fetcher Fetcher,
	hub HubRequester,
	registry *metric.Registry,
	logger *slog.Logger,
) (*Manager, error) {
	if events == nil || links == nil || subs == nil || fetcher == nil || hub == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("missing dependency"),
			"Manager", "NewManager", "wire manager")
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		links:    links,
		subs:     subs,
		fetcher:  fetcher,
		hub:      hub,
		events:   events,
		logger:   logger.With("component", "subscription-manager"),
		retryCfg: retry.Subscribe(),
	}

	var poolOpts []worker.Option[task]
	if registry != nil {
		m.metrics = registry.CoreMetrics()
		poolOpts = append(poolOpts, worker.WithMetricsRegistry[task](registry, "subscription"))
	}
	m.pool = worker.NewPool(cfg.Workers, cfg.QueueSize, m.process, poolOpts...)

	return m, nil
}

// Start begins consuming link events
func (m *Manager) Start(ctx context.Context) error {
	if err := m.pool.Start(ctx); err != nil {
		return errors.Wrap(err, "Manager", "Start", "start worker pool")
	}

	if err := m.events.Subscribe(ctx, SubjectLinkCreated, m.onCreated); err != nil {
		return errors.Wrap(err, "Manager", "Start", "subscribe "+SubjectLinkCreated)
	}
	if err := m.events.Subscribe(ctx, SubjectLinkDeleted, m.onDeleted); err != nil {
		return errors.Wrap(err, "Manager", "Start", "subscribe "+SubjectLinkDeleted)
	}

	m.logger.Info("subscription manager started")
	return nil
}

// Stop drains the worker pool
func (m *Manager) Stop(timeout time.Duration) error {
	return m.pool.Stop(timeout)
}

func (m *Manager) onCreated(_ context.Context, data []byte) {
	m.enqueue(taskSubscribe, data)
}

func (m *Manager) onDeleted(_ context.Context, data []byte) {
	m.enqueue(taskUnsubscribe, data)
}

func (m *Manager) enqueue(kind taskKind, data []byte) {
	ev, err := ParseLinkEvent(data)
	if err != nil {
		m.logger.Warn("dropping malformed link event", "error", err)
		if m.metrics != nil {
			m.metrics.RecordError("subscription", "invalid_event")
		}
		return
	}

	if err := m.pool.Submit(task{kind: kind, event: ev}); err != nil {
		m.logger.Warn("dropping link event, queue full", "link_id", ev.LinkID, "error", err)
		if m.metrics != nil {
			m.metrics.RecordError("subscription", "queue_full")
		}
	}
}

func (m *Manager) process(ctx context.Context, t task) error {
	switch t.kind {
	case taskSubscribe:
		return m.handleCreated(ctx, t.event)
	case taskUnsubscribe:
		return m.handleDeleted(ctx, t.event)
	default:
		return errors.WrapInvalid(fmt.Errorf("unknown task kind %d", t.kind),
			"Manager", "process", "dispatch task")
	}
}

func (m *Manager) handleCreated(ctx context.Context, ev *LinkEvent) error {
	if ev.URL == "" || ev.ActorID == "" {
		return errors.WrapInvalid(errors.ErrInvalidPayload,
			"Manager", "handleCreated", "event missing url or actor")
	}

	link := &store.Link{
		ID:        ev.LinkID,
		Name:      ev.Name,
		ActorID:   ev.ActorID,
		ProjectID: ev.ProjectID,
		URL:       ev.URL,
		Broadcast: ev.Broadcast,
	}

	if err := m.links.Create(ctx, link); err != nil {
		if errors.Is(err, errors.ErrAlreadyExists) {
			// Redelivered event, pick up the stored row
			existing, getErr := m.links.Get(ctx, ev.LinkID)
			if getErr != nil {
				return getErr
			}
			if existing.SubscriptionID != "" {
				return nil
			}
			link = existing
		} else {
			return err
		}
	}

	// Non-broadcast links are stored but never subscribed
	if !link.Broadcast {
		m.logger.Debug("link is not broadcast, skipping subscription", "link_id", link.ID)
		return nil
	}

	return m.subscribe(ctx, link)
}

// subscribe walks the discover-then-lease flow for one link. A step that
// exhausts its retry budget, or a page with nothing to subscribe to,
// abandons the link: logged and counted, never surfaced as a failure.
func (m *Manager) subscribe(ctx context.Context, link *store.Link) error {
	if m.metrics != nil {
		m.metrics.RecordSubscribeAttempt("subscribe")
	}

	page, err := retry.DoWithResult(ctx, m.retryCfg, func() ([]byte, error) {
		return m.fetcher.Get(ctx, link.URL, "page")
	})
	if err != nil {
		m.abandon(link, "fetch page", err)
		return nil
	}

	feedURL := discovery.Feed(page, link.URL)
	if m.metrics != nil {
		m.metrics.RecordDiscovery("feed", feedURL != "")
	}
	if feedURL == "" {
		m.abandon(link, "discover feed", errors.ErrNoFeedFound)
		return nil
	}

	// Another link may already hold a lease on this feed
	if existing, err := m.subs.FindByTopic(ctx, feedURL); err == nil {
		return m.attach(ctx, link, feedURL, existing.ID)
	} else if !errors.Is(err, errors.ErrKeyNotFound) {
		return err
	}

	feedBody, err := retry.DoWithResult(ctx, m.retryCfg, func() ([]byte, error) {
		return m.fetcher.Get(ctx, feedURL, "feed")
	})
	if err != nil {
		m.abandon(link, "fetch feed", err)
		return nil
	}

	hubURL := discovery.Hub(feedBody, feedURL)
	if m.metrics != nil {
		m.metrics.RecordDiscovery("hub", hubURL != "")
	}
	if hubURL == "" {
		hubURL = m.hub.DefaultHub()
	}
	if hubURL == "" {
		m.abandon(link, "discover hub", errors.ErrNoHubFound)
		return nil
	}

	secret, err := hubclient.NewSecret()
	if err != nil {
		return err
	}
	verifyToken, err := hubclient.NewVerifyToken()
	if err != nil {
		return err
	}

	sub := &store.Subscription{
		ID:          uuid.NewString(),
		Topic:       feedURL,
		Hub:         hubURL,
		Secret:      secret,
		VerifyToken: verifyToken,
		State:       store.StatePending,
	}
	if err := m.subs.Create(ctx, sub); err != nil {
		return err
	}

	err = retry.Do(ctx, m.retryCfg, func() error {
		return m.hub.Subscribe(ctx, sub)
	})
	if err != nil {
		sub.State = store.StateAbandoned
		if updateErr := m.subs.Update(ctx, sub); updateErr != nil {
			m.logger.Warn("failed to mark subscription abandoned",
				"subscription_id", sub.ID, "error", updateErr)
		}
		m.abandon(link, "hub subscribe", err)
		return nil
	}

	return m.attach(ctx, link, feedURL, sub.ID)
}

// attach records the link's resolved feed and subscription
func (m *Manager) attach(ctx context.Context, link *store.Link, feedURL, subscriptionID string) error {
	link.FeedURL = feedURL
	link.SubscriptionID = subscriptionID
	if err := m.links.Update(ctx, link); err != nil {
		return err
	}

	if m.metrics != nil {
		m.metrics.RecordSubscribeOutcome("subscribe", "attached")
	}
	m.logger.Info("link attached to subscription",
		"link_id", link.ID, "feed", feedURL, "subscription_id", subscriptionID)
	return nil
}

func (m *Manager) abandon(link *store.Link, step string, cause error) {
	if m.metrics != nil {
		m.metrics.RecordSubscribeOutcome("subscribe", "abandoned")
	}
	m.logger.Warn("abandoning link",
		"link_id", link.ID, "url", link.URL, "step", step, "cause", cause)
}

func (m *Manager) handleDeleted(ctx context.Context, ev *LinkEvent) error {
	link, err := m.links.Get(ctx, ev.LinkID)
	if err != nil {
		if errors.Is(err, errors.ErrKeyNotFound) {
			return nil
		}
		return err
	}

	if err := m.links.Delete(ctx, link.ID); err != nil &&
		!errors.Is(err, errors.ErrKeyNotFound) {
		return err
	}

	if link.SubscriptionID == "" {
		return nil
	}

	// Keep the lease while any other link still uses the feed
	remaining, err := m.links.ListBySubscription(ctx, link.SubscriptionID)
	if err != nil {
		return err
	}
	if len(remaining) > 0 {
		return nil
	}

	sub, err := m.subs.Get(ctx, link.SubscriptionID)
	if err != nil {
		if errors.Is(err, errors.ErrKeyNotFound) {
			return nil
		}
		return err
	}

	sub.State = store.StateUnsubbed
	if err := m.subs.Update(ctx, sub); err != nil {
		return err
	}

	if m.metrics != nil {
		m.metrics.RecordSubscribeAttempt("unsubscribe")
	}

	// Fire and forget: the hub's answer does not change our state
	go func(sub *store.Subscription) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.hub.Unsubscribe(ctx, sub); err != nil {
			m.logger.Debug("unsubscribe request failed",
				"subscription_id", sub.ID, "error", err)
		}
	}(sub)

	m.logger.Info("subscription released", "subscription_id", sub.ID, "topic", sub.Topic)
	return nil
}
