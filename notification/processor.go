// Package notification turns verified hub deliveries into activities on
// actor timelines.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/c360/feedbridge/errors"
	"github.com/c360/feedbridge/feed"
	"github.com/c360/feedbridge/metric"
	"github.com/c360/feedbridge/store"
	"github.com/c360/feedbridge/vocabulary"
)

// LinkLister resolves the fan-out set for a subscription
type LinkLister interface {
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*store.Link, error)
}

// ObjectStore deduplicates remote objects per (link, entry URL)
type ObjectStore interface {
	GetOrCreate(ctx context.Context, obj *store.RemoteObject) (*store.RemoteObject, error)
}

// ActivitySink appends activities to actor timelines
type ActivitySink interface {
	Append(ctx context.Context, activity *store.Activity) error
}

// Processor fans a feed delivery out into per-actor activities
type Processor struct {
	links      LinkLister
	objects    ObjectStore
	activities ActivitySink
	metrics    *metric.Metrics
	logger     *slog.Logger
}

// NewProcessor wires the processor. The metrics recorder may be nil.
func NewProcessor(
	links LinkLister,
	objects ObjectStore,
	activities ActivitySink,
	metrics *metric.Metrics,
	logger *slog.Logger,
) (*Processor, error) {
	if links == nil || objects == nil || activities == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("missing dependency"),
			"Processor", "NewProcessor", "wire processor")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Processor{
		links:      links,
		objects:    objects,
		activities: activities,
		metrics:    metrics,
		logger:     logger.With("component", "notification-processor"),
	}, nil
}

// Handle processes one delivery for a subscription. Each usable entry
// becomes one activity per link sharing the subscription. A failure on one
// (entry, link) pair never blocks the others.
func (p *Processor) Handle(ctx context.Context, f *feed.Feed, sub *store.Subscription) error {
	if f == nil || sub == nil {
		return errors.WrapInvalid(fmt.Errorf("feed and subscription are required"),
			"Processor", "Handle", "process delivery")
	}

	links, err := p.links.ListBySubscription(ctx, sub.ID)
	if err != nil {
		return errors.WrapTransient(err, "Processor", "Handle", "list links")
	}
	if len(links) == 0 {
		p.logger.Debug("delivery with no attached links", "subscription_id", sub.ID)
		if p.metrics != nil {
			p.metrics.RecordNotification("orphaned")
		}
		return nil
	}

	var created int
	for _, entry := range f.Entries {
		if entry.Title == "" || entry.Link == "" {
			p.logger.Debug("skipping entry missing title or link",
				"subscription_id", sub.ID, "title", entry.Title, "link", entry.Link)
			if p.metrics != nil {
				p.metrics.RecordEntry("skipped")
			}
			continue
		}

		verb := entry.Verb
		if verb == "" {
			verb = vocabulary.DefaultVerb
		}
		objectType := entry.ObjectType
		if objectType == "" {
			objectType = vocabulary.DefaultObjectType
		}

		if p.metrics != nil {
			p.metrics.RecordEntry("processed")
		}

		for _, link := range links {
			if err := p.record(ctx, entry, link, verb, objectType); err != nil {
				p.logger.Warn("failed to record activity",
					"link_id", link.ID, "entry", entry.Link, "error", err)
				if p.metrics != nil {
					p.metrics.RecordError("notification", errors.Classify(err).String())
				}
				continue
			}
			created++
		}
	}

	if p.metrics != nil {
		p.metrics.RecordNotification("processed")
	}
	p.logger.Info("delivery processed",
		"subscription_id", sub.ID, "entries", len(f.Entries), "activities", created)
	return nil
}

func (p *Processor) record(ctx context.Context, entry feed.Entry, link *store.Link,
	verb, objectType string) error {

	obj, err := p.objects.GetOrCreate(ctx, &store.RemoteObject{
		ID:         uuid.NewString(),
		LinkID:     link.ID,
		URL:        entry.Link,
		Title:      entry.Title,
		ObjectType: objectType,
	})
	if err != nil {
		return err
	}

	activity := &store.Activity{
		ActorID:   link.ActorID,
		LinkID:    link.ID,
		ProjectID: link.ProjectID,
		Verb:      verb,
		ObjectID:  obj.ID,
		Title:     obj.Title,
		URL:       obj.URL,
		Published: entry.Published,
	}
	if err := p.activities.Append(ctx, activity); err != nil {
		return err
	}

	if p.metrics != nil {
		p.metrics.RecordActivityCreated()
	}
	return nil
}
