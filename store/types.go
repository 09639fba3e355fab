package store

import (
	"fmt"
	"time"

	"github.com/c360/feedbridge/errors"
)

// SubscriptionState tracks where a subscription is in the hub handshake
type SubscriptionState string

// Subscription lifecycle states
const (
	StatePending   SubscriptionState = "pending"
	StateVerified  SubscriptionState = "verified"
	StateUnsubbed  SubscriptionState = "unsubscribed"
	StateAbandoned SubscriptionState = "abandoned"
)

// Link is a page an actor follows. Several links may share one
// subscription when their pages advertise the same feed. Only links marked
// Broadcast ever acquire a subscription.
type Link struct {
	ID             string    `json:"id"`
	Name           string    `json:"name,omitempty"`
	ActorID        string    `json:"actor_id"`
	ProjectID      string    `json:"project_id,omitempty"`
	URL            string    `json:"url"`
	Broadcast      bool      `json:"broadcast"`
	FeedURL        string    `json:"feed_url,omitempty"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Validate checks the link is storable
func (l *Link) Validate() error {
	if l.ID == "" {
		return errors.WrapInvalid(fmt.Errorf("link ID cannot be empty"),
			"store", "Validate", "link validation failed")
	}
	if l.ActorID == "" {
		return errors.WrapInvalid(fmt.Errorf("link %s has no actor", l.ID),
			"store", "Validate", "link validation failed")
	}
	if l.URL == "" {
		return errors.WrapInvalid(fmt.Errorf("link %s has no URL", l.ID),
			"store", "Validate", "link validation failed")
	}
	return nil
}

// Subscription is a PubSubHubbub lease on one feed topic
type Subscription struct {
	ID              string            `json:"id"`
	Topic           string            `json:"topic"`
	Hub             string            `json:"hub"`
	Secret          string            `json:"secret"`
	VerifyToken     string            `json:"verify_token"`
	State           SubscriptionState `json:"state"`
	LeaseExpiration time.Time         `json:"lease_expiration,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Verified reports whether the hub has confirmed the subscription
func (s *Subscription) Verified() bool {
	return s.State == StateVerified
}

// Reusable reports whether new links may still attach to this subscription.
// Unsubscribed and abandoned leases are dead ends; a new link for the same
// topic negotiates a fresh one.
func (s *Subscription) Reusable() bool {
	return s.State == StatePending || s.State == StateVerified
}

// Validate checks the subscription is storable
func (s *Subscription) Validate() error {
	if s.ID == "" {
		return errors.WrapInvalid(fmt.Errorf("subscription ID cannot be empty"),
			"store", "Validate", "subscription validation failed")
	}
	if s.Topic == "" {
		return errors.WrapInvalid(fmt.Errorf("subscription %s has no topic", s.ID),
			"store", "Validate", "subscription validation failed")
	}
	if s.Hub == "" {
		return errors.WrapInvalid(fmt.Errorf("subscription %s has no hub", s.ID),
			"store", "Validate", "subscription validation failed")
	}
	switch s.State {
	case StatePending, StateVerified, StateUnsubbed, StateAbandoned:
	default:
		return errors.WrapInvalid(fmt.Errorf("invalid subscription state: %s", s.State),
			"store", "Validate", "subscription validation failed")
	}
	return nil
}

// RemoteObject is one pushed entry as seen through one link: the row is
// keyed by (link, entry URL), so a redelivered entry reuses the existing
// row instead of minting a new one.
type RemoteObject struct {
	ID         string    `json:"id"`
	LinkID     string    `json:"link_id"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	ObjectType string    `json:"object_type"`
	CreatedAt  time.Time `json:"created_at"`
}

// Validate checks the remote object is storable
func (o *RemoteObject) Validate() error {
	if o.ID == "" {
		return errors.WrapInvalid(fmt.Errorf("object ID cannot be empty"),
			"store", "Validate", "object validation failed")
	}
	if o.LinkID == "" {
		return errors.WrapInvalid(fmt.Errorf("object %s has no link", o.ID),
			"store", "Validate", "object validation failed")
	}
	if o.URL == "" {
		return errors.WrapInvalid(fmt.Errorf("object %s has no URL", o.ID),
			"store", "Validate", "object validation failed")
	}
	if o.Title == "" {
		return errors.WrapInvalid(fmt.Errorf("object %s has no title", o.ID),
			"store", "Validate", "object validation failed")
	}
	return nil
}

// Activity is one event on an actor's timeline
type Activity struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	LinkID    string    `json:"link_id"`
	ProjectID string    `json:"project_id,omitempty"`
	Verb      string    `json:"verb"`
	ObjectID  string    `json:"object_id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	// Published is the entry's declared date; zero when the feed carried
	// none. CreatedAt is when the activity entered the stream.
	Published time.Time `json:"published,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
