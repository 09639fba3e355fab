package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/feedbridge/errors"
	"github.com/c360/feedbridge/natsclient"
)

// Subscriptions persists Subscription entities in NATS KV, keyed by the
// subscription ID that also appears in the hub callback path.
type Subscriptions struct {
	kv *natsclient.KVStore
}

// NewSubscriptions opens the subscriptions bucket
func NewSubscriptions(ctx context.Context, client *natsclient.Client) (*Subscriptions, error) {
	if client == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("nats client cannot be nil"),
			"store", "NewSubscriptions", "create subscriptions store")
	}

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      "feedbridge_subscriptions",
		Description: "Hub subscriptions keyed by subscription ID",
		History:     5,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "store", "NewSubscriptions", "create KV bucket")
	}

	return &Subscriptions{kv: client.NewKVStore(bucket)}, nil
}

// Create stores a new subscription
func (s *Subscriptions) Create(ctx context.Context, sub *Subscription) error {
	if sub == nil {
		return errors.WrapInvalid(fmt.Errorf("subscription cannot be nil"),
			"store", "Create", "create subscription")
	}
	if sub.State == "" {
		sub.State = StatePending
	}
	if err := sub.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	data, err := json.Marshal(sub)
	if err != nil {
		return errors.WrapFatal(err, "store", "Create", "marshal subscription")
	}

	if _, err := s.kv.Create(ctx, sub.ID, data); err != nil {
		if natsclient.IsKVConflictError(err) {
			return errors.WrapInvalid(errors.ErrAlreadyExists, "store", "Create", "subscription "+sub.ID)
		}
		return errors.WrapTransient(err, "store", "Create", "create in KV")
	}
	return nil
}

// Get retrieves a subscription by ID
func (s *Subscriptions) Get(ctx context.Context, id string) (*Subscription, error) {
	if id == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("subscription ID cannot be empty"),
			"store", "Get", "get subscription")
	}

	entry, err := s.kv.Get(ctx, id)
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return nil, errors.WrapInvalid(errors.ErrKeyNotFound, "store", "Get", "subscription "+id)
		}
		return nil, errors.WrapTransient(err, "store", "Get", "get from KV")
	}

	var sub Subscription
	if err := json.Unmarshal(entry.Value, &sub); err != nil {
		return nil, errors.WrapFatal(err, "store", "Get", "unmarshal subscription")
	}
	return &sub, nil
}

// Update overwrites a subscription
func (s *Subscriptions) Update(ctx context.Context, sub *Subscription) error {
	if sub == nil {
		return errors.WrapInvalid(fmt.Errorf("subscription cannot be nil"),
			"store", "Update", "update subscription")
	}
	if err := sub.Validate(); err != nil {
		return err
	}

	sub.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(sub)
	if err != nil {
		return errors.WrapFatal(err, "store", "Update", "marshal subscription")
	}

	if _, err := s.kv.Put(ctx, sub.ID, data); err != nil {
		return errors.WrapTransient(err, "store", "Update", "put to KV")
	}
	return nil
}

// Delete removes a subscription by ID
func (s *Subscriptions) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.WrapInvalid(fmt.Errorf("subscription ID cannot be empty"),
			"store", "Delete", "delete subscription")
	}

	if err := s.kv.Delete(ctx, id); err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return errors.WrapInvalid(errors.ErrKeyNotFound, "store", "Delete", "subscription "+id)
		}
		return errors.WrapTransient(err, "store", "Delete", "delete from KV")
	}
	return nil
}

// List retrieves all subscriptions
func (s *Subscriptions) List(ctx context.Context) ([]*Subscription, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		return nil, errors.WrapTransient(err, "store", "List", "list KV keys")
	}

	subs := make([]*Subscription, 0, len(keys))
	for _, key := range keys {
		sub, err := s.Get(ctx, key)
		if err != nil {
			return nil, errors.WrapTransient(err, "store", "List", "get subscription "+key)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// FindByTopic returns the reusable subscription for a feed topic, or
// ErrKeyNotFound. Several links pointing at the same feed share one
// subscription, so this is the lookup that prevents duplicate hub leases.
// Unsubscribed and abandoned leases are skipped so the next link for the
// topic negotiates a fresh one.
func (s *Subscriptions) FindByTopic(ctx context.Context, topic string) (*Subscription, error) {
	if topic == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("topic cannot be empty"),
			"store", "FindByTopic", "find subscription")
	}

	subs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, sub := range subs {
		if sub.Topic == topic && sub.Reusable() {
			return sub, nil
		}
	}
	return nil, errors.WrapInvalid(errors.ErrKeyNotFound, "store", "FindByTopic", "topic "+topic)
}
