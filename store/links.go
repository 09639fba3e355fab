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

// Links persists Link entities in NATS KV
type Links struct {
	kv *natsclient.KVStore
}

// NewLinks opens the links bucket
func NewLinks(ctx context.Context, client *natsclient.Client) (*Links, error) {
	if client == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("nats client cannot be nil"),
			"store", "NewLinks", "create links store")
	}

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      "feedbridge_links",
		Description: "Followed pages keyed by link ID",
		History:     5,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "store", "NewLinks", "create KV bucket")
	}

	return &Links{kv: client.NewKVStore(bucket)}, nil
}

// Create stores a new link. Fails if the ID is already taken.
func (s *Links) Create(ctx context.Context, link *Link) error {
	if link == nil {
		return errors.WrapInvalid(fmt.Errorf("link cannot be nil"), "store", "Create", "create link")
	}
	if err := link.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	link.CreatedAt = now
	link.UpdatedAt = now

	data, err := json.Marshal(link)
	if err != nil {
		return errors.WrapFatal(err, "store", "Create", "marshal link")
	}

	if _, err := s.kv.Create(ctx, link.ID, data); err != nil {
		if natsclient.IsKVConflictError(err) {
			return errors.WrapInvalid(errors.ErrAlreadyExists, "store", "Create", "link "+link.ID)
		}
		return errors.WrapTransient(err, "store", "Create", "create in KV")
	}

	return nil
}

// Get retrieves a link by ID
func (s *Links) Get(ctx context.Context, id string) (*Link, error) {
	if id == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("link ID cannot be empty"), "store", "Get", "get link")
	}

	entry, err := s.kv.Get(ctx, id)
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return nil, errors.WrapInvalid(errors.ErrKeyNotFound, "store", "Get", "link "+id)
		}
		return nil, errors.WrapTransient(err, "store", "Get", "get from KV")
	}

	var link Link
	if err := json.Unmarshal(entry.Value, &link); err != nil {
		return nil, errors.WrapFatal(err, "store", "Get", "unmarshal link")
	}
	return &link, nil
}

// Update overwrites a link
func (s *Links) Update(ctx context.Context, link *Link) error {
	if link == nil {
		return errors.WrapInvalid(fmt.Errorf("link cannot be nil"), "store", "Update", "update link")
	}
	if err := link.Validate(); err != nil {
		return err
	}

	link.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(link)
	if err != nil {
		return errors.WrapFatal(err, "store", "Update", "marshal link")
	}

	if _, err := s.kv.Put(ctx, link.ID, data); err != nil {
		return errors.WrapTransient(err, "store", "Update", "put to KV")
	}
	return nil
}

// Delete removes a link by ID
func (s *Links) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.WrapInvalid(fmt.Errorf("link ID cannot be empty"), "store", "Delete", "delete link")
	}

	if err := s.kv.Delete(ctx, id); err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return errors.WrapInvalid(errors.ErrKeyNotFound, "store", "Delete", "link "+id)
		}
		return errors.WrapTransient(err, "store", "Delete", "delete from KV")
	}
	return nil
}

// List retrieves all links
func (s *Links) List(ctx context.Context) ([]*Link, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		return nil, errors.WrapTransient(err, "store", "List", "list KV keys")
	}

	links := make([]*Link, 0, len(keys))
	for _, key := range keys {
		link, err := s.Get(ctx, key)
		if err != nil {
			return nil, errors.WrapTransient(err, "store", "List", "get link "+key)
		}
		links = append(links, link)
	}
	return links, nil
}

// ListBySubscription returns every link attached to a subscription. This is
// the fan-out set for an incoming notification.
func (s *Links) ListBySubscription(ctx context.Context, subscriptionID string) ([]*Link, error) {
	if subscriptionID == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("subscription ID cannot be empty"),
			"store", "ListBySubscription", "list links")
	}

	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var links []*Link
	for _, link := range all {
		if link.SubscriptionID == subscriptionID {
			links = append(links, link)
		}
	}
	return links, nil
}
