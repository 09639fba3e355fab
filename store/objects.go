package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/feedbridge/errors"
	"github.com/c360/feedbridge/natsclient"
)

// Objects persists RemoteObject entities in NATS KV, keyed by a digest of
// (link, entry URL) so a redelivered entry reuses its existing row per link.
type Objects struct {
	kv *natsclient.KVStore
}

// NewObjects opens the objects bucket
func NewObjects(ctx context.Context, client *natsclient.Client) (*Objects, error) {
	if client == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("nats client cannot be nil"),
			"store", "NewObjects", "create objects store")
	}

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      "feedbridge_objects",
		Description: "Remote objects keyed by link and URL digest",
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "store", "NewObjects", "create KV bucket")
	}

	return &Objects{kv: client.NewKVStore(bucket)}, nil
}

// ObjectKey derives the KV key for one link's view of an entry URL
func ObjectKey(linkID, url string) string {
	sum := sha256.Sum256([]byte(linkID + "\x00" + url))
	return hex.EncodeToString(sum[:])
}

// Get retrieves the object a link holds for an entry URL
func (s *Objects) Get(ctx context.Context, linkID, url string) (*RemoteObject, error) {
	if linkID == "" || url == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("link ID and URL are required"),
			"store", "Get", "get object")
	}

	entry, err := s.kv.Get(ctx, ObjectKey(linkID, url))
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return nil, errors.WrapInvalid(errors.ErrKeyNotFound, "store", "Get", "object "+url)
		}
		return nil, errors.WrapTransient(err, "store", "Get", "get from KV")
	}

	var obj RemoteObject
	if err := json.Unmarshal(entry.Value, &obj); err != nil {
		return nil, errors.WrapFatal(err, "store", "Get", "unmarshal object")
	}
	return &obj, nil
}

// GetOrCreate returns the stored object for (obj.LinkID, obj.URL), creating
// it if absent. A concurrent creator wins the race and its row is returned.
func (s *Objects) GetOrCreate(ctx context.Context, obj *RemoteObject) (*RemoteObject, error) {
	if obj == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("object cannot be nil"),
			"store", "GetOrCreate", "store object")
	}
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, obj.LinkID, obj.URL)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, errors.ErrKeyNotFound) {
		return nil, err
	}

	obj.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(obj)
	if err != nil {
		return nil, errors.WrapFatal(err, "store", "GetOrCreate", "marshal object")
	}

	if _, err := s.kv.Create(ctx, ObjectKey(obj.LinkID, obj.URL), data); err != nil {
		if natsclient.IsKVConflictError(err) {
			return s.Get(ctx, obj.LinkID, obj.URL)
		}
		return nil, errors.WrapTransient(err, "store", "GetOrCreate", "create in KV")
	}
	return obj, nil
}
