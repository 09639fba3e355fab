package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/feedbridge/errors"
	"github.com/c360/feedbridge/natsclient"
)

// ActivityStreamName is the JetStream stream holding every activity
const ActivityStreamName = "ACTIVITIES"

// ActivitySubjectPrefix is the subject space the stream captures. Each
// activity is published on activity.<actorID> so consumers can tail a
// single actor's timeline.
const ActivitySubjectPrefix = "activity."

// Activities appends Activity records to the ACTIVITIES stream
type Activities struct {
	client *natsclient.Client
}

// NewActivities ensures the stream exists and returns the sink
func NewActivities(ctx context.Context, client *natsclient.Client) (*Activities, error) {
	if client == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("nats client cannot be nil"),
			"store", "NewActivities", "create activity sink")
	}

	_, err := client.EnsureStream(ctx, jetstream.StreamConfig{
		Name:        ActivityStreamName,
		Description: "Actor timelines, one subject per actor",
		Subjects:    []string{ActivitySubjectPrefix + ">"},
		Retention:   jetstream.LimitsPolicy,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "store", "NewActivities", "ensure stream")
	}

	return &Activities{client: client}, nil
}

// Append publishes an activity to its actor's subject. The ID and
// timestamp are assigned here if unset.
func (a *Activities) Append(ctx context.Context, activity *Activity) error {
	if activity == nil {
		return errors.WrapInvalid(fmt.Errorf("activity cannot be nil"),
			"store", "Append", "append activity")
	}
	if activity.ActorID == "" {
		return errors.WrapInvalid(fmt.Errorf("activity has no actor"),
			"store", "Append", "append activity")
	}

	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(activity)
	if err != nil {
		return errors.WrapFatal(err, "store", "Append", "marshal activity")
	}

	subject := ActivitySubjectPrefix + activity.ActorID
	if err := a.client.PublishToStream(ctx, subject, data); err != nil {
		return errors.WrapTransient(err, "store", "Append", "publish activity")
	}
	return nil
}
