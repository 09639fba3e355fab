package subscription

import (
	"encoding/json"

	"github.com/c360/feedbridge/errors"
)

// NATS subjects carrying link lifecycle events
const (
	SubjectLinkCreated = "link.event.created"
	SubjectLinkDeleted = "link.event.deleted"
)

// LinkEvent is the payload published when an actor follows or unfollows
// a page. Broadcast mirrors the link's flag: only broadcast links go
// through the hub handshake.
type LinkEvent struct {
	LinkID    string `json:"link_id"`
	Name      string `json:"name,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
	URL       string `json:"url,omitempty"`
	Broadcast bool   `json:"broadcast,omitempty"`
}

// ParseLinkEvent decodes a link event payload
func ParseLinkEvent(data []byte) (*LinkEvent, error) {
	var ev LinkEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, errors.WrapInvalid(err, "subscription", "ParseLinkEvent", "unmarshal event")
	}
	if ev.LinkID == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidPayload,
			"subscription", "ParseLinkEvent", "event missing link_id")
	}
	return &ev, nil
}
