package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/c360/feedbridge/subscription"
)

type createLinkRequest struct {
	ActorID   string `json:"actor_id"`
	URL       string `json:"url"`
	Name      string `json:"name,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
	Broadcast bool   `json:"broadcast,omitempty"`
}

type createLinkResponse struct {
	LinkID string `json:"link_id"`
}

// handleCreateLink accepts a follow request and hands it to the
// subscription manager through the event bus. Discovery and the hub
// handshake happen asynchronously; the caller gets the link ID right away.
func (g *Gateway) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024)).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.ActorID == "" || req.URL == "" {
		http.Error(w, "actor_id and url are required", http.StatusBadRequest)
		return
	}

	ev := subscription.LinkEvent{
		LinkID:    uuid.NewString(),
		Name:      req.Name,
		ActorID:   req.ActorID,
		ProjectID: req.ProjectID,
		URL:       req.URL,
		Broadcast: req.Broadcast,
	}
	data, err := json.Marshal(ev)
	if err != nil {
		http.Error(w, "encoding error", http.StatusInternalServerError)
		return
	}

	if err := g.events.Publish(r.Context(), subscription.SubjectLinkCreated, data); err != nil {
		g.logger.Error("failed to publish link event", "error", err)
		http.Error(w, "event bus unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(createLinkResponse{LinkID: ev.LinkID})
}

// handleDeleteLink publishes the unfollow event. Releasing the hub lease,
// if this was the feed's last link, is the manager's business.
func (g *Gateway) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "link id is required", http.StatusBadRequest)
		return
	}

	data, err := json.Marshal(subscription.LinkEvent{LinkID: id})
	if err != nil {
		http.Error(w, "encoding error", http.StatusInternalServerError)
		return
	}

	if err := g.events.Publish(r.Context(), subscription.SubjectLinkDeleted, data); err != nil {
		g.logger.Error("failed to publish link event", "error", err)
		http.Error(w, "event bus unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
