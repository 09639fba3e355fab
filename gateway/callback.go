package gateway

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/c360/feedbridge/errors"
	"github.com/c360/feedbridge/feed"
	"github.com/c360/feedbridge/store"
)

// handleVerification answers the hub's intent-confirmation GET. The
// challenge is echoed back only when the verify token matches; on a
// subscribe confirmation the lease is recorded and the subscription
// becomes verified.
func (g *Gateway) handleVerification(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	q := r.URL.Query()

	mode := q.Get("hub.mode")
	challenge := q.Get("hub.challenge")
	if challenge == "" {
		http.Error(w, "missing challenge", http.StatusBadRequest)
		return
	}

	sub, err := g.subs.Get(r.Context(), id)
	if err != nil {
		g.logger.Debug("verification for unknown subscription", "subscription_id", id)
		http.NotFound(w, r)
		return
	}

	if sub.VerifyToken != "" && q.Get("hub.verify_token") != sub.VerifyToken {
		g.logger.Warn("verify token mismatch", "subscription_id", id)
		if g.metrics != nil {
			g.metrics.RecordError("gateway", "verify_token_mismatch")
		}
		http.NotFound(w, r)
		return
	}

	switch mode {
	case "subscribe":
		sub.State = store.StateVerified
		if secs, err := strconv.Atoi(q.Get("hub.lease_seconds")); err == nil && secs > 0 {
			sub.LeaseExpiration = time.Now().UTC().Add(time.Duration(secs) * time.Second)
		}
		if err := g.subs.Update(r.Context(), sub); err != nil {
			g.logger.Error("failed to mark subscription verified",
				"subscription_id", id, "error", err)
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		g.logger.Info("subscription verified", "subscription_id", id, "topic", sub.Topic)
	case "unsubscribe":
		g.logger.Info("unsubscribe confirmed", "subscription_id", id)
	default:
		http.Error(w, "unknown mode", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, challenge)
}

// handleNotification accepts a content push. The HMAC signature gates
// processing: an unverifiable payload is acknowledged with 2xx so the hub
// does not retry, but nothing downstream sees it.
func (g *Gateway) handleNotification(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sub, err := g.subs.Get(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, g.config.MaxBodyBytes+1))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	if int64(len(body)) > g.config.MaxBodyBytes {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	if !sub.Verified() {
		g.logger.Warn("delivery for unverified subscription", "subscription_id", id)
		if g.metrics != nil {
			g.metrics.RecordNotification("unverified")
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if sub.Secret != "" && !validSignature(sub, body, r.Header.Get("X-Hub-Signature")) {
		g.logger.Warn("delivery with bad signature", "subscription_id", id)
		if g.metrics != nil {
			g.metrics.RecordNotification("bad_signature")
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	parsed, err := feed.Parse(body)
	if err != nil {
		g.logger.Warn("unparsable delivery", "subscription_id", id, "error", err)
		if g.metrics != nil {
			g.metrics.RecordNotification("unparsable")
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if err := g.notes.Handle(r.Context(), parsed, sub); err != nil {
		// Transient processing failure: let the hub redeliver
		if errors.IsTransient(err) {
			g.logger.Error("delivery processing failed", "subscription_id", id, "error", err)
			http.Error(w, "processing error", http.StatusInternalServerError)
			return
		}
		g.logger.Warn("delivery rejected", "subscription_id", id, "error", err)
	}

	w.WriteHeader(http.StatusAccepted)
}

// validSignature checks the X-Hub-Signature header against the
// subscription secret
func validSignature(sub *store.Subscription, body []byte, header string) bool {
	const prefix = "sha1="
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	provided, err := hex.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha1.New, []byte(sub.Secret))
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}
