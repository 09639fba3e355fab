// Package hubclient speaks the subscriber half of the PubSubHubbub 0.4
// protocol: subscription and unsubscription requests to a hub, plus the
// credential material (secret, verify token) each lease needs.
package hubclient

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/c360/feedbridge/errors"
	"github.com/c360/feedbridge/store"
)

// Config holds hub client configuration
type Config struct {
	// DefaultHub is used when a feed declares no hub of its own
	DefaultHub string
	// Username and Password authenticate requests to the default hub
	Username string
	Password string
	// CallbackBase is the externally reachable prefix for hub callbacks,
	// e.g. "https://bridge.example.com"
	CallbackBase string
	// LeaseSeconds requested from the hub. Zero lets the hub decide.
	LeaseSeconds int
	// Timeout bounds each hub request
	Timeout time.Duration
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.CallbackBase == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "hubclient", "Validate",
			"callback base is required")
	}
	if _, err := url.Parse(c.CallbackBase); err != nil {
		return errors.WrapInvalid(err, "hubclient", "Validate", "invalid callback base")
	}
	if c.DefaultHub != "" {
		if _, err := url.Parse(c.DefaultHub); err != nil {
			return errors.WrapInvalid(err, "hubclient", "Validate", "invalid default hub")
		}
	}
	if c.LeaseSeconds < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "hubclient", "Validate",
			"lease seconds cannot be negative")
	}
	return nil
}

// Client sends subscriber requests to PubSubHubbub hubs
type Client struct {
	config     Config
	httpClient *http.Client
}

// New creates a hub client
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// DefaultHub returns the configured fallback hub, empty if none
func (c *Client) DefaultHub() string {
	return c.config.DefaultHub
}

// CallbackURL returns the callback endpoint for a subscription ID
func (c *Client) CallbackURL(subscriptionID string) string {
	return strings.TrimRight(c.config.CallbackBase, "/") + "/hub/callback/" + subscriptionID
}

// Subscribe asks the hub to start delivering the subscription's topic
func (c *Client) Subscribe(ctx context.Context, sub *store.Subscription) error {
	return c.send(ctx, "subscribe", sub)
}

// Unsubscribe asks the hub to stop delivering the subscription's topic
func (c *Client) Unsubscribe(ctx context.Context, sub *store.Subscription) error {
	return c.send(ctx, "unsubscribe", sub)
}

func (c *Client) send(ctx context.Context, mode string, sub *store.Subscription) error {
	if sub == nil {
		return errors.WrapInvalid(fmt.Errorf("subscription cannot be nil"),
			"hubclient", "send", mode)
	}
	if sub.Hub == "" || sub.Topic == "" {
		return errors.WrapInvalid(fmt.Errorf("subscription missing hub or topic"),
			"hubclient", "send", mode)
	}

	form := url.Values{}
	form.Set("hub.mode", mode)
	form.Set("hub.topic", sub.Topic)
	form.Set("hub.callback", c.CallbackURL(sub.ID))
	form.Set("hub.verify", "async")
	if sub.VerifyToken != "" {
		form.Set("hub.verify_token", sub.VerifyToken)
	}
	if sub.Secret != "" {
		form.Set("hub.secret", sub.Secret)
	}
	if mode == "subscribe" && c.config.LeaseSeconds > 0 {
		form.Set("hub.lease_seconds", strconv.Itoa(c.config.LeaseSeconds))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Hub,
		strings.NewReader(form.Encode()))
	if err != nil {
		return errors.WrapInvalid(err, "hubclient", "send", "build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	// Credentials apply only to our own hub, never to third-party hubs
	// discovered from feeds
	if c.config.DefaultHub != "" && sub.Hub == c.config.DefaultHub &&
		c.config.Username != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WrapTransient(err, "hubclient", "send", mode+" request")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.WrapTransient(
			fmt.Errorf("%w: %s returned %d", errors.ErrHubRejected, sub.Hub, resp.StatusCode),
			"hubclient", "send", mode+" request")
	}

	return nil
}

// NewSecret generates the shared secret for signature verification
func NewSecret() (string, error) {
	return randomHex(32)
}

// NewVerifyToken generates the verify token echoed during the handshake
func NewVerifyToken() (string, error) {
	return randomHex(16)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.WrapFatal(err, "hubclient", "randomHex", "read random bytes")
	}
	return hex.EncodeToString(buf), nil
}
