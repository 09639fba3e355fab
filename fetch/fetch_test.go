package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/feedbridge/errors"
)

func TestGet_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "feedbridge")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	f := New(DefaultConfig(), nil)
	body, err := f.Get(context.Background(), srv.URL, "page")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(body))
}

func TestGet_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(DefaultConfig(), nil)
	_, err := f.Get(context.Background(), srv.URL, "page")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrFetchFailed)
	assert.True(t, errors.IsTransient(err))
}

func TestGet_ConnectionRefused(t *testing.T) {
	f := New(DefaultConfig(), nil)
	_, err := f.Get(context.Background(), "http://127.0.0.1:1/", "page")
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

func TestGet_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.MaxBodyBytes = 1024

	f := New(cfg, nil)
	_, err := f.Get(context.Background(), srv.URL, "feed")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrResponseTooLarge)
	assert.True(t, errors.IsInvalid(err))
}

func TestGet_EmptyURL(t *testing.T) {
	f := New(DefaultConfig(), nil)
	_, err := f.Get(context.Background(), "", "page")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestGet_RateLimiterThrottles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.RequestsPerSecond = 20
	cfg.Burst = 1

	f := New(cfg, nil)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := f.Get(ctx, srv.URL, "page")
		require.NoError(t, err)
	}
	// Burst of 1 at 20 rps: two of the three requests wait ~50ms each
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestGet_LimiterWaitCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.RequestsPerSecond = 0.001 // makes the second request wait far past the deadline
	cfg.Burst = 1

	f := New(cfg, nil)

	_, err := f.Get(context.Background(), srv.URL, "page") // consumes the burst token
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = f.Get(ctx, srv.URL, "page")
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}
