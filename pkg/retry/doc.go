// Package retry provides simple exponential backoff retry logic for transient failures.
//
// # Overview
//
// This package offers a minimal retry mechanism with exponential backoff,
// used by the subscription pipeline for page fetches, feed fetches, and hub
// protocol calls.
//
// # Core Functions
//
//   - Do: Execute function with retry and exponential backoff
//   - DoWithResult: Execute function with retry, returns both result and error
//
// # Configuration Presets
//
//   - DefaultConfig(): 3 attempts, 100ms-5s delay (normal operations)
//   - Subscribe(): 3 attempts, 250ms-2s delay (subscription acquisition budget)
//
// # Usage Examples
//
// Fetch with the subscribe budget:
//
//	body, err := retry.DoWithResult(ctx, retry.Subscribe(), func() ([]byte, error) {
//	    return fetcher.Get(ctx, url)
//	})
//
// Permanent failures (a page either has a feed link or it doesn't) are
// marked so they fail without consuming budget:
//
//	err := retry.Do(ctx, cfg, func() error {
//	    if feedURL == "" {
//	        return retry.NonRetryable(errors.ErrNoFeedFound)
//	    }
//	    return subscribeToHub(feedURL)
//	})
//
// # Design Philosophy
//
// This package is intentionally minimal:
//
//   - No circuit breakers
//   - No metrics collection (use instrumentation at call site)
//   - No complex error classification (caller decides what to retry)
//   - Just exponential backoff with jitter
//
// # Context Cancellation
//
// All retry operations respect context cancellation and stop retrying
// immediately when the context is cancelled, either during operation
// execution or during backoff delay.
//
// # Thread Safety
//
// All functions are safe for concurrent use. The jitter mechanism uses a
// thread-safe random source to avoid contention.
package retry
