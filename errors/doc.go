// Package errors provides standardized error handling patterns for FeedBridge.
//
// # Overview
//
// The package implements a three-class error classification system:
// Transient (temporary, retryable), Invalid (bad input, non-retryable),
// and Fatal (unrecoverable, stop processing).
//
// Classification drives the pipeline's retry decisions: a fetch timeout is
// transient and consumes retry budget, a page with no feed link is invalid
// and abandons immediately, a missing configuration value is fatal.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Fetcher", "Get", "page fetch")     // retryable
//	errors.WrapInvalid(err, "Discovery", "Feed", "html parse")    // do not retry
//	errors.WrapFatal(err, "Config", "Load", "read file")          // stop processing
//
// # Standard Error Variables
//
// Pre-defined error variables cover the pipeline's known conditions, for
// example ErrNoFeedFound and ErrNoHubFound (permanent discovery misses),
// ErrHubRejected (hub protocol failures, retried under the same budget as
// network errors), and ErrSignatureMismatch (notification authentication).
// Use these instead of ad-hoc error strings so callers can branch with
// errors.Is.
//
// # Integration with errors.Is/As
//
// All types support standard library error inspection; classification is
// preserved through fmt.Errorf("%w") chains:
//
//	wrapped := errors.WrapTransient(errors.ErrConnectionTimeout, "Fetcher", "Get", "dial")
//	errors.IsTransient(wrapped) // true
//
// Context errors (context.DeadlineExceeded, context.Canceled) classify as
// transient, so context-based timeouts and network timeouts are handled
// uniformly.
package errors
