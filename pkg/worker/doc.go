// Package worker provides a generic, thread-safe worker pool for concurrent task processing.
//
// # Overview
//
// The worker package implements the pipeline's explicit task/queue
// abstraction. Subscription acquisition and teardown run as submitted tasks,
// decoupled from the request that created or deleted a Link:
//   - Generic type support for type-safe work processing
//   - Bounded queues with backpressure (non-blocking submit)
//   - Context-aware cancellation and graceful shutdown
//   - Always-on statistics plus optional Prometheus metrics
//
// # Usage
//
//	type subscribeTask struct {
//	    LinkID string
//	}
//
//	pool := worker.NewPool[subscribeTask](
//	    4,   // workers
//	    256, // queue size
//	    func(ctx context.Context, task subscribeTask) error {
//	        return manager.process(ctx, task)
//	    },
//	    worker.WithMetricsRegistry[subscribeTask](registry, "subscribe"),
//	)
//
//	pool.Start(ctx)
//	defer pool.Stop(5 * time.Second)
//
//	if err := pool.Submit(subscribeTask{LinkID: id}); err != nil {
//	    if errors.Is(err, worker.ErrQueueFull) {
//	        // backpressure: the task is dropped, subscription stays absent
//	    }
//	}
//
// # Semantics
//
// Submit is non-blocking: a full queue returns ErrQueueFull immediately
// rather than stalling the caller. Stop closes the queue, lets workers drain
// remaining items, and waits up to the given timeout. Workers receive the
// Start context and exit when it is cancelled or the queue is closed, so
// in-flight tasks see cancellation through their own context checks.
//
// Worker count is fixed at pool creation; there is no dynamic scaling, no
// priority queue, and no per-item cancellation. Processor errors are counted
// but not interpreted - the processor owns its own retry and abandonment
// policy.
//
// # Thread Safety
//
// All public methods are safe for concurrent use. Statistics use atomic
// operations and Stats() requires no locks.
package worker
