// Package feedbridge implements a feed subscription and notification
// pipeline: it discovers syndication feeds and their publish/subscribe hubs
// from arbitrary web pages, manages subscriber-side hub registrations with
// bounded retries, and converts pushed feed entries into normalized
// activity records.
//
// # Architecture
//
// The pipeline is built from small packages connected through NATS:
//
//	┌──────────────┐   link.event.>   ┌───────────────────┐
//	│  Link CRUD   ├─────────────────→│ subscription      │  discover feed,
//	│ (web layer,  │                  │ .Manager          │  discover hub,
//	│ out of scope)│                  │ (worker pool)     │  hub subscribe
//	└──────────────┘                  └─────────┬─────────┘
//	                                            │ persists
//	                                  ┌─────────▼─────────┐
//	                                  │ store (NATS KV)   │
//	                                  │ links, subs,      │
//	                                  │ remote objects    │
//	                                  └─────────▲─────────┘
//	┌──────────────┐  POST /hub/cb/…  ┌─────────┴─────────┐  activity.<actor>
//	│  Remote hub  ├─────────────────→│ gateway → feed →  ├──────────────────→
//	│ (PubSubHubbub│  GET  /hub/cb/…  │ notification      │  JetStream stream
//	│  style)      │  (verification)  │ .Processor        │  ACTIVITIES
//	└──────────────┘                  └───────────────────┘
//
// # Packages
//
// Pipeline:
//   - discovery: feed URL discovery from HTML, hub URL discovery from
//     feed XML, relative URL normalization
//   - feed: namespace-aware Atom/RSS parsing with activity-streams
//     extension support
//   - subscription: per-Link subscribe/unsubscribe orchestration
//   - hubclient: subscriber side of the hub protocol
//   - notification: pushed entry → RemoteObject + Activity fan-out
//   - gateway: hub callback endpoint (verification, signed notifications)
//     and a websocket activity tail
//
// Infrastructure:
//   - natsclient: NATS connection management and KV access
//   - store: Link/Subscription/RemoteObject persistence and the Activity sink
//   - vocabulary: activity-streams verb and object-type tables
//   - config: configuration loading and validation
//   - metric: Prometheus metrics
//   - errors: structured error handling
//   - pkg/retry, pkg/worker: retry policies and worker pools
//
// # Design principles
//
// Discovery against arbitrary third-party sites is inherently flaky, so
// every network step carries a bounded retry budget and abandons silently
// on exhaustion; subscription acquisition is best-effort background work
// and never surfaces synchronously to a user.
//
// Foreign documents are never trusted: HTML is parsed forgivingly, XML
// parsing faults degrade to "not found" results, and a malformed pushed
// payload drops the whole delivery without failing the hub-facing
// acknowledgment path.
package feedbridge
