// Package store persists the pipeline's durable state in NATS KV and
// JetStream.
//
// Three KV buckets hold the relational state: links (a followed page for an
// actor), subscriptions (one per feed topic, shared across links), and
// remote objects (deduplicated targets of activities). Activities themselves
// are append-only and go to the ACTIVITIES JetStream stream, partitioned by
// actor in the subject.
package store
