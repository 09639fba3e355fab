// Package natsclient manages the NATS connection shared by the pipeline.
//
// It wraps the core connection lifecycle (connect, drain, close), plain
// pub/sub for link events, JetStream streams for the activity sink, and
// key-value buckets for persistence. A KVStore layered on a bucket adds
// revision-aware updates with retry for concurrent writers.
package natsclient
