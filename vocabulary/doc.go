// Package vocabulary provides activity-streams vocabulary definitions for the
// FeedBridge pipeline.
//
// # Overview
//
// The pipeline annotates every created Activity with a verb IRI and every
// RemoteObject with an object-type IRI from the activity-streams schema
// (http://activitystrea.ms/schema/1.0). Feeds may declare these explicitly
// through the activity-streams XML extension namespace
// (http://activitystrea.ms/spec/1.0/); entries without the extension fall
// back to the defaults: verb "post", object-type "article".
//
// # Design
//
// The verb and object-type vocabularies are fixed lookup tables: immutable
// maps initialized once at package load, with bidirectional lookups
// (short name ↔ IRI). They are intentionally not extensible at runtime -
// unknown names resolve to the defaults rather than failing, since a remote
// feed's vocabulary is never under our control.
package vocabulary
