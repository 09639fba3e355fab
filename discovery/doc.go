// Package discovery locates feeds and hubs declared by foreign documents.
//
// # Overview
//
// Two independently callable operations drive subscription acquisition:
//
//   - Feed: given raw HTML and the page URL, find the page's declared
//     syndication feed via <link rel="alternate"> elements, preferring Atom
//     over RSS
//   - Hub: given raw feed XML and the feed URL, find the feed-level
//     <link rel="hub"> declaration
//
// Both return "" for "not found" and never fail: the documents come from
// arbitrary third-party sites, so broken markup, truncated bodies, and
// non-XML input are expected outcomes, not faults. HTML is parsed with a
// forgiving parser (golang.org/x/net/html); XML parse errors degrade to the
// "not found" result.
//
// Normalize resolves the relative URLs these documents commonly declare
// against the URL they were fetched from. It is a pure string transform
// with no network access.
package discovery
