package discovery

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Feed media types recognized in <link rel="alternate"> declarations
const (
	atomMediaType = "application/atom+xml"
	rssMediaType  = "application/rss+xml"
)

// Feed extracts a feed URL from an HTML page, normalized against pageURL.
//
// It collects <link rel="alternate"> elements that declare an href and
// partitions them by media type. Atom candidates win over RSS regardless of
// document order; within a type the first candidate in document order is
// used. Returns "" when the page declares no feed.
//
// The document is parsed forgivingly: unclosed tags, invalid markup, and
// non-HTML input all degrade to "no feed found" rather than an error.
func Feed(doc []byte, pageURL string) string {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		// html.Parse recovers from almost anything; a hard failure means
		// unreadable input, which is just "no feed" to the caller.
		return ""
	}

	var atomHref, rssHref string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Link {
			rel, typ, href := linkAttrs(n)
			if rel == "alternate" && href != "" {
				switch typ {
				case atomMediaType:
					if atomHref == "" {
						atomHref = href
					}
				case rssMediaType:
					if rssHref == "" {
						rssHref = href
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	// Atom preferred over RSS
	if atomHref != "" {
		return Normalize(atomHref, pageURL)
	}
	if rssHref != "" {
		return Normalize(rssHref, pageURL)
	}
	return ""
}

// linkAttrs extracts the rel, type, and href attributes of a <link> element.
// rel and type are compared case-insensitively per HTML semantics.
func linkAttrs(n *html.Node) (rel, typ, href string) {
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "rel":
			rel = strings.ToLower(strings.TrimSpace(a.Val))
		case "type":
			typ = strings.ToLower(strings.TrimSpace(a.Val))
		case "href":
			href = strings.TrimSpace(a.Val)
		}
	}
	return rel, typ, href
}
