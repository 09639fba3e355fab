package discovery

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// Hub extracts a declared hub URL from a feed document, normalized against
// feedURL.
//
// Only feed-level link declarations are honored: the scan stops at the first
// <entry> (Atom) or <item> (RSS) element, since hub declarations are only
// meaningful at the feed/channel level and entries may be arbitrarily large.
// Both Atom-namespaced and unnamespaced link elements are considered, so an
// RSS channel's <atom:link rel="hub"> is found.
//
// Malformed or unparsable XML degrades to "" rather than an error.
func Hub(doc []byte, feedURL string) string {
	d := xml.NewDecoder(bytes.NewReader(doc))
	// Best-effort decode of non-UTF-8 documents; the elements we scan for
	// are ASCII either way.
	d.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	for {
		tok, err := d.Token()
		if err != nil {
			// io.EOF means no hub declared; any parse fault degrades the
			// same way.
			return ""
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "entry", "item":
			// Hub declarations after the first entry are not honored.
			return ""
		case "link":
			if href := hubHref(se); href != "" {
				return Normalize(href, feedURL)
			}
		}
	}
}

// hubHref returns the href of a link element whose rel is "hub", or "".
func hubHref(se xml.StartElement) string {
	var rel, href string
	for _, a := range se.Attr {
		switch a.Name.Local {
		case "rel":
			rel = strings.TrimSpace(a.Value)
		case "href":
			href = strings.TrimSpace(a.Value)
		}
	}
	if rel != "hub" {
		return ""
	}
	return href
}
