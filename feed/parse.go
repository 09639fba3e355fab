// Package feed parses Atom and RSS documents into a normalized form for the
// notification pipeline.
package feed

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"time"

	"github.com/c360/feedbridge/errors"
	"github.com/c360/feedbridge/pkg/timestamp"
	"github.com/c360/feedbridge/vocabulary"
)

// Feed is a normalized feed document
type Feed struct {
	Title   string
	Entries []Entry
}

// Entry is one normalized feed entry. Verb and ObjectType carry the
// activity-streams extension IRIs when the feed declares them, and are empty
// otherwise; callers apply the vocabulary defaults. Bare schema names the
// document declares (verb "post" instead of the full IRI) are resolved
// during normalization.
type Entry struct {
	Title      string
	Link       string
	Verb       string
	ObjectType string
	// Published is the entry's declared date, zero when the document
	// carries none or the format is unrecognized.
	Published time.Time
}

// atomFeed mirrors the subset of an Atom document the pipeline consumes.
// Unqualified element names match any namespace, so namespaced and
// unnamespaced documents both decode; the activity-streams fields match
// only their extension namespace regardless of the prefix the document
// bound it to.
type atomFeed struct {
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title      string     `xml:"title"`
	Links      []atomLink `xml:"link"`
	Published  string     `xml:"published"`
	Updated    string     `xml:"updated"`
	Verb       string     `xml:"http://activitystrea.ms/spec/1.0/ verb"`
	ObjectType string     `xml:"http://activitystrea.ms/spec/1.0/ object-type"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

// rssDoc mirrors the subset of an RSS document the pipeline consumes
type rssDoc struct {
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title      string `xml:"title"`
	Link       string `xml:"link"`
	PubDate    string `xml:"pubDate"`
	Verb       string `xml:"http://activitystrea.ms/spec/1.0/ verb"`
	ObjectType string `xml:"http://activitystrea.ms/spec/1.0/ object-type"`
}

// Parse decodes an Atom or RSS document into a normalized Feed.
//
// Unparsable XML or an unrecognized root element returns an error wrapping
// errors.ErrInvalidPayload; callers drop the whole delivery rather than
// guessing at partial content. Entries missing fields are kept as-is - the
// per-entry skip decision belongs to the notification processor.
func Parse(data []byte) (*Feed, error) {
	root, err := rootElement(data)
	if err != nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidPayload, "feed", "Parse", "detect document type")
	}

	switch root {
	case "feed":
		var doc atomFeed
		if err := decode(data, &doc); err != nil {
			return nil, errors.WrapInvalid(errors.ErrParsingFailed, "feed", "Parse", "decode atom document")
		}
		return normalizeAtom(&doc), nil
	case "rss":
		var doc rssDoc
		if err := decode(data, &doc); err != nil {
			return nil, errors.WrapInvalid(errors.ErrParsingFailed, "feed", "Parse", "decode rss document")
		}
		return normalizeRSS(&doc), nil
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidPayload, "feed", "Parse", "unrecognized root element "+root)
	}
}

// rootElement returns the local name of the document's root element
func rootElement(data []byte) (string, error) {
	d := newDecoder(data)
	for {
		tok, err := d.Token()
		if err != nil {
			return "", err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, nil
		}
	}
}

func decode(data []byte, v any) error {
	return newDecoder(data).Decode(v)
}

func newDecoder(data []byte) *xml.Decoder {
	d := xml.NewDecoder(bytes.NewReader(data))
	// Best-effort pass-through for non-UTF-8 declarations
	d.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	return d
}

func normalizeAtom(doc *atomFeed) *Feed {
	f := &Feed{Title: strings.TrimSpace(doc.Title)}
	for _, e := range doc.Entries {
		published := timestamp.Parse(e.Published)
		if published.IsZero() {
			published = timestamp.Parse(e.Updated)
		}
		f.Entries = append(f.Entries, Entry{
			Title:      strings.TrimSpace(e.Title),
			Link:       entryLink(e.Links),
			Verb:       verbIRI(e.Verb),
			ObjectType: objectTypeIRI(e.ObjectType),
			Published:  published,
		})
	}
	return f
}

func normalizeRSS(doc *rssDoc) *Feed {
	f := &Feed{Title: strings.TrimSpace(doc.Channel.Title)}
	for _, item := range doc.Channel.Items {
		f.Entries = append(f.Entries, Entry{
			Title:      strings.TrimSpace(item.Title),
			Link:       strings.TrimSpace(item.Link),
			Verb:       verbIRI(item.Verb),
			ObjectType: objectTypeIRI(item.ObjectType),
			Published:  timestamp.Parse(item.PubDate),
		})
	}
	return f
}

// verbIRI resolves a declared verb to its schema IRI. Documents declare
// verbs either as full IRIs or as bare schema names.
func verbIRI(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" || strings.Contains(v, "/") {
		return v
	}
	return vocabulary.VerbIRI(v)
}

// objectTypeIRI resolves a declared object type to its schema IRI
func objectTypeIRI(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" || strings.Contains(v, "/") {
		return v
	}
	return vocabulary.ObjectTypeIRI(v)
}

// entryLink picks the canonical URL of an Atom entry: the first
// rel="alternate" link, or the first link with no rel at all.
func entryLink(links []atomLink) string {
	for _, l := range links {
		rel := strings.TrimSpace(l.Rel)
		if rel == "alternate" || rel == "" {
			if href := strings.TrimSpace(l.Href); href != "" {
				return href
			}
		}
	}
	return ""
}
