package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/feedbridge/errors"
	"github.com/c360/feedbridge/vocabulary"
)

func TestParse_AtomWithActivityStreams(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"
      xmlns:activity="http://activitystrea.ms/spec/1.0/">
  <title>Status Updates</title>
  <entry>
    <title>Shared a photo</title>
    <link rel="alternate" href="http://example.com/photos/1"/>
    <activity:verb>http://activitystrea.ms/schema/1.0/share</activity:verb>
    <activity:object-type>http://activitystrea.ms/schema/1.0/photo</activity:object-type>
  </entry>
  <entry>
    <title>Plain entry</title>
    <link rel="alternate" href="http://example.com/posts/2"/>
  </entry>
</feed>`

	f, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "Status Updates", f.Title)
	require.Len(t, f.Entries, 2)

	assert.Equal(t, "Shared a photo", f.Entries[0].Title)
	assert.Equal(t, "http://example.com/photos/1", f.Entries[0].Link)
	assert.Equal(t, "http://activitystrea.ms/schema/1.0/share", f.Entries[0].Verb)
	assert.Equal(t, "http://activitystrea.ms/schema/1.0/photo", f.Entries[0].ObjectType)

	// No activity extension on the second entry
	assert.Empty(t, f.Entries[1].Verb)
	assert.Empty(t, f.Entries[1].ObjectType)
}

func TestParse_AtomNonstandardPrefix(t *testing.T) {
	// The prefix name is arbitrary; only the namespace URL matters
	doc := `<feed xmlns="http://www.w3.org/2005/Atom"
      xmlns:as="http://activitystrea.ms/spec/1.0/">
  <title>Prefixed</title>
  <entry>
    <title>Followed someone</title>
    <link href="http://example.com/people/42"/>
    <as:verb>http://activitystrea.ms/schema/1.0/follow</as:verb>
  </entry>
</feed>`

	f, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, f.Entries, 1)
	assert.Equal(t, "http://activitystrea.ms/schema/1.0/follow", f.Entries[0].Verb)
}

func TestParse_AtomLinkSelection(t *testing.T) {
	doc := `<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Links</title>
  <entry>
    <title>Entry</title>
    <link rel="self" href="http://example.com/entries/1.atom"/>
    <link rel="alternate" href="http://example.com/entries/1"/>
    <link rel="edit" href="http://example.com/entries/1/edit"/>
  </entry>
</feed>`

	f, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, f.Entries, 1)
	assert.Equal(t, "http://example.com/entries/1", f.Entries[0].Link)
}

func TestParse_AtomLinkWithoutRel(t *testing.T) {
	doc := `<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <title>Entry</title>
    <link href="http://example.com/entries/9"/>
  </entry>
</feed>`

	f, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, f.Entries, 1)
	assert.Equal(t, "http://example.com/entries/9", f.Entries[0].Link)
}

func TestParse_RSSWithActivityStreams(t *testing.T) {
	doc := `<?xml version="1.0"?>
<rss version="2.0" xmlns:activity="http://activitystrea.ms/spec/1.0/">
  <channel>
    <title>Blog</title>
    <item>
      <title>A bookmark</title>
      <link>http://example.com/bookmarks/7</link>
      <activity:verb>http://activitystrea.ms/schema/1.0/post</activity:verb>
      <activity:object-type>http://activitystrea.ms/schema/1.0/bookmark</activity:object-type>
    </item>
    <item>
      <title>Plain item</title>
      <link>http://example.com/posts/8</link>
    </item>
  </channel>
</rss>`

	f, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "Blog", f.Title)
	require.Len(t, f.Entries, 2)
	assert.Equal(t, "A bookmark", f.Entries[0].Title)
	assert.Equal(t, "http://example.com/bookmarks/7", f.Entries[0].Link)
	assert.Equal(t, "http://activitystrea.ms/schema/1.0/bookmark", f.Entries[0].ObjectType)
	assert.Empty(t, f.Entries[1].Verb)
}

func TestParse_BareSchemaNamesResolved(t *testing.T) {
	doc := `<feed xmlns="http://www.w3.org/2005/Atom"
      xmlns:activity="http://activitystrea.ms/spec/1.0/">
  <title>Short names</title>
  <entry>
    <title>Shared a photo</title>
    <link rel="alternate" href="http://example.com/photos/1"/>
    <activity:verb>share</activity:verb>
    <activity:object-type>photo</activity:object-type>
  </entry>
</feed>`

	f, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, f.Entries, 1)
	assert.Equal(t, vocabulary.VerbShare, f.Entries[0].Verb)
	assert.Equal(t, vocabulary.ObjectTypePhoto, f.Entries[0].ObjectType)
}

func TestParse_EntriesWithMissingFieldsAreKept(t *testing.T) {
	// Parsing keeps partial entries; the processor decides what to skip
	doc := `<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <link rel="alternate" href="http://example.com/untitled"/>
  </entry>
  <entry>
    <title>No link here</title>
  </entry>
</feed>`

	f, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, f.Entries, 2)
	assert.Empty(t, f.Entries[0].Title)
	assert.Equal(t, "http://example.com/untitled", f.Entries[0].Link)
	assert.Empty(t, f.Entries[1].Link)
}

func TestParse_NonUTF8Declaration(t *testing.T) {
	doc := `<?xml version="1.0" encoding="ISO-8859-1"?>
<rss version="2.0">
  <channel>
    <title>Legacy</title>
    <item>
      <title>Old item</title>
      <link>http://example.com/old</link>
    </item>
  </channel>
</rss>`

	f, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "Legacy", f.Title)
}

func TestParse_PublishedDates(t *testing.T) {
	atom := `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Dated</title>
  <entry>
    <title>With published</title>
    <link href="http://example.com/1"/>
    <published>2023-01-15T12:30:45Z</published>
  </entry>
  <entry>
    <title>Updated only</title>
    <link href="http://example.com/2"/>
    <updated>2023-02-01T00:00:00Z</updated>
  </entry>
  <entry>
    <title>Undated</title>
    <link href="http://example.com/3"/>
  </entry>
</feed>`

	f, err := Parse([]byte(atom))
	require.NoError(t, err)
	require.Len(t, f.Entries, 3)
	assert.Equal(t, time.Date(2023, 1, 15, 12, 30, 45, 0, time.UTC), f.Entries[0].Published)
	assert.Equal(t, time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), f.Entries[1].Published)
	assert.True(t, f.Entries[2].Published.IsZero())

	rss := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Dated</title>
    <item>
      <title>Item</title>
      <link>http://example.com/4</link>
      <pubDate>Sun, 15 Jan 2023 12:30:45 +0000</pubDate>
    </item>
  </channel>
</rss>`

	f, err = Parse([]byte(rss))
	require.NoError(t, err)
	require.Len(t, f.Entries, 1)
	assert.Equal(t, time.Date(2023, 1, 15, 12, 30, 45, 0, time.UTC), f.Entries[0].Published)
}

func TestParse_UnrecognizedRoot(t *testing.T) {
	_, err := Parse([]byte(`<html><body>not a feed</body></html>`))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidPayload)
}

func TestParse_MalformedXML(t *testing.T) {
	cases := []string{
		"",
		"not xml at all",
		"<feed><entry><title>unclosed",
	}
	for _, c := range cases {
		_, err := Parse([]byte(c))
		assert.Error(t, err, "input %q", c)
		assert.True(t, errors.IsInvalid(err), "input %q", c)
	}
}
