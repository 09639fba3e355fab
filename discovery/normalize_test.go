package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		base      string
		expected  string
	}{
		{
			name:      "root-relative path",
			candidate: "/feed.rss",
			base:      "http://example.com",
			expected:  "http://example.com/feed.rss",
		},
		{
			name:      "root-relative path with trailing slash on base",
			candidate: "/feed.rss",
			base:      "http://example.com/",
			expected:  "http://example.com/feed.rss",
		},
		{
			name:      "bare relative path",
			candidate: "feed.rss",
			base:      "http://example.com/",
			expected:  "http://example.com/feed.rss",
		},
		{
			name:      "already absolute",
			candidate: "http://other.com/a",
			base:      "http://example.com",
			expected:  "http://other.com/a",
		},
		{
			name:      "https absolute unchanged",
			candidate: "https://secure.example.com/feed.atom",
			base:      "http://example.com",
			expected:  "https://secure.example.com/feed.atom",
		},
		{
			name:      "empty base round-trips",
			candidate: "/feed.rss",
			base:      "",
			expected:  "/feed.rss",
		},
		{
			name:      "empty candidate round-trips",
			candidate: "",
			base:      "http://example.com",
			expected:  "",
		},
		{
			name:      "malformed base round-trips",
			candidate: "/feed.rss",
			base:      "not a url",
			expected:  "/feed.rss",
		},
		{
			name:      "malformed candidate joined best effort",
			candidate: "::bogus::",
			base:      "http://example.com",
			expected:  "http://example.com/::bogus::",
		},
		{
			name:      "deep base path ignored",
			candidate: "/feed.rss",
			base:      "http://example.com/blog/2024/post",
			expected:  "http://example.com/feed.rss",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Normalize(test.candidate, test.base))
		})
	}
}

// Normalizing an already-normalized URL is a no-op.
func TestNormalize_Idempotent(t *testing.T) {
	inputs := []struct{ candidate, base string }{
		{"/feed.rss", "http://example.com"},
		{"feed.atom", "https://example.com/"},
		{"http://other.com/a", "http://example.com"},
	}

	for _, in := range inputs {
		once := Normalize(in.candidate, in.base)
		twice := Normalize(once, in.base)
		assert.Equal(t, once, twice, "normalize(%q, %q)", in.candidate, in.base)
	}
}
