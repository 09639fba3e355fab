package discovery

import (
	"net/url"
	"strings"
)

// Normalize resolves a candidate URL against a base URL.
//
// A candidate that already carries both a scheme and a host is returned
// unchanged. Otherwise the base URL's scheme://host prefix is joined to the
// candidate with exactly one slash between them. Malformed input, or an
// empty or schemeless base, round-trips the candidate unchanged; Normalize
// never fails.
func Normalize(candidate, base string) string {
	if candidate == "" || base == "" {
		return candidate
	}

	cu, err := url.Parse(candidate)
	if err == nil && cu.Scheme != "" && cu.Host != "" {
		return candidate
	}

	bu, err := url.Parse(base)
	if err != nil || bu.Scheme == "" || bu.Host == "" {
		return candidate
	}

	return bu.Scheme + "://" + bu.Host + "/" + strings.TrimLeft(candidate, "/")
}
