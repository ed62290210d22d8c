// Package idmdiff compares desired CRD spec fields against observed
// Kanidm entries using the equality rules the IDM server itself applies
// (case-insensitive names, URL-normalization-tolerant origins), so the
// operator doesn't issue a no-op update every reconcile over formatting
// differences the server doesn't care about.
package idmdiff

import (
	"net/url"
	"strings"
)

// EqualName reports whether two SPNs or bare group/account names refer to
// the same entry. Kanidm names are case-insensitive.
func EqualName(a, b string) bool {
	return strings.EqualFold(a, b)
}

// EqualNameSet reports whether two name lists denote the same set of
// entries, ignoring order and case.
func EqualNameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	normalized := func(names []string) map[string]struct{} {
		out := make(map[string]struct{}, len(names))
		for _, n := range names {
			out[strings.ToLower(n)] = struct{}{}
		}
		return out
	}
	na, nb := normalized(a), normalized(b)
	if len(na) != len(nb) {
		return false
	}
	for k := range na {
		if _, ok := nb[k]; !ok {
			return false
		}
	}
	return true
}

// NormalizeURL lowercases scheme and host, strips a trailing slash from
// an otherwise-root path, and leaves the rest of the URL untouched. It
// returns the original string if parsing fails, so callers can fall back
// to a literal comparison.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "/" {
		u.Path = ""
	}
	return u.String()
}

// EqualURL reports whether two URLs are equivalent under NormalizeURL.
func EqualURL(a, b string) bool {
	return NormalizeURL(a) == NormalizeURL(b)
}
