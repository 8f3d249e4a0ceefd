package sources

import (
	"net/url"
	"strconv"
	"strings"
)

// IsRedirected reports whether a deep-page request silently bounced back to
// the source's first page. Sites commonly serve page 1 for out-of-range page
// numbers instead of a 404; the paginator treats that as end-of-results.
// Only meaningful for page > 1.
func (s Source) IsRedirected(requested, final string, page int) bool {
	if page <= 1 {
		return false
	}
	final = strings.TrimSpace(final)
	if final == "" || equalURLs(final, requested) {
		return false
	}

	// Landed exactly on the canonical first-page form.
	if equalURLs(final, s.PageURL(1)) || equalURLs(final, s.SearchURL) {
		return true
	}

	// The site rewrote the URL and dropped the page marker: the requested URL
	// carried the page number, the final one no longer does.
	marker := strconv.Itoa(page)
	return strings.Contains(requested, marker) && !strings.Contains(final, marker)
}

// equalURLs compares two URLs ignoring scheme case, trailing slashes, and
// empty queries/fragments.
func equalURLs(a, b string) bool {
	return normalizeURL(a) == normalizeURL(b)
}

func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimRight(raw, "/")
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	u.Scheme = strings.ToLower(u.Scheme)
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}

// NormalizeURL exposes the canonical URL form used for identity comparison
// across the discovery run (dedup keys, known-URL lookups).
func NormalizeURL(raw string) string { return normalizeURL(raw) }
