package extract

import (
	"regexp"
	"strings"
)

// Validity filters are the primary defense against polluting results with
// category pages, FAQ articles, and utility links. All predicates are pure.

const (
	minNameLen = 5
	maxNameLen = 150
)

// urlExcludePatterns match path/query shapes that are never individual
// scholarship listings.
var urlExcludePatterns = []string{
	// category/taxonomy pages
	"/by-", "/category/", "/categories/", "/tag/", "/tags/", "/type/", "/state/",
	// pagination markers
	"/page/", "?page=", "&page=", "curpage=",
	// content/article sections
	"/blog/", "/faq/", "/faqs/", "/guide/", "/guides/", "/how-to/", "/article/", "/news/",
	// tracking links
	"utm_source=", "utm_medium=", "utm_campaign=",
}

// utilityPath matches account/boilerplate pages as whole path segments, so a
// listing slug that merely contains one of the words still passes.
var utilityPath = regexp.MustCompile(
	`/(login|signin|signup|register|account|about(-us)?|contact(-us)?|terms|privacy|sitemap)([/.?#]|$)`)

var (
	// interrogative or how-to phrasing is article content, not a listing
	interrogativeName = regexp.MustCompile(`(?i)^(how|what|when|where|why|who|which|can|do|does|is|are|should|will)\b`)
	questionName      = regexp.MustCompile(`\?\s*$`)
	// generic roundup/tips phrasing
	genericName = regexp.MustCompile(`(?i)\b(best scholarships?|top \d+|scholarship (tips|guide|search|basics)|how to (apply|win|find)|financial aid 101)\b`)
	// boilerplate page names
	boilerplateName = regexp.MustCompile(`(?i)^(faq|frequently asked|terms of (use|service)|privacy policy|about us|contact us|log ?in|sign ?up)\b`)
	// phone-number shaped strings
	phoneShaped = regexp.MustCompile(`^[\d\s\-().+]{7,}$`)
)

// IsValidScholarshipURL reports whether a URL/name pair looks like an
// individual scholarship listing. Both the URL and the name filters must
// pass. Pure function: repeated calls always agree.
func IsValidScholarshipURL(rawURL, name string) bool {
	return isValidURL(rawURL) && isValidName(name)
}

func isValidURL(rawURL string) bool {
	u := strings.ToLower(strings.TrimSpace(rawURL))
	if u == "" {
		return false
	}
	if strings.HasPrefix(u, "tel:") || strings.HasPrefix(u, "mailto:") || strings.HasPrefix(u, "javascript:") {
		return false
	}
	for _, pat := range urlExcludePatterns {
		if strings.Contains(u, pat) {
			return false
		}
	}
	return !utilityPath.MatchString(u)
}

func isValidName(name string) bool {
	name = strings.TrimSpace(name)
	if len(name) < minNameLen || len(name) > maxNameLen {
		return false
	}
	if phoneShaped.MatchString(name) {
		return false
	}
	if questionName.MatchString(name) && interrogativeName.MatchString(name) {
		return false
	}
	if interrogativeName.MatchString(name) && strings.Contains(strings.ToLower(name), " to ") {
		return false
	}
	if genericName.MatchString(name) {
		return false
	}
	if boilerplateName.MatchString(name) {
		return false
	}
	return true
}
