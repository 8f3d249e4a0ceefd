package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/scholarscout-hq/scholarscout/internal/domain"
	"github.com/scholarscout-hq/scholarscout/pkg/sources"
)

const (
	// Below this many narrow-selector matches the broad fallback runs too.
	narrowMinMatches = 3
	maxNameDisplay   = 100
)

// strategy is a hand-tuned selector set for one built-in source.
type strategy struct {
	// containers is the narrow content-container selector tried first.
	containers string
	// broad is the fallback anchor selector matching listing-path links.
	broad string
}

var strategies = map[string]strategy{
	sources.IDCollegeScholarships: {
		containers: ".scholarship-item, .scholarship-box, article.scholarship",
		broad:      `a[href*="/scholarships/"]`,
	},
	sources.IDScholarshipsCom: {
		containers: ".scholarship-list li, .award-row, .directory-listing li",
		broad:      `a[href*="/financial-aid/college-scholarships/"]`,
	},
	sources.IDCareerOneStop: {
		containers: "#scholarshipList tr, .cos-search-results .result-item",
		broad:      `a[href*="scholarship-details"]`,
	},
	sources.IDBold: {
		containers: `[class*="scholarship-card"], [class*="ScholarshipCard"]`,
		broad:      `a[href^="/scholarships/"], a[href*="bold.org/scholarships/"]`,
	},
}

// Extract pulls scholarship listing candidates out of a fetched page. Built-in
// sources use their tuned selector strategy; custom sources get the generic
// every-anchor pass. Candidates failing the validity filters are silently
// dropped, and the result is deduplicated by URL within the page.
func Extract(html string, src sources.Source, pageURL string) []domain.DiscoveredItem {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	strat, tuned := strategies[src.ID]
	if !tuned || !src.BuiltIn {
		return collect(doc.Find("a[href]"), src, pageURL)
	}

	items := collect(doc.Find(strat.containers).Find("a[href]"), src, pageURL)
	if len(items) < narrowMinMatches {
		items = mergeByURL(items, collect(doc.Find(strat.broad), src, pageURL))
	}
	return items
}

// collect walks a goquery anchor selection applying resolution, name
// derivation, validity filters, and in-page dedup.
func collect(anchors *goquery.Selection, src sources.Source, pageURL string) []domain.DiscoveredItem {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	host := hostOf(src.BaseURL)

	seen := make(map[string]bool)
	var items []domain.DiscoveredItem

	anchors.Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		abs := resolveURL(base, href)
		if abs == "" || hostOf(abs) != host {
			return
		}

		// Validity runs on the full collapsed name so over-long body text is
		// rejected rather than truncated into a plausible-looking item.
		name := deriveName(a, abs)
		if !IsValidScholarshipURL(abs, name) {
			return
		}
		name = cleanName(name)

		key := sources.NormalizeURL(abs)
		if seen[key] {
			return
		}
		seen[key] = true

		items = append(items, domain.DiscoveredItem{
			URL:      abs,
			Name:     name,
			SourceID: src.ID,
		})
	})

	return items
}

// deriveName picks a candidate name: link text, then a heading near the
// anchor, then a title-cased slug from the URL path. The result is collapsed
// but not capped; capping happens after validation.
func deriveName(a *goquery.Selection, absURL string) string {
	if name := collapseName(a.Text()); name != "" {
		return name
	}
	if h := a.Find("h1, h2, h3, h4").First(); h.Length() > 0 {
		if name := collapseName(h.Text()); name != "" {
			return name
		}
	}
	if h := a.Closest("li, article, div").Find("h1, h2, h3, h4").First(); h.Length() > 0 {
		if name := collapseName(h.Text()); name != "" {
			return name
		}
	}
	return nameFromSlug(absURL)
}

// collapseName collapses runs of whitespace without touching the length.
func collapseName(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// cleanName collapses whitespace and caps the display length.
func cleanName(raw string) string {
	name := collapseName(raw)
	if len(name) > maxNameDisplay {
		cut := name[:maxNameDisplay]
		if i := strings.LastIndex(cut, " "); i > 0 {
			cut = cut[:i]
		}
		name = cut
	}
	return strings.TrimSpace(name)
}

// nameFromSlug turns the last URL path segment into a title-cased name.
func nameFromSlug(absURL string) string {
	u, err := url.Parse(absURL)
	if err != nil {
		return ""
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) == 0 {
		return ""
	}
	slug := segs[len(segs)-1]
	slug = strings.TrimSuffix(slug, ".html")
	slug = strings.TrimSuffix(slug, ".aspx")

	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return collapseName(strings.Join(words, " "))
}

func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	abs.Fragment = ""
	return abs.String()
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

// mergeByURL appends items from extra that are not already present in items.
func mergeByURL(items, extra []domain.DiscoveredItem) []domain.DiscoveredItem {
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		seen[sources.NormalizeURL(it.URL)] = true
	}
	for _, it := range extra {
		key := sources.NormalizeURL(it.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, it)
	}
	return items
}
