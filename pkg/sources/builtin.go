package sources

import "strings"

// Built-in source IDs.
const (
	IDCollegeScholarships = "collegescholarships"
	IDScholarshipsCom     = "scholarshipscom"
	IDCareerOneStop       = "careeronestop"
	IDBold                = "bold"
)

// BuiltIn returns fresh copies of the built-in source descriptors.
func BuiltIn() []Source {
	return []Source{
		{
			ID:           IDCollegeScholarships,
			Name:         "CollegeScholarships.org",
			BaseURL:      "https://www.collegescholarships.org",
			SearchURL:    "https://www.collegescholarships.org/scholarships/",
			PageTemplate: "https://www.collegescholarships.org/scholarships/page/{page}/",
			BuiltIn:      true,
			Limits:       DefaultLimits(),
			Config:       map[string]any{},
		},
		{
			ID:           IDScholarshipsCom,
			Name:         "Scholarships.com",
			BaseURL:      "https://www.scholarships.com",
			SearchURL:    "https://www.scholarships.com/scholarship-search",
			PageTemplate: "https://www.scholarships.com/scholarship-search?page={page}",
			RequiresJS:   true,
			BuiltIn:      true,
			Limits:       DefaultLimits(),
			Config:       map[string]any{},
		},
		{
			ID:           IDCareerOneStop,
			Name:         "CareerOneStop",
			BaseURL:      "https://www.careeronestop.org",
			SearchURL:    "https://www.careeronestop.org/toolkit/training/find-scholarships.aspx",
			PageTemplate: "https://www.careeronestop.org/toolkit/training/find-scholarships.aspx?curPage={page}",
			BuiltIn:      true,
			Limits:       DefaultLimits(),
			Config:       map[string]any{},
		},
		{
			ID:           IDBold,
			Name:         "Bold.org",
			BaseURL:      "https://bold.org",
			SearchURL:    "https://bold.org/scholarships/",
			PageTemplate: "https://bold.org/scholarships/?page={page}",
			RequiresJS:   true,
			BuiltIn:      true,
			Limits:       DefaultLimits(),
			Config:       map[string]any{},
		},
	}
}

// Config keys recognized in a source's Config map.
const (
	ConfigUserAgentKey      = "user_agent"
	ConfigAcceptKey         = "accept"
	ConfigAcceptLanguageKey = "accept_language"
)

// DefaultUserAgent is the realistic browser identity used by both the plain
// HTTP transport and the scripted browser unless a source overrides it.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// ConfigString returns the trimmed string value for key from the source config or a fallback.
func ConfigString(s Source, key, fallback string) string {
	if s.Config != nil {
		if raw, ok := s.Config[key]; ok {
			if val, ok := raw.(string); ok {
				if trimmed := strings.TrimSpace(val); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return fallback
}

// Headers builds realistic browser request headers for a source, honoring
// config overrides.
func Headers(s Source) map[string]string {
	return map[string]string{
		"User-Agent":      ConfigString(s, ConfigUserAgentKey, DefaultUserAgent),
		"Accept":          ConfigString(s, ConfigAcceptKey, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"),
		"Accept-Language": ConfigString(s, ConfigAcceptLanguageKey, "en-US,en;q=0.9"),
	}
}
