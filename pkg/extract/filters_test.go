package extract

import (
	"strings"
	"testing"
)

func TestIsValidScholarshipURLScenarios(t *testing.T) {
	cases := []struct {
		url  string
		name string
		want bool
	}{
		{"https://site.org/scholarships/category/nursing/", "Nursing Scholarships", false},
		{"https://site.org/scholarships/jane-doe-memorial-award/", "Jane Doe Memorial Award", true},
		{"https://site.org/faq/how-to-apply/", "How Do I Apply?", false},
		{"https://site.org/scholarships/by-state/ohio/", "Ohio Scholarships", false},
		{"https://site.org/scholarships/tag/stem/", "STEM Awards List", false},
		{"https://site.org/blog/best-scholarships-2026/", "Best Scholarships of 2026", false},
		{"https://site.org/scholarships/stem-leaders-grant", "STEM Leaders Grant", true},
		{"https://site.org/login", "Member Login Portal", false},
		{"https://site.org/scholarships/acme-award?utm_source=nl", "ACME Award", false},
		{"tel:18005551234", "1-800-555-1234", false},
	}

	for _, tc := range cases {
		if got := IsValidScholarshipURL(tc.url, tc.name); got != tc.want {
			t.Errorf("IsValidScholarshipURL(%q, %q) = %v, want %v", tc.url, tc.name, got, tc.want)
		}
	}
}

func TestIsValidScholarshipURLIsIdempotent(t *testing.T) {
	url := "https://site.org/scholarships/jane-doe-memorial-award/"
	name := "Jane Doe Memorial Award"
	first := IsValidScholarshipURL(url, name)
	for i := 0; i < 10; i++ {
		if IsValidScholarshipURL(url, name) != first {
			t.Fatalf("filter result changed between calls")
		}
	}
}

func TestNameLengthBounds(t *testing.T) {
	url := "https://site.org/scholarships/x-award"

	if IsValidScholarshipURL(url, "Ok") {
		t.Fatalf("accepted a name below the minimum length")
	}
	long := strings.Repeat("very long sentence fragment ", 10)
	if IsValidScholarshipURL(url, long) {
		t.Fatalf("accepted a name above the maximum length")
	}
	if !IsValidScholarshipURL(url, "Heartland Nurses Grant") {
		t.Fatalf("rejected an ordinary name")
	}
}

func TestUtilityPagesMatchWholePathSegments(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://site.org/about", false},
		{"https://site.org/about/", false},
		{"https://site.org/about-us", false},
		{"https://site.org/contact.aspx", false},
		{"https://site.org/terms?lang=en", false},
		{"https://site.org/account/settings", false},
		// listing slugs that merely contain a utility word
		{"https://site.org/scholarships/about-face-award/", true},
		{"https://site.org/scholarships/contact-lens-society-grant", true},
		{"https://site.org/scholarships/midterms-stress-relief-award", true},
	}

	for _, tc := range cases {
		if got := IsValidScholarshipURL(tc.url, "Jane Doe Memorial Award"); got != tc.want {
			t.Errorf("IsValidScholarshipURL(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestNameFilterRejectsArticlePhrasing(t *testing.T) {
	url := "https://site.org/scholarships/entry"

	rejected := []string{
		"How to Win More Scholarship Money",
		"What Are Merit Scholarships?",
		"Scholarship Tips for Freshmen",
		"Top 10 Easy Scholarships",
		"Frequently Asked Questions",
		"Privacy Policy",
		"(555) 123-4567",
	}
	for _, name := range rejected {
		if IsValidScholarshipURL(url, name) {
			t.Errorf("name %q should be rejected", name)
		}
	}
}
