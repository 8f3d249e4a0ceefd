package domain

import "time"

// Domain contains core models shared across discovery, analysis, and storage.

// DiscoveredItem is a scholarship listing candidate extracted from a source
// page. Items are compared by normalized URL; Name is display-cleaned and
// capped at 100 characters at extraction time.
type DiscoveredItem struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	SourceID string `json:"source_id"`
}

// PageResult is the outcome of fetching a single listing page. FinalURL is
// the post-redirect location and may differ from the requested URL.
type PageResult struct {
	HTML     string
	FinalURL string
}

// Source status values reported per discovery run.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// SourceStats accumulates per-source counters during one discovery run.
// Finalized when the source's pagination loop ends.
type SourceStats struct {
	SourceID   string `json:"source_id"`
	Found      int    `json:"found"`
	New        int    `json:"new"`
	Duplicates int    `json:"duplicates"`
	Pages      int    `json:"pages"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// Classify derives the source status from the accumulated counters.
func (s *SourceStats) Classify() {
	switch {
	case s.Found == 0:
		s.Status = StatusFailed
	case s.New == 0:
		s.Status = StatusPartial
	default:
		s.Status = StatusSuccess
	}
}

// Profile is the applicant profile handed through to the analysis service.
// Discovery treats it as opaque.
type Profile struct {
	Summary        string   `json:"summary"`
	FieldOfStudy   string   `json:"field_of_study,omitempty"`
	EducationLevel string   `json:"education_level,omitempty"`
	Interests      []string `json:"interests,omitempty"`
}

// Scholarship is the analyzed record persisted per discovered listing,
// keyed by URL with upsert semantics.
type Scholarship struct {
	URL                 string    `json:"url"`
	Name                string    `json:"name"`
	SourceID            string    `json:"source_id"`
	Deadline            string    `json:"deadline,omitempty"`
	AwardAmount         string    `json:"award_amount,omitempty"`
	Requirements        []string  `json:"requirements,omitempty"`
	EligibilityStatus   string    `json:"eligibility_status,omitempty"`
	FitScore            int       `json:"fit_score"`
	AnalysisText        string    `json:"analysis_text,omitempty"`
	ClarifyingQuestions []string  `json:"clarifying_questions,omitempty"`
	EssayPrompt         string    `json:"essay_prompt,omitempty"`
	AIPolicy            string    `json:"ai_policy,omitempty"`
	DiscoveredAt        time.Time `json:"discovered_at"`
	AnalyzedAt          time.Time `json:"analyzed_at,omitempty"`
}
