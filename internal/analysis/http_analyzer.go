package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/scholarscout-hq/scholarscout/internal/domain"
	"github.com/scholarscout-hq/scholarscout/pkg/httpclient"
)

// HTTPAnalyzer calls an LLM-gateway endpoint that performs the actual
// eligibility/fit analysis. Blocking responses (403/429) are never retried
// here; a quota signal is surfaced as ErrQuotaExceeded.
type HTTPAnalyzer struct {
	client   *resty.Client
	endpoint string
	apiKey   string
}

// NewHTTPAnalyzer builds an analyzer against the given endpoint.
func NewHTTPAnalyzer(endpoint, apiKey string, timeout time.Duration) (*HTTPAnalyzer, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("analysis endpoint is empty")
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &HTTPAnalyzer{
		client:   httpclient.NewRestyHTTPClient(timeout),
		endpoint: endpoint,
		apiKey:   apiKey,
	}, nil
}

type analyzeRequest struct {
	URL     string         `json:"url"`
	Profile domain.Profile `json:"profile"`
}

type analyzeResponse struct {
	Name                string   `json:"name"`
	Deadline            string   `json:"deadline"`
	AwardAmount         string   `json:"award_amount"`
	Requirements        []string `json:"requirements"`
	EligibilityStatus   string   `json:"eligibility_status"`
	FitScore            int      `json:"fit_score"`
	AnalysisText        string   `json:"analysis_text"`
	ClarifyingQuestions []string `json:"clarifying_questions"`
	EssayPrompt         string   `json:"essay_prompt"`
	AIPolicy            string   `json:"ai_policy"`
	Error               string   `json:"error,omitempty"`
}

// Analyze submits the URL and profile and maps the response onto a record.
func (a *HTTPAnalyzer) Analyze(ctx context.Context, url string, profile domain.Profile) (domain.Scholarship, error) {
	var parsed analyzeResponse

	req := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(analyzeRequest{URL: url, Profile: profile}).
		SetResult(&parsed)
	if a.apiKey != "" {
		req.SetHeader("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := req.Post(a.endpoint)
	if err != nil {
		return domain.Scholarship{}, fmt.Errorf("analysis request: %w", err)
	}

	if resp.StatusCode() == 429 || isQuotaMessage(parsed.Error) {
		return domain.Scholarship{}, ErrQuotaExceeded
	}
	if resp.IsError() {
		return domain.Scholarship{}, fmt.Errorf("analysis response status %d: %s",
			resp.StatusCode(), bodySnippet(resp.Body()))
	}
	if parsed.Error != "" {
		return domain.Scholarship{}, fmt.Errorf("analysis failed: %s", parsed.Error)
	}
	if parsed.FitScore < 0 || parsed.FitScore > 100 {
		return domain.Scholarship{}, fmt.Errorf("analysis returned fit score %d out of range", parsed.FitScore)
	}

	return domain.Scholarship{
		URL:                 url,
		Name:                parsed.Name,
		Deadline:            parsed.Deadline,
		AwardAmount:         parsed.AwardAmount,
		Requirements:        parsed.Requirements,
		EligibilityStatus:   parsed.EligibilityStatus,
		FitScore:            parsed.FitScore,
		AnalysisText:        parsed.AnalysisText,
		ClarifyingQuestions: parsed.ClarifyingQuestions,
		EssayPrompt:         parsed.EssayPrompt,
		AIPolicy:            parsed.AIPolicy,
		AnalyzedAt:          time.Now().UTC(),
	}, nil
}

func isQuotaMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit")
}

func bodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 512 {
		return s[:512] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
