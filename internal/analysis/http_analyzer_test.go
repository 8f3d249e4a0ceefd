package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/scholarscout-hq/scholarscout/internal/domain"
)

func TestHTTPAnalyzerMapsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.URL == "" || req.Profile.Summary == "" {
			t.Fatalf("request missing fields: %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(analyzeResponse{
			Name:              "Jane Doe Memorial Award",
			Deadline:          "2026-12-01",
			AwardAmount:       "$5,000",
			EligibilityStatus: "eligible",
			FitScore:          82,
			AnalysisText:      "strong match",
		})
	}))
	defer srv.Close()

	analyzer, err := NewHTTPAnalyzer(srv.URL, "key", 5*time.Second)
	if err != nil {
		t.Fatalf("NewHTTPAnalyzer: %v", err)
	}

	rec, err := analyzer.Analyze(context.Background(),
		"https://site.org/scholarships/jane-doe-memorial-award",
		domain.Profile{Summary: "nursing undergrad"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rec.FitScore != 82 || rec.Name != "Jane Doe Memorial Award" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.URL != "https://site.org/scholarships/jane-doe-memorial-award" {
		t.Fatalf("record URL = %q", rec.URL)
	}
	if rec.AnalyzedAt.IsZero() {
		t.Fatalf("AnalyzedAt not set")
	}
}

func TestHTTPAnalyzerSignalsQuotaExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	analyzer, err := NewHTTPAnalyzer(srv.URL, "", time.Second)
	if err != nil {
		t.Fatalf("NewHTTPAnalyzer: %v", err)
	}

	_, err = analyzer.Analyze(context.Background(), "https://site.org/x-award", domain.Profile{})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestHTTPAnalyzerQuotaMessageInBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(analyzeResponse{Error: "daily quota exhausted"})
	}))
	defer srv.Close()

	analyzer, _ := NewHTTPAnalyzer(srv.URL, "", time.Second)
	_, err := analyzer.Analyze(context.Background(), "https://site.org/x-award", domain.Profile{})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestHTTPAnalyzerRejectsOutOfRangeScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(analyzeResponse{Name: "X Award Fund", FitScore: 140})
	}))
	defer srv.Close()

	analyzer, _ := NewHTTPAnalyzer(srv.URL, "", time.Second)
	if _, err := analyzer.Analyze(context.Background(), "https://site.org/x-award", domain.Profile{}); err == nil {
		t.Fatalf("expected error for fit score out of range")
	}
}
