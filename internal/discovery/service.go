package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scholarscout-hq/scholarscout/internal/analysis"
	"github.com/scholarscout-hq/scholarscout/internal/domain"
	"github.com/scholarscout-hq/scholarscout/internal/logger"
	"github.com/scholarscout-hq/scholarscout/pkg/publishers"
	"github.com/scholarscout-hq/scholarscout/pkg/sources"
)

// URLStore is the slice of the storage contract discovery needs.
type URLStore interface {
	KnownURLs() (map[string]struct{}, error)
	MarkURL(url string) error
	SaveScholarship(rec domain.Scholarship) error
}

// EventPublisher forwards newly discovered scholarships downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Options tunes one discovery run.
type Options struct {
	TargetNewCount    int
	MaxPagesPerSource int
	// AnalysisDelay is the pause between analysis calls, long enough to
	// satisfy the collaborator's rate limit.
	AnalysisDelay time.Duration
}

// Result is the outcome of one discovery run.
type Result struct {
	// Items are the new discoveries, truncated to the target count.
	Items []domain.DiscoveredItem
	// Records holds the analyzed subset of Items, when analysis ran.
	Records []domain.Scholarship
	// Stats has one entry per attempted source.
	Stats []domain.SourceStats
	// Errors collects human-readable per-source and per-analysis failures.
	Errors []string
}

// Service is the discovery orchestrator: it iterates enabled sources
// sequentially, enforces the global new-item target, deduplicates, and
// optionally hands results to the analysis collaborator.
type Service struct {
	registry  *sources.Registry
	store     URLStore
	paginator *Paginator
	analyzer  analysis.Analyzer
	fanout    EventPublisher
	log       logger.Logger
}

// NewService wires a discovery service. analyzer and fanout may be nil.
func NewService(reg *sources.Registry, store URLStore, paginator *Paginator,
	analyzer analysis.Analyzer, fanout EventPublisher, log logger.Logger) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Service{
		registry:  reg,
		store:     store,
		paginator: paginator,
		analyzer:  analyzer,
		fanout:    fanout,
		log:       log,
	}
}

// Discover runs one discovery pass over the enabled sources (all of them when
// sourceIDs is empty). It fails hard only when no sources are enabled; every
// other condition resolves to fewer results plus an explanation.
func (s *Service) Discover(ctx context.Context, profile domain.Profile,
	sourceIDs []string, opts Options) (*Result, error) {
	if s == nil || s.registry == nil || s.paginator == nil {
		return nil, fmt.Errorf("discovery service is not initialized")
	}
	if opts.TargetNewCount <= 0 {
		return nil, fmt.Errorf("target new count must be positive")
	}
	if opts.MaxPagesPerSource <= 0 {
		opts.MaxPagesPerSource = 50
	}

	enabled := s.registry.Enabled(sourceIDs...)
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no sources enabled for discovery")
	}

	known, err := s.loadKnownURLs()
	if err != nil {
		return nil, fmt.Errorf("load known urls: %w", err)
	}

	result := &Result{}
	budget := NewBudget(opts.TargetNewCount)
	collected := make(map[string]bool)
	var accumulated []domain.DiscoveredItem

	for _, src := range enabled {
		if budget.Exhausted() {
			s.log.InfoObj("discovery target reached, skipping remaining sources", "budget_meta", map[string]any{
				"found":  budget.Found(),
				"target": budget.Target(),
			})
			break
		}
		if ctx.Err() != nil {
			break
		}

		items, stats := s.paginator.ScrapeSource(ctx, src, opts.MaxPagesPerSource, known, collected, budget)
		accumulated = append(accumulated, items...)
		result.Stats = append(result.Stats, stats)

		if stats.Status == domain.StatusFailed {
			msg := fmt.Sprintf("source %s yielded no candidates", src.ID)
			if stats.Error != "" {
				msg = fmt.Sprintf("source %s failed: %s", src.ID, stats.Error)
			}
			result.Errors = append(result.Errors, msg)
		}

		s.log.InfoObj("source scrape completed", "source_result", stats)
	}

	// Authoritative new-vs-known split. The in-run checks during pagination
	// are an optimization, not the source of truth.
	result.Items = dedupeAgainst(accumulated, known)
	if len(result.Items) > opts.TargetNewCount {
		result.Items = result.Items[:opts.TargetNewCount]
	}

	if s.store != nil {
		for _, item := range result.Items {
			if err := s.store.MarkURL(item.URL); err != nil {
				s.log.WarnObj("mark url failed", "storage_error", map[string]any{
					"url":   item.URL,
					"error": err.Error(),
				})
			}
		}
	}

	// Analysis runs only when the full target was reached.
	if s.analyzer != nil && len(result.Items) >= opts.TargetNewCount {
		s.analyzeBatch(ctx, profile, opts.AnalysisDelay, result)
	}

	s.publish(ctx, result)

	return result, nil
}

// loadKnownURLs pulls the duplicate store once, up front, normalized for
// identity comparison. Read-only for the rest of the run.
func (s *Service) loadKnownURLs() (map[string]struct{}, error) {
	if s.store == nil {
		return map[string]struct{}{}, nil
	}
	raw, err := s.store.KnownURLs()
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(raw))
	for u := range raw {
		known[sources.NormalizeURL(u)] = struct{}{}
	}
	return known, nil
}

// dedupeAgainst removes same-run URL duplicates and anything already in the
// known set.
func dedupeAgainst(items []domain.DiscoveredItem, known map[string]struct{}) []domain.DiscoveredItem {
	seen := make(map[string]bool, len(items))
	out := make([]domain.DiscoveredItem, 0, len(items))
	for _, it := range items {
		key := sources.NormalizeURL(it.URL)
		if seen[key] {
			continue
		}
		if _, dup := known[key]; dup {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}

// analyzeBatch hands each item to the analysis collaborator sequentially,
// pausing between calls. Per-item failures are collected without aborting;
// a quota signal stops the batch since later calls would also fail.
func (s *Service) analyzeBatch(ctx context.Context, profile domain.Profile,
	delay time.Duration, result *Result) {
	for i, item := range result.Items {
		if ctx.Err() != nil {
			return
		}

		rec, err := s.analyzer.Analyze(ctx, item.URL, profile)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("analysis of %s failed: %v", item.URL, err))
			if errors.Is(err, analysis.ErrQuotaExceeded) {
				s.log.WarnObj("analysis quota exhausted, stopping batch", "analyzed_count", i)
				return
			}
			continue
		}

		rec.SourceID = item.SourceID
		if rec.Name == "" {
			rec.Name = item.Name
		}
		rec.DiscoveredAt = time.Now().UTC()
		result.Records = append(result.Records, rec)

		if s.store != nil {
			if err := s.store.SaveScholarship(rec); err != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("persist %s failed: %v", rec.URL, err))
			}
		}

		if delay > 0 && i < len(result.Items)-1 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}

// publish fans discovered items (with their analyzed records when available)
// out to the configured sinks.
func (s *Service) publish(ctx context.Context, result *Result) {
	if s.fanout == nil {
		return
	}

	records := make(map[string]domain.Scholarship, len(result.Records))
	for _, rec := range result.Records {
		records[sources.NormalizeURL(rec.URL)] = rec
	}

	for _, item := range result.Items {
		evt := publishers.NewEvent(item)
		if rec, ok := records[sources.NormalizeURL(item.URL)]; ok {
			evt.Scholarship = &rec
		}
		if _, err := s.fanout.Publish(ctx, evt); err != nil {
			s.log.WarnObj("event publish failed", "publish_error", map[string]any{
				"url":   item.URL,
				"error": err.Error(),
			})
		}
	}
}
