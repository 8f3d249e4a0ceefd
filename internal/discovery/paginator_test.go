package discovery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/scholarscout-hq/scholarscout/internal/domain"
	"github.com/scholarscout-hq/scholarscout/pkg/sources"
)

// scriptedPage describes the outcome of fetching one page in order.
type scriptedPage struct {
	items    []domain.DiscoveredItem
	finalURL string // overrides the post-redirect URL; empty means no redirect
	err      error
}

type scriptedTransport struct {
	pages     map[int]scriptedPage
	requested []string
	calls     int
}

func (f *scriptedTransport) FetchPage(_ context.Context, _ sources.Source, pageURL string) (domain.PageResult, error) {
	f.calls++
	f.requested = append(f.requested, pageURL)
	sc := f.pages[f.calls]
	if sc.err != nil {
		return domain.PageResult{}, sc.err
	}
	final := sc.finalURL
	if final == "" {
		final = pageURL
	}
	// The page number is smuggled through the HTML so the extract stub can
	// look up its script entry.
	return domain.PageResult{HTML: strconv.Itoa(f.calls), FinalURL: final}, nil
}

func newTestPaginator(tr *scriptedTransport) *Paginator {
	p := NewPaginator(tr, nil)
	p.extract = func(html string, _ sources.Source, _ string) []domain.DiscoveredItem {
		page, _ := strconv.Atoi(html)
		return tr.pages[page].items
	}
	p.sleep = func(context.Context, time.Duration, time.Duration) error { return nil }
	return p
}

func testSource(limits sources.Limits) sources.Source {
	return sources.Source{
		ID:           "grantsexample",
		Name:         "Grants Example",
		BaseURL:      "https://grants.example.org",
		SearchURL:    "https://grants.example.org/scholarships",
		PageTemplate: "https://grants.example.org/scholarships?page={page}",
		Limits:       limits,
	}
}

func award(n int) domain.DiscoveredItem {
	return domain.DiscoveredItem{
		URL:      fmt.Sprintf("https://grants.example.org/award/%d", n),
		Name:     fmt.Sprintf("Example Scholarship %d", n),
		SourceID: "grantsexample",
	}
}

func TestScrapeSourceStopsAfterEmptyPageLimit(t *testing.T) {
	tr := &scriptedTransport{pages: map[int]scriptedPage{}} // every page empty
	p := newTestPaginator(tr)
	src := testSource(sources.Limits{EmptyPageLimit: 3, DuplicateStreakLimit: 20, MinPagesBeforeStop: 15})

	items, stats := p.ScrapeSource(context.Background(), src, 10,
		map[string]struct{}{}, map[string]bool{}, NewBudget(20))

	if len(tr.requested) != 3 {
		t.Fatalf("requested %d pages, want 3: %v", len(tr.requested), tr.requested)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
	if stats.Status != domain.StatusFailed {
		t.Fatalf("status = %s, want failed", stats.Status)
	}
}

func TestScrapeSourceFetchFailureCountsAsEmptyPage(t *testing.T) {
	tr := &scriptedTransport{pages: map[int]scriptedPage{
		1: {err: errors.New("connection refused")},
		2: {err: errors.New("connection refused")},
		3: {err: errors.New("connection refused")},
	}}
	p := newTestPaginator(tr)
	src := testSource(sources.Limits{EmptyPageLimit: 3, DuplicateStreakLimit: 20, MinPagesBeforeStop: 15})

	_, stats := p.ScrapeSource(context.Background(), src, 10,
		map[string]struct{}{}, map[string]bool{}, NewBudget(20))

	if len(tr.requested) != 3 {
		t.Fatalf("requested %d pages, want 3", len(tr.requested))
	}
	if stats.Status != domain.StatusFailed {
		t.Fatalf("status = %s, want failed", stats.Status)
	}
	if stats.Error == "" {
		t.Fatalf("expected last fetch error carried into stats")
	}
}

func TestScrapeSourceDuplicateStreakHonorsPageFloor(t *testing.T) {
	known := map[string]struct{}{
		sources.NormalizeURL(award(99).URL): {},
	}
	pages := map[int]scriptedPage{1: {items: []domain.DiscoveredItem{award(1)}}}
	for page := 2; page <= 12; page++ {
		pages[page] = scriptedPage{items: []domain.DiscoveredItem{award(99)}}
	}
	tr := &scriptedTransport{pages: pages}
	p := newTestPaginator(tr)
	src := testSource(sources.Limits{EmptyPageLimit: 3, DuplicateStreakLimit: 5, MinPagesBeforeStop: 8})

	items, stats := p.ScrapeSource(context.Background(), src, 12,
		known, map[string]bool{}, NewBudget(20))

	// The streak limit is hit on page 6 but the floor keeps the source
	// alive until page 8.
	if len(tr.requested) != 8 {
		t.Fatalf("requested %d pages, want 8: %v", len(tr.requested), tr.requested)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 new item, got %d", len(items))
	}
	if stats.New != 1 || stats.Duplicates != 7 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.Status != domain.StatusSuccess {
		t.Fatalf("status = %s, want success", stats.Status)
	}
}

func TestScrapeSourceNewItemResetsStreaks(t *testing.T) {
	known := map[string]struct{}{
		sources.NormalizeURL(award(99).URL): {},
	}
	tr := &scriptedTransport{pages: map[int]scriptedPage{
		1: {items: []domain.DiscoveredItem{award(99)}},
		2: {items: []domain.DiscoveredItem{award(1)}},
		3: {items: []domain.DiscoveredItem{award(99)}},
		4: {items: []domain.DiscoveredItem{award(99)}},
	}}
	p := newTestPaginator(tr)
	src := testSource(sources.Limits{EmptyPageLimit: 2, DuplicateStreakLimit: 2, MinPagesBeforeStop: 1})

	items, _ := p.ScrapeSource(context.Background(), src, 10,
		known, map[string]bool{}, NewBudget(20))

	// Page 2's new item resets the duplicate streak, so the limit of 2 is
	// only reached again after pages 3 and 4.
	if len(tr.requested) != 4 {
		t.Fatalf("requested %d pages, want 4: %v", len(tr.requested), tr.requested)
	}
	if len(items) != 1 || items[0].URL != award(1).URL {
		t.Fatalf("items = %+v", items)
	}
}

func TestScrapeSourceRedirectToFirstPageEndsListing(t *testing.T) {
	src := testSource(sources.Limits{EmptyPageLimit: 3, DuplicateStreakLimit: 20, MinPagesBeforeStop: 15})
	tr := &scriptedTransport{pages: map[int]scriptedPage{
		1: {items: []domain.DiscoveredItem{award(1)}},
		2: {items: []domain.DiscoveredItem{award(2)}},
		3: {items: []domain.DiscoveredItem{award(3)}},
		4: {items: []domain.DiscoveredItem{award(4)}},
		5: {finalURL: src.SearchURL}, // silently bounced back to page 1
	}}
	p := newTestPaginator(tr)

	items, stats := p.ScrapeSource(context.Background(), src, 10,
		map[string]struct{}{}, map[string]bool{}, NewBudget(20))

	if len(tr.requested) != 5 {
		t.Fatalf("requested %d pages, want 5: %v", len(tr.requested), tr.requested)
	}
	if len(items) != 4 {
		t.Fatalf("expected items from pages before the redirect, got %d", len(items))
	}
	if stats.Pages != 5 {
		t.Fatalf("stats.Pages = %d, want 5", stats.Pages)
	}
}

func TestScrapeSourceStopsWhenBudgetExhausted(t *testing.T) {
	tr := &scriptedTransport{pages: map[int]scriptedPage{
		1: {items: []domain.DiscoveredItem{award(1), award(2), award(3)}},
		2: {items: []domain.DiscoveredItem{award(4)}},
	}}
	p := newTestPaginator(tr)
	src := testSource(sources.DefaultLimits())

	items, _ := p.ScrapeSource(context.Background(), src, 10,
		map[string]struct{}{}, map[string]bool{}, NewBudget(3))

	if len(tr.requested) != 1 {
		t.Fatalf("requested %d pages after budget filled, want 1", len(tr.requested))
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
}

func TestScrapeSourceSkipsItemsCollectedByEarlierSources(t *testing.T) {
	tr := &scriptedTransport{pages: map[int]scriptedPage{
		1: {items: []domain.DiscoveredItem{award(1), award(2)}},
	}}
	p := newTestPaginator(tr)
	src := testSource(sources.DefaultLimits())

	collected := map[string]bool{
		sources.NormalizeURL(award(1).URL): true,
	}
	items, stats := p.ScrapeSource(context.Background(), src, 1,
		map[string]struct{}{}, collected, NewBudget(20))

	if len(items) != 1 || items[0].URL != award(2).URL {
		t.Fatalf("items = %+v", items)
	}
	if stats.Duplicates != 1 {
		t.Fatalf("stats.Duplicates = %d, want 1", stats.Duplicates)
	}
}
