package discovery

import (
	"context"
	"math/rand"
	"time"

	"github.com/scholarscout-hq/scholarscout/internal/domain"
	"github.com/scholarscout-hq/scholarscout/internal/logger"
	"github.com/scholarscout-hq/scholarscout/pkg/extract"
	"github.com/scholarscout-hq/scholarscout/pkg/sources"
)

const (
	minPageDelay = 2 * time.Second
	maxPageDelay = 5 * time.Second
)

// ExtractFunc pulls candidates out of a fetched page.
type ExtractFunc func(html string, src sources.Source, pageURL string) []domain.DiscoveredItem

// Paginator drives one source page-by-page, applying the redirect and
// termination heuristics and charging new finds against the shared budget.
// All state (streaks, stats) is local to one ScrapeSource call.
type Paginator struct {
	transport Transport
	extract   ExtractFunc
	sleep     func(ctx context.Context, min, max time.Duration) error
	log       logger.Logger
}

// NewPaginator builds a paginator over the given transport.
func NewPaginator(transport Transport, log logger.Logger) *Paginator {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Paginator{
		transport: transport,
		extract:   extract.Extract,
		sleep:     sleepRandom,
		log:       log,
	}
}

// ScrapeSource walks the source's pages in ascending order up to maxPages.
// known holds normalized URLs from the duplicate store; collected is the
// run-level set of normalized URLs already found by earlier sources and is
// mutated as items are accepted. The budget is charged per new item and
// checked before every page request.
func (p *Paginator) ScrapeSource(
	ctx context.Context,
	src sources.Source,
	maxPages int,
	known map[string]struct{},
	collected map[string]bool,
	budget *Budget,
) ([]domain.DiscoveredItem, domain.SourceStats) {
	stats := domain.SourceStats{SourceID: src.ID}
	var items []domain.DiscoveredItem
	var lastErr error

	emptyStreak := 0
	dupStreak := 0

	for page := 1; page <= maxPages; page++ {
		if budget.Exhausted() {
			p.log.DebugObj("budget exhausted, stopping source", "source_id", src.ID)
			break
		}
		if ctx.Err() != nil {
			break
		}

		pageURL := src.PageURL(page)
		res, err := p.transport.FetchPage(ctx, src, pageURL)
		stats.Pages++

		if err != nil {
			// A dead page is treated as empty, not fatal for the source.
			lastErr = err
			p.log.WarnObj("page fetch failed", "page_error", map[string]any{
				"source_id": src.ID,
				"page":      page,
				"error":     err.Error(),
			})
			emptyStreak++
			dupStreak = 0
			if emptyStreak >= src.Limits.EmptyPageLimit {
				break
			}
			if err := p.pause(ctx, page, maxPages, budget); err != nil {
				break
			}
			continue
		}

		if src.IsRedirected(pageURL, res.FinalURL, page) {
			// The site served page 1 for an out-of-range page: listings ended.
			p.log.DebugObj("redirect to first page detected", "redirect_meta", map[string]any{
				"source_id": src.ID,
				"requested": pageURL,
				"final":     res.FinalURL,
			})
			break
		}

		candidates := p.extract(res.HTML, src, pageURL)
		stats.Found += len(candidates)

		newOnPage := 0
		for _, c := range candidates {
			key := sources.NormalizeURL(c.URL)
			if _, dup := known[key]; dup {
				stats.Duplicates++
				continue
			}
			if collected[key] {
				stats.Duplicates++
				continue
			}
			collected[key] = true
			items = append(items, c)
			newOnPage++
		}
		stats.New += newOnPage
		budget.Add(newOnPage)

		stop := false
		switch {
		case len(candidates) == 0:
			emptyStreak++
			// An empty page is evidence of a gap, not exhaustion.
			dupStreak = 0
			if emptyStreak >= src.Limits.EmptyPageLimit {
				p.log.DebugObj("empty page limit reached", "source_id", src.ID)
				stop = true
			}
		case newOnPage == 0:
			dupStreak++
			emptyStreak = 0
			if dupStreak >= src.Limits.DuplicateStreakLimit &&
				stats.Pages >= src.Limits.MinPagesBeforeStop {
				p.log.DebugObj("duplicate streak limit reached", "source_id", src.ID)
				stop = true
			}
		default:
			emptyStreak = 0
			dupStreak = 0
		}
		if stop {
			break
		}

		if err := p.pause(ctx, page, maxPages, budget); err != nil {
			break
		}
	}

	stats.Classify()
	if stats.Status == domain.StatusFailed && lastErr != nil {
		stats.Error = lastErr.Error()
	}
	return items, stats
}

// pause applies the randomized inter-page delay unless the loop is about to
// stop anyway.
func (p *Paginator) pause(ctx context.Context, page, maxPages int, budget *Budget) error {
	if page >= maxPages || budget.Exhausted() {
		return nil
	}
	return p.sleep(ctx, minPageDelay, maxPageDelay)
}

func sleepRandom(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min)))
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
