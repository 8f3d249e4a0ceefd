package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/scholarscout-hq/scholarscout/internal/domain"
	"github.com/scholarscout-hq/scholarscout/internal/logger"
	"github.com/scholarscout-hq/scholarscout/pkg/httpclient"
	"github.com/scholarscout-hq/scholarscout/pkg/sources"
)

// Transport fetches one listing page for a source, choosing between the
// plain HTTP path and the scripted browser.
type Transport interface {
	FetchPage(ctx context.Context, src sources.Source, pageURL string) (domain.PageResult, error)
}

// BrowserFetcher is the scripted-browser contract (see internal/browser).
type BrowserFetcher interface {
	FetchPage(ctx context.Context, pageURL string) (domain.PageResult, error)
}

// transport routes JS-rendered sources through the browser and everything
// else through the retrying HTTP client. A failed browser fetch degrades to
// the plain path rather than failing the page outright.
type transport struct {
	plain   httpclient.Client
	browser BrowserFetcher
	log     logger.Logger
}

// NewTransport builds the standard dual-path transport. browser may be nil
// when no executable is available; JS sources then use the plain path.
func NewTransport(plain httpclient.Client, browser BrowserFetcher, log logger.Logger) Transport {
	if plain == nil {
		plain = httpclient.NewRetryClient(
			httpclient.NewRestyClient(30*time.Second),
			httpclient.DefaultDiscoveryPolicy(),
		)
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &transport{plain: plain, browser: browser, log: log}
}

func (t *transport) FetchPage(ctx context.Context, src sources.Source, pageURL string) (domain.PageResult, error) {
	if src.RequiresJS && t.browser != nil {
		res, err := t.browser.FetchPage(ctx, pageURL)
		if err == nil {
			return res, nil
		}
		t.log.WarnObj("browser fetch failed, using plain transport", "browser_fallback", map[string]any{
			"source_id": src.ID,
			"page_url":  pageURL,
			"error":     err.Error(),
		})
	}

	resp, err := t.plain.Get(ctx, pageURL, sources.Headers(src))
	if err != nil {
		return domain.PageResult{}, fmt.Errorf("fetch page: %w", err)
	}
	return domain.PageResult{
		HTML:     string(resp.Body()),
		FinalURL: resp.FinalURL(),
	}, nil
}
