// Package browser manages a long-lived headless Chrome via Rod for sources
// whose listings only render client-side. One browser process is shared for
// the whole process lifetime; tabs are opened and closed per page fetch.
package browser

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/scholarscout-hq/scholarscout/internal/domain"
	"github.com/scholarscout-hq/scholarscout/internal/logger"
)

const (
	navigateTimeout = 45 * time.Second
	maxScrollCycles = 5
	minScrollDelay  = 2 * time.Second
	maxScrollDelay  = 5 * time.Second
	viewportWidth   = 1366
	viewportHeight  = 768
)

// Fetcher is a lazily-started singleton browser used by all sources in turn.
// No two tabs are used concurrently.
type Fetcher struct {
	mu        sync.Mutex
	browser   *rod.Browser
	lnch      *launcher.Launcher
	userAgent string
	log       logger.Logger
	closed    bool
}

// New builds a browser fetcher. Chrome is not launched until the first fetch.
func New(userAgent string, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Fetcher{userAgent: userAgent, log: log}
}

// Available reports whether a browser executable can be located. When false,
// callers should use the plain HTTP transport instead.
func Available() bool {
	_, has := launcher.LookPath()
	return has
}

// FetchPage opens a tab, renders the page (including lazy-loaded content
// triggered by scrolling), and returns the final URL and rendered HTML.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) (domain.PageResult, error) {
	b, err := f.ensureStarted()
	if err != nil {
		return domain.PageResult{}, err
	}

	page, err := stealth.Page(b)
	if err != nil {
		return domain.PageResult{}, fmt.Errorf("browser: create tab: %w", err)
	}
	defer page.Close()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  viewportWidth,
		Height: viewportHeight,
	}); err != nil {
		f.log.WarnObj("browser viewport setup failed", "error", err.Error())
	}
	if f.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: f.userAgent}); err != nil {
			f.log.WarnObj("browser user-agent setup failed", "error", err.Error())
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, navigateTimeout)
	defer cancel()
	p := page.Context(navCtx)

	if err := p.Navigate(pageURL); err != nil {
		return domain.PageResult{}, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := p.WaitLoad(); err != nil {
		f.log.WarnObj("browser wait load timed out", "page_url", pageURL)
	}
	waitIdle := p.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)
	waitIdle()

	f.scrollToBottom(ctx, p)

	finalURL, err := evalString(p, `() => document.location.href`)
	if err != nil {
		return domain.PageResult{}, fmt.Errorf("browser: read final url: %w", err)
	}
	html, err := evalString(p, `() => document.documentElement.outerHTML`)
	if err != nil {
		return domain.PageResult{}, fmt.Errorf("browser: read dom: %w", err)
	}

	return domain.PageResult{HTML: html, FinalURL: finalURL}, nil
}

// scrollToBottom performs up to maxScrollCycles scroll passes with randomized
// delays to trigger lazy loading, stopping early once page height stops growing.
func (f *Fetcher) scrollToBottom(ctx context.Context, p *rod.Page) {
	lastHeight := -1
	for i := 0; i < maxScrollCycles; i++ {
		if _, err := p.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			return
		}
		if err := sleepRandom(ctx, minScrollDelay, maxScrollDelay); err != nil {
			return
		}

		res, err := p.Eval(`() => document.body.scrollHeight`)
		if err != nil {
			return
		}
		height := res.Value.Int()
		if height == lastHeight {
			return
		}
		lastHeight = height
	}
}

// ensureStarted lazily launches Chrome on first use.
func (f *Fetcher) ensureStarted() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, fmt.Errorf("browser: fetcher is closed")
	}
	if f.browser != nil {
		return f.browser, nil
	}

	if !Available() {
		return nil, fmt.Errorf("browser: no executable found")
	}

	l := launcher.New().
		Headless(true).
		Set("disable-blink-features", "AutomationControlled")

	wsURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser: launch: %w", err)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	f.lnch = l
	f.browser = b
	f.log.InfoObj("browser launched", "browser_meta", map[string]any{"ws_url": wsURL})
	return b, nil
}

// Close tears down the browser process. Safe to call more than once; wired to
// process termination in the application layer.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	if f.browser != nil {
		if err := f.browser.Close(); err != nil {
			f.log.WarnObj("browser close failed", "error", err.Error())
		}
		f.browser = nil
	}
	if f.lnch != nil {
		f.lnch.Cleanup()
		f.lnch = nil
	}
	return nil
}

func evalString(p *rod.Page, js string) (string, error) {
	res, err := p.Eval(js)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
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
