package app

import (
	"context"
	"fmt"
	"time"

	"github.com/scholarscout-hq/scholarscout/internal/analysis"
	"github.com/scholarscout-hq/scholarscout/internal/browser"
	"github.com/scholarscout-hq/scholarscout/internal/config"
	"github.com/scholarscout-hq/scholarscout/internal/discovery"
	"github.com/scholarscout-hq/scholarscout/internal/domain"
	"github.com/scholarscout-hq/scholarscout/internal/logger"
	"github.com/scholarscout-hq/scholarscout/internal/storage"
	"github.com/scholarscout-hq/scholarscout/pkg/publishers"
	"github.com/scholarscout-hq/scholarscout/pkg/sources"
)

// Scout is the discovery runtime. It wires the source registry, storage,
// transports, the optional analyzer and publishers into a discovery service
// and runs it once or on an interval.
type Scout struct {
	cfg       *config.Config
	sourceReg *sources.Registry
	service   *discovery.Service
	fanout    *publishers.Fanout
	store     storage.Store
	browser   *browser.Fetcher
	interval  time.Duration
	log       logger.Logger
}

// NewScout builds a scout runtime from config files.
func NewScout(ctx context.Context, cfg *config.Config, log logger.Logger) (*Scout, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	sourceReg, err := sources.LoadRegistry(cfg.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("load sources registry: %w", err)
	}
	enabledSources := sourceReg.Enabled()
	sourceIDs := make([]string, 0, len(enabledSources))
	for _, s := range enabledSources {
		sourceIDs = append(sourceIDs, s.ID)
	}
	log.InfoObj("sources registry loaded", "sources_meta", map[string]any{
		"count": len(sourceIDs),
		"ids":   sourceIDs,
	})

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var bf *browser.Fetcher
	var transportBrowser discovery.BrowserFetcher
	if cfg.BrowserEnabled {
		if browser.Available() {
			bf = browser.New(sources.DefaultUserAgent, log)
			transportBrowser = bf
		} else {
			log.WarnObj("no browser executable found; js sources use plain transport", "browser_enabled", cfg.BrowserEnabled)
		}
	}

	var analyzer analysis.Analyzer
	if cfg.AnalysisURL != "" {
		httpAnalyzer, err := analysis.NewHTTPAnalyzer(cfg.AnalysisURL, cfg.AnalysisAPIKey, cfg.AnalysisTimeout)
		if err != nil {
			closeQuietly(store, bf, log)
			return nil, fmt.Errorf("build analyzer: %w", err)
		}
		analyzer = httpAnalyzer
	} else {
		log.WarnObj("no analysis endpoint configured; discoveries are not analyzed", "analysis_url", "")
	}

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		closeQuietly(store, bf, log)
		return nil, err
	}

	transport := discovery.NewTransport(nil, transportBrowser, log)
	paginator := discovery.NewPaginator(transport, log)

	var eventSink discovery.EventPublisher
	if fanout.Size() > 0 {
		eventSink = fanout
	}

	service := discovery.NewService(sourceReg, store, paginator, analyzer, eventSink, log)

	return &Scout{
		cfg:       cfg,
		sourceReg: sourceReg,
		service:   service,
		fanout:    fanout,
		store:     store,
		browser:   bf,
		interval:  cfg.DiscoverInterval,
		log:       log,
	}, nil
}

// buildFanout loads the publisher registry and materializes the enabled
// sinks. A missing publishers file means no downstream fanout, not an error.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	reg, err := publishers.LoadRegistry(path)
	if err != nil {
		log.WarnObj("publishers registry unavailable; downstream fanout disabled", "publishers_meta", map[string]any{
			"file":  path,
			"error": err.Error(),
		})
		return publishers.NewFanout(nil), nil
	}

	enabled := reg.Enabled()
	if len(enabled) == 0 {
		return publishers.NewFanout(nil), nil
	}

	clients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	log.InfoObj("publishers registry loaded", "publishers_count", len(clients))
	return publishers.NewFanout(clients), nil
}

// Run executes discovery once, or repeatedly on the configured interval
// until the context is cancelled.
func (s *Scout) Run(ctx context.Context) error {
	if s == nil || s.service == nil {
		return fmt.Errorf("scout is not initialized")
	}
	defer s.close()

	s.log.InfoObj("scout starting", "scout_state", map[string]any{
		"target_new_count":     s.cfg.TargetNewCount,
		"max_pages_per_source": s.cfg.MaxPagesPerSource,
		"publishers_count":     s.fanout.Size(),
		"browser":              s.browser != nil,
		"interval":             s.interval.String(),
	})

	if err := s.runOnce(ctx); err != nil {
		if s.interval <= 0 {
			return err
		}
		s.log.ErrorObj("initial discovery failed", "error", err.Error())
	}

	if s.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.InfoObj("scout loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := s.runOnce(ctx); err != nil {
				s.log.ErrorObj("scheduled discovery failed", "error", err.Error())
			}
		}
	}
}

// runOnce performs a single discovery pass across the configured sources.
func (s *Scout) runOnce(ctx context.Context) error {
	start := time.Now()

	profile := domain.Profile{
		Summary:        s.cfg.ProfileSummary,
		FieldOfStudy:   s.cfg.ProfileFieldOfStudy,
		EducationLevel: s.cfg.ProfileEducationLevel,
		Interests:      s.cfg.Interests(),
	}

	result, err := s.service.Discover(ctx, profile, s.cfg.SourceIDs(), discovery.Options{
		TargetNewCount:    s.cfg.TargetNewCount,
		MaxPagesPerSource: s.cfg.MaxPagesPerSource,
		AnalysisDelay:     s.cfg.AnalysisDelay,
	})
	if err != nil {
		return err
	}

	s.log.InfoObj("discovery completed", "discovery_meta", map[string]any{
		"new_items":  len(result.Items),
		"analyzed":   len(result.Records),
		"sources":    len(result.Stats),
		"errors":     len(result.Errors),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	for _, msg := range result.Errors {
		s.log.WarnObj("discovery issue", "issue", msg)
	}
	return nil
}

// close shuts down the store and the browser, logging failures.
func (s *Scout) close() {
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.log.ErrorObj("browser close failed", "error", err.Error())
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.log.ErrorObj("storage close failed", "error", err.Error())
		}
	}
}

func closeQuietly(store storage.Store, bf *browser.Fetcher, log logger.Logger) {
	if bf != nil {
		if err := bf.Close(); err != nil {
			log.ErrorObj("browser close failed", "error", err.Error())
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			log.ErrorObj("storage close failed", "error", err.Error())
		}
	}
}
