package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Package sources contains the scholarship source registry: built-in site
// descriptors plus user-added custom sources loaded from YAML/JSON files.

// PagePlaceholder is substituted with the page number in PageTemplate.
const PagePlaceholder = "{page}"

// Limits are the per-source pagination stopping thresholds. They are tuned
// empirically per site and configurable rather than hard-coded.
type Limits struct {
	// EmptyPageLimit stops the source after this many consecutive pages with
	// zero extracted candidates.
	EmptyPageLimit int `json:"empty_page_limit" yaml:"empty_page_limit"`
	// DuplicateStreakLimit stops the source after this many consecutive
	// pages yielding only already-known items.
	DuplicateStreakLimit int `json:"duplicate_streak_limit" yaml:"duplicate_streak_limit"`
	// MinPagesBeforeStop is the floor of pages that must have been scanned
	// before the duplicate streak may stop the source. Some sites front-load
	// stale listings and only reveal new content on deep pages.
	MinPagesBeforeStop int `json:"min_pages_before_stop" yaml:"min_pages_before_stop"`
}

// DefaultLimits returns the stock stopping thresholds.
func DefaultLimits() Limits {
	return Limits{
		EmptyPageLimit:       3,
		DuplicateStreakLimit: 20,
		MinPagesBeforeStop:   15,
	}
}

// Source describes one scraping target. Built-in sources carry hand-tuned
// extraction rules; custom sources fall back to the generic extractor.
type Source struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	// BaseURL is the site root; extracted links must stay on this host.
	BaseURL string `json:"base_url" yaml:"base_url"`
	// SearchURL is the canonical first-page listing URL.
	SearchURL string `json:"search_url" yaml:"search_url"`
	// PageTemplate builds deep-page URLs; it must contain PagePlaceholder.
	PageTemplate string `json:"page_template" yaml:"page_template"`
	// RequiresJS marks sources that render listings client-side and need the
	// scripted browser transport.
	RequiresJS     bool           `json:"requires_js" yaml:"requires_js"`
	Enabled        *bool          `json:"enabled" yaml:"enabled"`
	BuiltIn        bool           `json:"-" yaml:"-"`
	RequestDelayMs int            `json:"request_delay_ms" yaml:"request_delay_ms"`
	Limits         Limits         `json:"limits" yaml:"limits"`
	Config         map[string]any `json:"config" yaml:"config"`
}

// EnabledValue returns the enabled flag defaulting to true.
func (s Source) EnabledValue() bool {
	if s.Enabled == nil {
		return true
	}
	return *s.Enabled
}

// PageURL builds the URL for the given 1-based page number. Page 1 always
// uses the canonical search URL.
func (s Source) PageURL(page int) string {
	if page <= 1 || s.PageTemplate == "" {
		return s.SearchURL
	}
	return strings.ReplaceAll(s.PageTemplate, PagePlaceholder, fmt.Sprintf("%d", page))
}

// RequestDelay returns the base inter-page throttle duration for the source.
func (s Source) RequestDelay() time.Duration {
	if s.RequestDelayMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(s.RequestDelayMs) * time.Millisecond
}

// registryFile represents the structure of the sources configuration file.
type registryFile struct {
	Sources []Source `json:"sources" yaml:"sources"`
}

// Registry materializes source definitions: built-ins merged with entries
// loaded from config files. Read-only during a discovery run.
type Registry struct {
	mu      sync.RWMutex
	sources []Source
	idx     map[string]Source
}

// LoadRegistry loads the source registry from a YAML/JSON file and merges it
// over the built-in descriptors. File entries matching a built-in ID override
// that built-in; entries with new IDs are treated as custom sources.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return NewRegistry(BuiltIn()), nil
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewRegistry(BuiltIn()), nil
		}
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	fileReg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	merged := BuiltIn()
	builtinIdx := make(map[string]int, len(merged))
	for i, s := range merged {
		builtinIdx[s.ID] = i
	}

	seen := make(map[string]bool, len(fileReg.Sources))
	for i := range fileReg.Sources {
		s := sanitizeSource(fileReg.Sources[i])
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate source id %q", s.ID)
		}
		seen[s.ID] = true

		if pos, ok := builtinIdx[s.ID]; ok {
			merged[pos] = overrideBuiltIn(merged[pos], fileReg.Sources[i])
			continue
		}

		if err := validateSource(s); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		merged = append(merged, s)
	}

	return NewRegistry(merged), nil
}

// NewRegistry builds a registry from an explicit source list.
func NewRegistry(list []Source) *Registry {
	reg := &Registry{
		sources: make([]Source, len(list)),
		idx:     make(map[string]Source, len(list)),
	}
	copy(reg.sources, list)
	for _, s := range list {
		reg.idx[s.ID] = s
	}
	return reg
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var reg registryFile
		if err := d.fn(data, &reg); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, errors.New("sources file format not recognized (expected YAML or JSON)")
}

func sanitizeSource(s Source) Source {
	s.ID = strings.ToLower(strings.TrimSpace(s.ID))
	s.Name = strings.TrimSpace(s.Name)
	s.BaseURL = strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	s.SearchURL = strings.TrimSpace(s.SearchURL)
	s.PageTemplate = strings.TrimSpace(s.PageTemplate)

	if s.Config == nil {
		s.Config = map[string]any{}
	}
	if s.Limits.EmptyPageLimit <= 0 {
		s.Limits.EmptyPageLimit = DefaultLimits().EmptyPageLimit
	}
	if s.Limits.DuplicateStreakLimit <= 0 {
		s.Limits.DuplicateStreakLimit = DefaultLimits().DuplicateStreakLimit
	}
	if s.Limits.MinPagesBeforeStop <= 0 {
		s.Limits.MinPagesBeforeStop = DefaultLimits().MinPagesBeforeStop
	}

	return s
}

// overrideBuiltIn applies the user-tunable fields from a file entry onto a
// built-in descriptor without letting it clobber the extraction identity.
func overrideBuiltIn(builtin, file Source) Source {
	if file.Enabled != nil {
		builtin.Enabled = file.Enabled
	}
	if file.RequestDelayMs > 0 {
		builtin.RequestDelayMs = file.RequestDelayMs
	}
	if file.Limits.EmptyPageLimit > 0 {
		builtin.Limits.EmptyPageLimit = file.Limits.EmptyPageLimit
	}
	if file.Limits.DuplicateStreakLimit > 0 {
		builtin.Limits.DuplicateStreakLimit = file.Limits.DuplicateStreakLimit
	}
	if file.Limits.MinPagesBeforeStop > 0 {
		builtin.Limits.MinPagesBeforeStop = file.Limits.MinPagesBeforeStop
	}
	if len(file.Config) > 0 {
		for k, v := range file.Config {
			builtin.Config[k] = v
		}
	}
	return builtin
}

func validateSource(s Source) error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if s.Name == "" {
		return fmt.Errorf("name is required for source %q", s.ID)
	}
	if s.BaseURL == "" {
		return fmt.Errorf("base_url is required for source %q", s.ID)
	}
	if s.SearchURL == "" {
		return fmt.Errorf("search_url is required for source %q", s.ID)
	}
	if s.PageTemplate != "" && !strings.Contains(s.PageTemplate, PagePlaceholder) {
		return fmt.Errorf("page_template for source %q must contain %s", s.ID, PagePlaceholder)
	}
	return nil
}

// All returns all configured sources.
func (r *Registry) All() []Source {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Enabled returns the sources enabled for discovery, optionally restricted to
// the given IDs (empty means all enabled).
func (r *Registry) Enabled(ids ...string) []Source {
	all := r.All()
	if len(all) == 0 {
		return nil
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" {
			want[id] = true
		}
	}

	out := make([]Source, 0, len(all))
	for _, s := range all {
		if !s.EnabledValue() {
			continue
		}
		if len(want) > 0 && !want[s.ID] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ByID returns the source entry for the given id, if present.
func (r *Registry) ByID(id string) (Source, bool) {
	if r == nil {
		return Source{}, false
	}
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return Source{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.idx[id]
	return s, ok
}
