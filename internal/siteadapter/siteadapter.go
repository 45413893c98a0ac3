// Package siteadapter defines the plugin interface: a host-matched
// adapter may override fetch, paginate, or extract for sites the default
// BrowserDriver+Paginator+SelectorExtractor pipeline can't handle well.
// Adapters are selected by first-matching registration and, when matched,
// run their own complete pipeline for that URL; the Crawler still
// normalizes, filters by horizon, and dedups their output exactly as it
// does for the default path.
package siteadapter

import (
	"context"
	"net/url"
	"strings"
)

// RawEvent is an unnormalized field map, the same shape SelectorExtractor
// and the Discoverer's fallback mode produce.
type RawEvent = map[string]string

// Result is one adapter run's output: raw events plus non-fatal warnings
// (e.g. a day that failed to load, a detail fetch that timed out).
type Result struct {
	Events   []RawEvent
	Warnings []string
}

// Adapter overrides part or all of the Crawler pipeline for hosts it
// declares a match for.
type Adapter interface {
	// Matches reports whether this adapter should handle rawURL.
	Matches(rawURL string) bool
	// Run executes the adapter's full fetch/paginate/extract pipeline and
	// returns raw field maps ready for Normalizer.
	Run(ctx context.Context, rawURL string) (Result, error)
}

// Registry holds adapters in registration order and resolves the first
// one that matches a given URL.
type Registry struct {
	adapters []Adapter
}

// NewRegistry builds a Registry from adapters in priority order.
func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// Resolve returns the first registered adapter that matches rawURL.
func (r *Registry) Resolve(rawURL string) (Adapter, bool) {
	for _, a := range r.adapters {
		if a.Matches(rawURL) {
			return a, true
		}
	}
	return nil, false
}

// hostMatches reports whether rawURL's hostname equals or is a subdomain
// of suffix (both compared case-insensitively, leading "www." ignored).
func hostMatches(rawURL, suffix string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	suffix = strings.ToLower(strings.TrimPrefix(suffix, "www."))
	return host == suffix || strings.HasSuffix(host, "."+suffix)
}
