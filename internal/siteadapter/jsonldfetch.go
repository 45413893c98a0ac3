package siteadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// JSONLDFetchAdapter is the static-fetch + JSON-LD shape added in the
// expanded spec: for hosts that serve complete schema.org markup without
// needing JS rendering, it skips BrowserDriver entirely, fetches via the
// same protected-fetch HTTP transport, and decodes the page's JSON-LD
// event blocks into RawEvent maps itself. It never needs Cloudflare-bypass
// behaviour, just the same robots.txt-respecting client.
type JSONLDFetchAdapter struct {
	HostSuffix string
	UserAgent  string
	fetch      *ProtectedFetchAdapter
}

// NewJSONLDFetchAdapter builds a JSONLDFetchAdapter, reusing
// ProtectedFetchAdapter's transport for the actual network call.
func NewJSONLDFetchAdapter(hostSuffix, userAgent string) *JSONLDFetchAdapter {
	return &JSONLDFetchAdapter{
		HostSuffix: hostSuffix,
		UserAgent:  userAgent,
		fetch:      &ProtectedFetchAdapter{HostSuffix: hostSuffix, UserAgent: userAgent},
	}
}

func (a *JSONLDFetchAdapter) Matches(rawURL string) bool {
	return hostMatches(rawURL, a.HostSuffix)
}

// Run fetches rawURL statically and decodes every schema.org Event /
// EventSeries object out of its JSON-LD script blocks. The returned
// RawEvent maps carry the engine's raw un-normalized field names
// (event_name, date_iso, location, description, event_url, plus
// end_date_iso when the block has an endDate) so they flow through the
// same Normalizer step as every other path.
func (a *JSONLDFetchAdapter) Run(ctx context.Context, rawURL string) (Result, error) {
	var warnings []string

	allowed, err := robotsAllowed(ctx, rawURL, a.fetch.userAgent())
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("robots.txt check failed for %s: %v", rawURL, err))
		allowed = true
	}
	if !allowed {
		return Result{}, fmt.Errorf("jsonld fetch: disallowed by robots.txt for %s", rawURL)
	}

	html, err := a.fetch.fetchHTML(ctx, rawURL)
	if err != nil {
		return Result{}, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Result{}, fmt.Errorf("jsonld fetch: parse HTML: %w", err)
	}

	blocks := ExtractJSONLDEvents(doc)

	var events []RawEvent
	for _, raw := range blocks {
		fields, err := schemaEventToRawFields(raw)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("jsonld fetch: skipping malformed event block: %v", err))
			continue
		}
		if fields["event_name"] == "" {
			continue
		}
		events = append(events, fields)
	}

	return Result{Events: events, Warnings: warnings}, nil
}

// schemaEvent is the subset of schema.org Event fields this engine cares
// about.
type schemaEvent struct {
	Name        string          `json:"name"`
	StartDate   string          `json:"startDate"`
	EndDate     string          `json:"endDate"`
	Description string          `json:"description"`
	URL         string          `json:"url"`
	Location    json.RawMessage `json:"location"`
}

func schemaEventToRawFields(raw json.RawMessage) (RawEvent, error) {
	var ev schemaEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	fields := RawEvent{
		"event_name":  strings.TrimSpace(ev.Name),
		"date_iso":    ev.StartDate,
		"description": ev.Description,
		"event_url":   ev.URL,
		"location":    schemaLocationName(ev.Location),
	}
	if ev.EndDate != "" {
		fields["end_date_iso"] = ev.EndDate
	}
	return fields, nil
}

// schemaLocationName handles both a bare string location and a nested
// schema.org Place object with a "name" field.
func schemaLocationName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return name
	}
	var place struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &place); err == nil {
		return place.Name
	}
	return ""
}
