// Package crawler runs the single-URL pipeline composing BrowserDriver,
// Paginator, and (SelectorExtractor ∥ Discoverer ∥ SiteAdapter) into a
// normalized, horizon-filtered, deduplicated Event list for one
// SourceURL.
package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nordicstacks/eventpipeline/internal/aiextractor"
	"github.com/nordicstacks/eventpipeline/internal/browser"
	"github.com/nordicstacks/eventpipeline/internal/discoverer"
	"github.com/nordicstacks/eventpipeline/internal/model"
	"github.com/nordicstacks/eventpipeline/internal/normalize"
	"github.com/nordicstacks/eventpipeline/internal/paginator"
	"github.com/nordicstacks/eventpipeline/internal/selectorextractor"
	"github.com/nordicstacks/eventpipeline/internal/siteadapter"
)

// cookieBannerCandidates are clicked, in order, with a short timeout and
// silent failure, before pagination begins.
var cookieBannerCandidates = []string{
	"Godkänn", "Acceptera", "Jag förstår",
	"#cookie-accept", "[id*=cookie] button", "[class*=cookie] button",
}

const (
	cookieBannerTimeoutMs = 1500

	defaultHorizonDays = 30
	maxHorizonDays     = 45

	detailFetchMinDescLen = 30
	defaultMaxDetailFetch = 5
)

// SelectorStore is the subset of storage/sqlite.SelectorStore the Crawler
// needs, kept as an interface so tests can substitute an in-memory fake.
type SelectorStore interface {
	Get(rawURL string) (model.SelectorBundle, bool, error)
	Put(bundle model.SelectorBundle) error
}

// Options configures one Crawler's behaviour; all fields have sane
// per-spec defaults when zero.
type Options struct {
	HorizonDays      int
	MaxDetailFetches int
}

func (o Options) horizonDays() int {
	if o.HorizonDays <= 0 {
		return defaultHorizonDays
	}
	if o.HorizonDays > maxHorizonDays {
		return maxHorizonDays
	}
	return o.HorizonDays
}

func (o Options) maxDetailFetches() int {
	if o.MaxDetailFetches <= 0 {
		return defaultMaxDetailFetch
	}
	return o.MaxDetailFetches
}

// Crawler runs the full single-URL extraction pipeline.
type Crawler struct {
	Driver    browser.Driver
	Extractor aiextractor.Extractor
	Selectors SelectorStore
	Adapters  *siteadapter.Registry
	Now       func() time.Time
	Log       zerolog.Logger
	Options   Options
}

// Result is one URL's crawl outcome.
type Result struct {
	Events   []model.Event
	Warnings []string
}

func (c *Crawler) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Crawl runs the pipeline for one listing URL end to end. The session (if
// any is opened) is always closed before returning.
func (c *Crawler) Crawl(ctx context.Context, listingURL string) Result {
	if adapter, ok := c.resolveAdapter(listingURL); ok {
		return c.crawlWithAdapter(ctx, adapter, listingURL)
	}
	return c.crawlDefault(ctx, listingURL)
}

func (c *Crawler) resolveAdapter(listingURL string) (siteadapter.Adapter, bool) {
	if c.Adapters == nil {
		return nil, false
	}
	return c.Adapters.Resolve(listingURL)
}

func (c *Crawler) crawlWithAdapter(ctx context.Context, adapter siteadapter.Adapter, listingURL string) Result {
	out, err := adapter.Run(ctx, listingURL)
	if err != nil {
		return Result{Warnings: []string{fmt.Sprintf("adapter run failed for %s: %v", listingURL, err)}}
	}
	events, warnings := c.normalizeAll(out.Events, listingURL)
	warnings = append(out.Warnings, warnings...)
	events = c.consolidate(events)
	return Result{Events: events, Warnings: warnings}
}

func (c *Crawler) crawlDefault(ctx context.Context, listingURL string) Result {
	session, err := c.Driver.Open(listingURL, browser.DefaultOpenWaits())
	if err != nil {
		return Result{Warnings: []string{fmt.Sprintf("open failed for %s: %v", listingURL, err)}}
	}
	defer session.Close()
	c.Log.Debug().Str("session_id", session.SessionID()).Str("url", listingURL).Msg("opened listing session")

	c.dismissCookieBanners(session)

	if events, ok := c.tryJSONLDFastPath(session, listingURL); ok {
		normalized, warnings := c.normalizeAll(events, listingURL)
		return Result{Events: c.consolidate(normalized), Warnings: warnings}
	}

	result := paginator.Paginate(session, paginator.Options{MaxClicks: paginator.DefaultMaxClicks, URL: listingURL})

	rawEvents, warnings := c.extractFromSession(session, listingURL)

	for _, extraURL := range result.ExtraPageURLs {
		if err := ctx.Err(); err != nil {
			break
		}
		extraSession, err := c.Driver.Open(extraURL, browser.DefaultOpenWaits())
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("open failed for extra page %s: %v", extraURL, err))
			continue
		}
		extraRaw, extraWarnings := c.extractFromSession(extraSession, listingURL)
		extraSession.Close()
		rawEvents = append(rawEvents, extraRaw...)
		warnings = append(warnings, extraWarnings...)
	}

	normalized, normWarnings := c.normalizeAll(rawEvents, listingURL)
	warnings = append(warnings, normWarnings...)

	normalized = c.fetchDetails(ctx, normalized, listingURL)
	normalized = c.consolidate(normalized)

	return Result{Events: normalized, Warnings: warnings}
}

func (c *Crawler) dismissCookieBanners(session browser.Session) {
	for _, candidate := range cookieBannerCandidates {
		if ok, err := session.Click(candidate, false, cookieBannerTimeoutMs); err == nil && ok {
			return
		}
	}
}

func (c *Crawler) tryJSONLDFastPath(session browser.Session, listingURL string) ([]siteadapter.RawEvent, bool) {
	html, err := session.Content()
	if err != nil || html == "" {
		return nil, false
	}
	doc, err := jsonLDDocument(html)
	if err != nil {
		return nil, false
	}
	blocks := siteadapter.ExtractJSONLDEvents(doc)
	if len(blocks) == 0 {
		return nil, false
	}

	var events []siteadapter.RawEvent
	for _, raw := range blocks {
		fields, ok := schemaEventFields(raw)
		if !ok || strings.TrimSpace(fields["event_name"]) == "" {
			continue
		}
		if strings.TrimSpace(fields["date_iso"]) == "" {
			continue
		}
		events = append(events, fields)
	}
	if len(events) == 0 {
		return nil, false
	}
	return events, true
}

// extractFromSession consults SelectorStore, then Discoverer, producing
// raw field maps ready for normalization.
func (c *Crawler) extractFromSession(session browser.Session, listingURL string) ([]siteadapter.RawEvent, []string) {
	var warnings []string

	bundle, hit, err := c.Selectors.Get(listingURL)
	if err == nil && hit {
		maps, err := selectorextractor.Extract(session, bundle)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("selector extraction failed for %s: %v", listingURL, err))
		} else if len(maps) == 0 {
			warnings = append(warnings, fmt.Sprintf("selector mismatch: cached bundle yielded 0 containers for %s", listingURL))
		} else {
			return toRawEvents(maps), warnings
		}
	}

	html, err := session.Content()
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("failed to read content for discovery on %s: %v", listingURL, err))
		return nil, warnings
	}

	disco, err := discoverer.Discover(c.Extractor, listingURL, html)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("discovery failed for %s: %v", listingURL, err))
		return nil, warnings
	}

	if disco.UsedFallback {
		return toAIRawEvents(disco.FallbackEvents), warnings
	}

	if disco.Trusted {
		if err := c.Selectors.Put(disco.Bundle); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to cache discovered bundle for %s: %v", listingURL, err))
		}
	}

	maps, err := selectorextractor.Extract(session, disco.Bundle)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("selector extraction failed after discovery for %s: %v", listingURL, err))
		return nil, warnings
	}
	return toRawEvents(maps), warnings
}

func toRawEvents(maps []map[string]string) []siteadapter.RawEvent {
	out := make([]siteadapter.RawEvent, len(maps))
	for i, m := range maps {
		out[i] = m
	}
	return out
}

func toAIRawEvents(events []aiextractor.RawFields) []siteadapter.RawEvent {
	out := make([]siteadapter.RawEvent, len(events))
	for i, e := range events {
		out[i] = map[string]string(e)
	}
	return out
}

// normalizeAll parses dates, classifies the target group, detects
// status, resolves the event URL, then drops unparseable/out-of-horizon
// records.
func (c *Crawler) normalizeAll(raw []siteadapter.RawEvent, listingURL string) ([]model.Event, []string) {
	now := c.now()
	base, _ := url.Parse(listingURL)
	ctx := normalize.Context{SourceHint: sourceHint(listingURL)}
	horizonEnd := truncateDay(now).AddDate(0, 0, c.Options.horizonDays())
	today := truncateDay(now)

	var events []model.Event
	var warnings []string

	for _, fields := range raw {
		start, end, hasEnd := normalize.ParseDateRange(fields["date_iso"], now)
		if start == "" {
			continue
		}

		// A producer that already knows its end date (day-stepping,
		// protected-fetch, JSON-LD, AI event-list) reports it under its own
		// key instead of packing it into date_iso as a range; that one wins
		// over range-splitting date_iso when present and parseable.
		if explicitEnd, ok := normalize.ParseDate(fields["end_date_iso"], now); ok {
			end = explicitEnd
			hasEnd = true
		}

		eventDay, err := time.Parse("2006-01-02", start)
		if err != nil {
			continue
		}
		if eventDay.Before(today) || eventDay.After(horizonEnd) {
			continue
		}

		endISO := model.DateNA
		if hasEnd {
			endISO = end
		}

		targetGroupRaw := fields["target_group_raw"]
		if targetGroupRaw == "" {
			targetGroupRaw = fields["target_group"]
		}

		events = append(events, model.Event{
			EventName:      normalize.CleanEventName(fields["event_name"]),
			DateISO:        start,
			EndDateISO:     endISO,
			Time:           normalize.ExtractTime(fields["time"]),
			Location:       normalize.SanitizeText(fields["location"]),
			TargetGroupRaw: targetGroupRaw,
			TargetGroup:    normalize.ClassifyTargetGroup(targetGroupRaw, fields["event_name"], ctx),
			Description:    normalize.SanitizeText(fields["description"]),
			EventURL:       resolveEventURL(base, fields["event_url"]),
			Status:         normalize.DetectStatus(fields["event_name"], fields["description"], fields["status"]),
			BookingInfo:    normalize.ExtractBooking(fields["booking"]),
			LastScraped:    now,
		})
	}

	return events, warnings
}

func sourceHint(listingURL string) string {
	if strings.Contains(strings.ToLower(listingURL), "forskolor") {
		return "preschool"
	}
	return ""
}

func resolveEventURL(base *url.URL, raw string) string {
	if raw == "" || base == nil {
		return raw
	}
	resolved, err := base.Parse(raw)
	if err != nil {
		return raw
	}
	return resolved.String()
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// fetchDetails handles the case where an event's description is absent
// or shorter than detailFetchMinDescLen and its URL differs from the
// listing URL: it follows the link and overwrites the description with
// the main block of text found there. Bounded by Options.MaxDetailFetches.
func (c *Crawler) fetchDetails(ctx context.Context, events []model.Event, listingURL string) []model.Event {
	fetched := 0
	maxFetches := c.Options.maxDetailFetches()

	for i := range events {
		if fetched >= maxFetches || ctx.Err() != nil {
			break
		}
		ev := &events[i]
		if len(ev.Description) >= detailFetchMinDescLen {
			continue
		}
		if ev.EventURL == "" || ev.EventURL == listingURL {
			continue
		}

		session, err := c.Driver.Open(ev.EventURL, browser.DefaultOpenWaits())
		if err != nil {
			continue
		}
		text := firstNonEmptyText(session, "article", "main", ".description", ".content", "#content")
		session.Close()
		fetched++

		if text != "" {
			ev.Description = normalize.SanitizeText(text)
		}
	}
	return events
}

func firstNonEmptyText(session browser.Session, selectors ...string) string {
	for _, sel := range selectors {
		text, err := session.InnerText(sel)
		if err == nil && strings.TrimSpace(text) != "" {
			return text
		}
	}
	return ""
}

// consolidate merges same-run duplicates keyed by (event_name, date_iso).
// Distinct times are joined with ", "; the earliest-encountered URL is
// kept.
func (c *Crawler) consolidate(events []model.Event) []model.Event {
	type key struct{ name, date string }
	order := make([]key, 0, len(events))
	merged := make(map[key]*model.Event, len(events))

	for i := range events {
		ev := events[i]
		k := key{name: ev.EventName, date: ev.DateISO}
		if existing, ok := merged[k]; ok {
			if ev.Time != "" && ev.Time != model.TimeNA && !strings.Contains(existing.Time, ev.Time) {
				existing.Time = joinTimes(existing.Time, ev.Time)
			}
			continue
		}
		copyEv := ev
		order = append(order, k)
		merged[k] = &copyEv
	}

	out := make([]model.Event, 0, len(order))
	for _, k := range order {
		out = append(out, *merged[k])
	}
	return out
}

func joinTimes(existing, next string) string {
	if existing == "" || existing == model.TimeNA {
		return next
	}
	return existing + ", " + next
}
