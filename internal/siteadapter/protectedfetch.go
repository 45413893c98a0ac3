package siteadapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/temoto/robotstxt"

	"github.com/nordicstacks/eventpipeline/internal/model"
)

const (
	defaultUserAgent = "eventpipeline/0.1 (+https://github.com/nordicstacks/eventpipeline)"
	fetchTimeout     = 30 * time.Second
	robotsTimeout    = 10 * time.Second
	maxBodyBytes     = 10 * 1024 * 1024
)

// ProtectedFetchAdapter handles sites that reject headless browsers: it
// fetches statically via an HTTP client that respects robots.txt, parses
// the listing with goquery, and optionally follows event detail links
// with gocolly (reusing its per-domain rate limiting) to pull longer
// descriptions.
type ProtectedFetchAdapter struct {
	HostSuffix        string
	ListingSelector   string
	ItemSelectors     map[string]model.ItemSelector
	DescriptionFollow DescriptionFollow
	UserAgent         string
	Client            *http.Client
}

// DescriptionFollow configures optional detail-page following for a
// ProtectedFetchAdapter.
type DescriptionFollow struct {
	Enabled             bool
	DescriptionSelector string
	MaxDetailFetches    int
}

func (a *ProtectedFetchAdapter) Matches(rawURL string) bool {
	return hostMatches(rawURL, a.HostSuffix)
}

func (a *ProtectedFetchAdapter) userAgent() string {
	if a.UserAgent != "" {
		return a.UserAgent
	}
	return defaultUserAgent
}

func (a *ProtectedFetchAdapter) httpClient() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return &http.Client{
		Timeout: fetchTimeout,
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (a *ProtectedFetchAdapter) Run(ctx context.Context, rawURL string) (Result, error) {
	var warnings []string

	allowed, err := robotsAllowed(ctx, rawURL, a.userAgent())
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("robots.txt check failed for %s: %v", rawURL, err))
		allowed = true
	}
	if !allowed {
		return Result{}, fmt.Errorf("protected fetch: disallowed by robots.txt for %s", rawURL)
	}

	html, err := a.fetchHTML(ctx, rawURL)
	if err != nil {
		return Result{}, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Result{}, fmt.Errorf("protected fetch: parse HTML: %w", err)
	}

	base, _ := url.Parse(rawURL)

	var events []RawEvent
	doc.Find(a.ListingSelector).Each(func(_ int, s *goquery.Selection) {
		fields := extractGoquerySelectors(s, a.ItemSelectors, base)
		if strings.TrimSpace(fields["event_name"]) == "" {
			return
		}
		if dr, ok := fields["date_range"]; ok && dr != "" {
			start, end, hasEnd := splitRangeText(dr)
			fields["date_iso"] = start
			if hasEnd {
				fields["end_date_iso"] = end
			}
			delete(fields, "date_range")
		}
		events = append(events, fields)
	})

	if a.DescriptionFollow.Enabled {
		events, warnings = a.followDetails(events, warnings)
	}

	return Result{Events: events, Warnings: warnings}, nil
}

func (a *ProtectedFetchAdapter) fetchHTML(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("protected fetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent())

	resp, err := a.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("protected fetch: request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("protected fetch: unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("protected fetch: read body: %w", err)
	}
	return string(body), nil
}

// followDetails fetches each event's URL (up to MaxDetailFetches) via
// Colly and overwrites description with the detail page's main block.
func (a *ProtectedFetchAdapter) followDetails(events []RawEvent, warnings []string) ([]RawEvent, []string) {
	maxFetches := a.DescriptionFollow.MaxDetailFetches
	if maxFetches <= 0 {
		maxFetches = 10
	}

	c := colly.NewCollector(colly.UserAgent(a.userAgent()))
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Delay: time.Second}); err != nil {
		warnings = append(warnings, fmt.Sprintf("protected fetch: failed to set rate limit: %v", err))
	}

	fetched := 0
	current := -1
	c.OnHTML(a.DescriptionFollow.DescriptionSelector, func(h *colly.HTMLElement) {
		text := strings.TrimSpace(h.Text)
		if text != "" && current >= 0 {
			events[current]["description"] = text
		}
	})
	for i := range events {
		if fetched >= maxFetches {
			break
		}
		detailURL := events[i]["event_url"]
		if detailURL == "" {
			continue
		}

		current = i
		if err := c.Visit(detailURL); err != nil {
			warnings = append(warnings, fmt.Sprintf("protected fetch: detail visit failed for %s: %v", detailURL, err))
			continue
		}
		fetched++
	}
	c.Wait()

	return events, warnings
}

func extractGoquerySelectors(s *goquery.Selection, selectors map[string]model.ItemSelector, base *url.URL) RawEvent {
	fields := make(RawEvent, len(selectors))
	for field, sel := range selectors {
		target := s.Find(sel.Selector)
		if target.Length() == 0 {
			fields[field] = ""
			continue
		}
		attr := sel.Attribute
		if attr == "" && strings.Contains(field, "url") {
			attr = "href"
		}
		if attr != "" {
			v, _ := target.First().Attr(attr)
			if attr == "href" && base != nil {
				if resolved, err := base.Parse(v); err == nil {
					v = resolved.String()
				}
			}
			fields[field] = collapseSpace(v)
			continue
		}
		fields[field] = collapseSpace(target.First().Text())
	}
	return fields
}

var spaceRe = regexp.MustCompile(`\s+`)

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// rangeSplitRe mirrors internal/normalize's dash-family splitter: a plain
// hyphen only separates a range when padded by whitespace, so it never
// matches inside an ISO date's own hyphens.
var rangeSplitRe = regexp.MustCompile(`\s+-\s+|\s*[–—]\s*`)

// splitRangeText splits a raw "start – end" listing string into its two
// halves without parsing them — date parsing happens once, uniformly,
// in the Normalizer downstream.
func splitRangeText(s string) (start, end string, hasEnd bool) {
	s = strings.TrimSpace(s)
	parts := rangeSplitRe.Split(s, 2)
	if len(parts) != 2 {
		return s, "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

func robotsAllowed(ctx context.Context, rawURL, userAgent string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("parsing URL %q: %w", rawURL, err)
	}
	robotsURL := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/robots.txt"}

	client := &http.Client{
		Timeout: robotsTimeout,
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return false, fmt.Errorf("building robots.txt request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("fetching robots.txt from %q: %w", robotsURL.String(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return true, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("reading robots.txt body: %w", err)
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return true, nil
	}

	return data.TestAgent(parsed.Path, userAgent), nil
}
