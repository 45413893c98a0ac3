package crawler

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nordicstacks/eventpipeline/internal/siteadapter"
)

// jsonLDDocument parses already-rendered HTML (the live DOM's
// outerHTML, not a fresh fetch) so the JSON-LD fast path can reuse the
// session already opened for this listing.
func jsonLDDocument(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// schemaEventFields decodes one schema.org Event/EventSeries block into
// the raw field-map shape Normalizer expects.
func schemaEventFields(raw json.RawMessage) (siteadapter.RawEvent, bool) {
	var ev struct {
		Name        string          `json:"name"`
		StartDate   string          `json:"startDate"`
		EndDate     string          `json:"endDate"`
		Description string          `json:"description"`
		URL         string          `json:"url"`
		Location    json.RawMessage `json:"location"`
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, false
	}

	fields := siteadapter.RawEvent{
		"event_name":  strings.TrimSpace(ev.Name),
		"date_iso":    ev.StartDate,
		"description": ev.Description,
		"event_url":   ev.URL,
		"location":    schemaLocationText(ev.Location),
	}
	if ev.EndDate != "" {
		fields["date_iso"] = ev.StartDate + " - " + ev.EndDate
	}
	return fields, true
}

func schemaLocationText(raw json.RawMessage) string {
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
