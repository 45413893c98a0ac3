package siteadapter

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractJSONLDEvents scans every <script type="application/ld+json">
// block in doc and returns the raw schema.org Event/EventSeries objects
// found within them, handling a bare object, a top-level array, an
// "@graph" wrapper, and an ItemList/itemListElement wrapper. Shared by
// the Crawler's JSON-LD fast path and JSONLDFetchAdapter so both decode
// structured data identically.
func ExtractJSONLDEvents(doc *goquery.Document) []json.RawMessage {
	var events []json.RawMessage
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		extracted, err := extractJSONLDBlock([]byte(raw))
		if err != nil {
			return
		}
		events = append(events, extracted...)
	})
	return events
}

func extractJSONLDBlock(data []byte) ([]json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}
	if trimmed[0] == '[' {
		return extractFromJSONLDArray(data)
	}
	return extractFromJSONLDObject(data)
}

func extractFromJSONLDArray(data []byte) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	var events []json.RawMessage
	for _, item := range items {
		extracted, err := extractFromJSONLDObject(item)
		if err != nil {
			return nil, err
		}
		events = append(events, extracted...)
	}
	return events, nil
}

func extractFromJSONLDObject(data []byte) ([]json.RawMessage, error) {
	var envelope struct {
		Type            json.RawMessage   `json:"@type"`
		Graph           []json.RawMessage `json:"@graph"`
		ItemListElement []json.RawMessage `json:"itemListElement"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	if len(envelope.Graph) > 0 {
		var events []json.RawMessage
		for _, item := range envelope.Graph {
			extracted, err := extractFromJSONLDObject(item)
			if err != nil {
				return nil, err
			}
			events = append(events, extracted...)
		}
		return events, nil
	}

	typ := jsonLDTypeString(envelope.Type)

	if typ == "ItemList" && len(envelope.ItemListElement) > 0 {
		var events []json.RawMessage
		for _, elem := range envelope.ItemListElement {
			var listItem struct {
				Item json.RawMessage `json:"item"`
			}
			if err := json.Unmarshal(elem, &listItem); err != nil {
				return nil, err
			}
			if len(listItem.Item) == 0 {
				continue
			}
			extracted, err := extractFromJSONLDObject(listItem.Item)
			if err != nil {
				return nil, err
			}
			events = append(events, extracted...)
		}
		return events, nil
	}

	if typ == "Event" || typ == "EventSeries" {
		return []json.RawMessage{json.RawMessage(data)}, nil
	}

	return nil, nil
}

func jsonLDTypeString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return stripSchemaOrgPrefix(s)
	}
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil && len(arr) > 0 {
		return stripSchemaOrgPrefix(arr[0])
	}
	return ""
}

func stripSchemaOrgPrefix(s string) string {
	for _, prefix := range []string{"https://schema.org/", "http://schema.org/"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			return after
		}
	}
	return s
}
