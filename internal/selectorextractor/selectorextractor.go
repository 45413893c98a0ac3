// Package selectorextractor reads raw event fields out of a live session
// using a cached SelectorBundle.
package selectorextractor

import (
	"regexp"
	"strings"

	"github.com/nordicstacks/eventpipeline/internal/browser"
	"github.com/nordicstacks/eventpipeline/internal/model"
)

// bookingKeywords mirrors the substrings normalize.ExtractBooking looks
// for, used here only to pick which paragraph within a container to hand
// to the normalizer for the "booking" field.
var bookingKeywords = []string{
	"fullbokat", "boka plats", "du behöver boka", "bokning krävs", "bokningen öppnar", "drop-in", "dropin",
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Extract iterates the containers matching bundle.ContainerSelector and
// reads each field in bundle.ItemSelectors, producing one raw field map
// per container. Records with an empty event_name are dropped.
func Extract(session browser.Session, bundle model.SelectorBundle) ([]map[string]string, error) {
	containers, err := session.LocateAll(bundle.ContainerSelector)
	if err != nil {
		return nil, err
	}

	var out []map[string]string
	for _, container := range containers {
		fields := extractContainer(container, bundle.ItemSelectors)
		if strings.TrimSpace(fields["event_name"]) == "" {
			continue
		}
		out = append(out, fields)
	}
	return out, nil
}

func extractContainer(container browser.Element, selectors map[string]model.ItemSelector) map[string]string {
	fields := make(map[string]string, len(selectors))
	for field, sel := range selectors {
		if field == "booking" {
			fields[field] = extractBookingParagraph(container, sel.Selector)
			continue
		}
		fields[field] = extractField(container, field, sel)
	}
	return fields
}

func extractField(container browser.Element, field string, sel model.ItemSelector) string {
	el, ok, err := container.Find(sel.Selector)
	if err != nil || !ok {
		return ""
	}

	attr := sel.Attribute
	if attr == "" && isURLField(field) {
		attr = "href"
	}
	if attr == "" && isDateOrTimeField(field) {
		if dt, err := el.Attribute("datetime"); err == nil && dt != "" {
			return collapse(dt)
		}
	}
	if attr != "" {
		v, err := el.Attribute(attr)
		if err != nil {
			return ""
		}
		return collapse(v)
	}

	text, err := el.Text()
	if err != nil {
		return ""
	}
	return collapse(text)
}

func isURLField(field string) bool {
	return strings.Contains(field, "url")
}

func isDateOrTimeField(field string) bool {
	return strings.Contains(field, "date") || strings.Contains(field, "time")
}

// extractBookingParagraph scans all elements matching selector within
// container and returns the text of the first one containing a booking
// keyword, or "" if none do.
func extractBookingParagraph(container browser.Element, selector string) string {
	candidates, err := container.FindAll(selector)
	if err != nil {
		return ""
	}
	for _, el := range candidates {
		text, err := el.Text()
		if err != nil {
			continue
		}
		collapsed := collapse(text)
		lower := strings.ToLower(collapsed)
		for _, kw := range bookingKeywords {
			if strings.Contains(lower, kw) {
				return collapsed
			}
		}
	}
	return ""
}
