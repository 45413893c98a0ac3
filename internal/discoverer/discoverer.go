// Package discoverer handles the case where no SelectorBundle is cached
// for a host: it asks the AIExtractor to infer one from a handful of
// sample containers, validates the proposal against the real HTML, and
// decides whether the caller may cache it, use it for this run only, or
// must fall back to one-shot AI event extraction.
package discoverer

import (
	"errors"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nordicstacks/eventpipeline/internal/aiextractor"
	"github.com/nordicstacks/eventpipeline/internal/model"
	"github.com/nordicstacks/eventpipeline/internal/pipeline"
)

const (
	minSamples = 3
	maxSamples = 5

	trustedThreshold   = 0.6
	untrustedThreshold = 0.3
)

// requiredFields is the denominator of adjusted_confidence.
var requiredFields = []string{
	"event_name", "date_iso", "time", "location", "description", "target_group", "status",
}

var containerClassRe = regexp.MustCompile(`(?i)event|calendar|listing|card|item`)

// Result is the outcome of one Discover call. Exactly one of Bundle or
// FallbackEvents is meaningful, selected by UsedFallback.
type Result struct {
	Bundle             model.SelectorBundle
	AdjustedConfidence float64
	Trusted            bool // caller may cache Bundle
	UsedFallback       bool
	FallbackEvents     []aiextractor.RawFields
}

// Discover runs sample extraction, the AI correlation-mode call,
// structural validation against the real HTML, and the trusted/untrusted/
// fallback decision based on the resulting adjusted confidence.
func Discover(extractor aiextractor.Extractor, sourceURL, html string) (Result, error) {
	samples, sampleErr := findSamples(html)
	if sampleErr != nil || len(samples) == 0 {
		return fallback(extractor, sourceURL, html, 0)
	}

	bundleResult, err := proposeBundleWithRetry(extractor, html, samples)
	if err != nil {
		return fallback(extractor, sourceURL, html, 0)
	}

	adjusted, ok := structuralValidate(bundleResult.Bundle, html)
	if !ok {
		return fallback(extractor, sourceURL, html, adjusted)
	}

	switch {
	case adjusted >= trustedThreshold:
		return Result{Bundle: bundleResult.Bundle, AdjustedConfidence: adjusted, Trusted: true}, nil
	case adjusted >= untrustedThreshold:
		untrusted := bundleResult.Bundle
		untrusted.Untrusted = true
		return Result{Bundle: untrusted, AdjustedConfidence: adjusted, Trusted: false}, nil
	default:
		return fallback(extractor, sourceURL, html, adjusted)
	}
}

func fallback(extractor aiextractor.Extractor, sourceURL, html string, adjusted float64) (Result, error) {
	events, err := extractEventsWithRetry(extractor, html, sourceURL)
	if err != nil {
		return Result{}, err
	}
	return Result{UsedFallback: true, FallbackEvents: events, AdjustedConfidence: adjusted}, nil
}

// findSamples heuristically locates 3-5 candidate event containers:
// <article> elements, and elements whose class attribute matches
// event|calendar|listing|card|item case-insensitively.
func findSamples(html string) ([]aiextractor.Sample, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var samples []aiextractor.Sample
	seen := map[string]bool{}

	add := func(s *goquery.Selection) {
		if len(samples) >= maxSamples {
			return
		}
		outer, err := goquery.OuterHtml(s)
		if err != nil || outer == "" || seen[outer] {
			return
		}
		seen[outer] = true
		samples = append(samples, aiextractor.Sample{
			HTML: outer,
			Text: collapseWhitespace(s.Text()),
		})
	}

	doc.Find("article").Each(func(_ int, s *goquery.Selection) { add(s) })

	if len(samples) < maxSamples {
		doc.Find("[class]").Each(func(_ int, s *goquery.Selection) {
			if len(samples) >= maxSamples {
				return
			}
			cls, _ := s.Attr("class")
			if containerClassRe.MatchString(cls) {
				add(s)
			}
		})
	}

	return samples, nil
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// structuralValidate parses html again and checks, for the first 3
// containers matched by bundle.ContainerSelector, whether each field
// selector in requiredFields resolves to non-empty text in at least one
// of them. It returns adjusted_confidence = passed_fields/required_fields
// and false if the container selector itself resolves to zero elements.
func structuralValidate(bundle model.SelectorBundle, html string) (float64, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil || bundle.ContainerSelector == "" {
		return 0, false
	}

	containers := doc.Find(bundle.ContainerSelector)
	if containers.Length() == 0 {
		return 0, false
	}

	sampleCount := containers.Length()
	if sampleCount > 3 {
		sampleCount = 3
	}
	checked := containers.Slice(0, sampleCount)

	passed := 0
	for _, field := range requiredFields {
		sel, ok := bundle.ItemSelectors[field]
		if !ok || sel.Selector == "" {
			continue
		}
		if fieldPasses(checked, sel) {
			passed++
		}
	}

	return float64(passed) / float64(len(requiredFields)), true
}

func fieldPasses(containers *goquery.Selection, sel model.ItemSelector) bool {
	found := false
	containers.Each(func(_ int, container *goquery.Selection) {
		if found {
			return
		}
		target := container.Find(sel.Selector)
		if target.Length() == 0 {
			return
		}
		if sel.Attribute != "" {
			if v, ok := target.First().Attr(sel.Attribute); ok && strings.TrimSpace(v) != "" {
				found = true
			}
			return
		}
		if strings.TrimSpace(target.First().Text()) != "" {
			found = true
		}
	})
	return found
}

// proposeBundleWithRetry serializes calls to the AI capability within
// this worker, retrying once on a transport error.
func proposeBundleWithRetry(extractor aiextractor.Extractor, html string, samples []aiextractor.Sample) (aiextractor.BundleResult, error) {
	result, err := extractor.ProposeBundle(html, samples)
	if err == nil {
		return result, nil
	}
	if !isTransport(err) {
		return aiextractor.BundleResult{}, err
	}
	return extractor.ProposeBundle(html, samples)
}

func extractEventsWithRetry(extractor aiextractor.Extractor, html, sourceURL string) ([]aiextractor.RawFields, error) {
	result, err := extractor.ExtractEvents(html, sourceURL)
	if err != nil && isTransport(err) {
		result, err = extractor.ExtractEvents(html, sourceURL)
	}
	if err != nil {
		return nil, err
	}
	return result.Events, nil
}

func isTransport(err error) bool {
	var transportErr *pipeline.AITransportError
	return errors.As(err, &transportErr)
}
