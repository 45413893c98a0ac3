package discoverer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordicstacks/eventpipeline/internal/aiextractor"
	"github.com/nordicstacks/eventpipeline/internal/model"
	"github.com/nordicstacks/eventpipeline/internal/pipeline"
)

const sampleHTML = `
<html><body>
<article class="event-card">
  <h3 class="title">Sagostund</h3>
  <time class="date" datetime="2026-12-24">24 december</time>
  <span class="time">kl. 10:00</span>
  <span class="location">Huvudbiblioteket</span>
  <p class="desc">En mysig stund med sagor för de allra minsta.</p>
  <span class="target">barn 3-5 år</span>
  <span class="status">Bokningsbar</span>
</article>
<article class="event-card">
  <h3 class="title">Pysselverkstad</h3>
  <time class="date" datetime="2026-12-26">26 december</time>
  <span class="time">kl. 13:00</span>
  <span class="location">Huvudbiblioteket</span>
  <p class="desc">Pyssel för hela familjen.</p>
  <span class="target">familj</span>
  <span class="status">Öppen</span>
</article>
<article class="event-card">
  <h3 class="title">Barnteater</h3>
  <time class="date" datetime="2026-12-28">28 december</time>
  <span class="time">kl. 11:00</span>
  <span class="location">Huvudbiblioteket</span>
  <p class="desc">En teaterföreställning för barn.</p>
  <span class="target">barn</span>
  <span class="status">Fullbokat</span>
</article>
</body></html>
`

func completeBundle() model.SelectorBundle {
	return model.SelectorBundle{
		Domain:            "example.com",
		ContainerSelector: ".event-card",
		ItemSelectors: map[string]model.ItemSelector{
			"event_name":   {Selector: ".title"},
			"date_iso":     {Selector: ".date", Attribute: "datetime"},
			"time":         {Selector: ".time"},
			"location":     {Selector: ".location"},
			"description":  {Selector: ".desc"},
			"target_group": {Selector: ".target"},
			"status":       {Selector: ".status"},
		},
	}
}

func TestDiscover_TrustedBundleAboveThreshold(t *testing.T) {
	extractor := &aiextractor.MockExtractor{
		BundleResponse: aiextractor.BundleResult{Bundle: completeBundle(), Confidence: 0.9},
	}

	result, err := Discover(extractor, "https://example.com/events", sampleHTML)
	require.NoError(t, err)
	assert.True(t, result.Trusted)
	assert.False(t, result.UsedFallback)
	assert.Equal(t, 1.0, result.AdjustedConfidence)
	assert.False(t, result.Bundle.Untrusted)
	assert.Equal(t, 1, extractor.BundleCalls)
}

func TestDiscover_UntrustedBundleInMiddleBand(t *testing.T) {
	partial := completeBundle()
	// drop 4 of 7 required fields so adjusted_confidence lands at 3/7 ≈ 0.43
	delete(partial.ItemSelectors, "description")
	delete(partial.ItemSelectors, "target_group")
	delete(partial.ItemSelectors, "status")
	delete(partial.ItemSelectors, "time")

	extractor := &aiextractor.MockExtractor{
		BundleResponse: aiextractor.BundleResult{Bundle: partial, Confidence: 0.8},
	}

	result, err := Discover(extractor, "https://example.com/events", sampleHTML)
	require.NoError(t, err)
	assert.False(t, result.Trusted)
	assert.False(t, result.UsedFallback)
	assert.True(t, result.Bundle.Untrusted)
	assert.InDelta(t, 3.0/7.0, result.AdjustedConfidence, 0.001)
}

func TestDiscover_FallsBackBelowUntrustedThreshold(t *testing.T) {
	sparse := model.SelectorBundle{
		Domain:            "example.com",
		ContainerSelector: ".event-card",
		ItemSelectors: map[string]model.ItemSelector{
			"event_name": {Selector: ".title"},
		},
	}
	extractor := &aiextractor.MockExtractor{
		BundleResponse: aiextractor.BundleResult{Bundle: sparse, Confidence: 0.5},
		EventsResponse: aiextractor.RawEventResult{
			Events: []aiextractor.RawFields{{"event_name": "Sagostund", "date_iso": "2026-12-24"}},
		},
	}

	result, err := Discover(extractor, "https://example.com/events", sampleHTML)
	require.NoError(t, err)
	assert.True(t, result.UsedFallback)
	assert.Len(t, result.FallbackEvents, 1)
	assert.Equal(t, 1, extractor.EventsCalls)
}

func TestDiscover_ContainerSelectorMismatchFallsBack(t *testing.T) {
	bundle := completeBundle()
	bundle.ContainerSelector = ".does-not-exist"
	extractor := &aiextractor.MockExtractor{
		BundleResponse: aiextractor.BundleResult{Bundle: bundle, Confidence: 0.9},
		EventsResponse: aiextractor.RawEventResult{Events: []aiextractor.RawFields{{"event_name": "x"}}},
	}

	result, err := Discover(extractor, "https://example.com/events", sampleHTML)
	require.NoError(t, err)
	assert.True(t, result.UsedFallback)
	assert.Equal(t, 0.0, result.AdjustedConfidence)
}

func TestDiscover_RetriesOnceOnTransportErrorThenSucceeds(t *testing.T) {
	calls := 0
	extractor := &retryingExtractor{
		proposeFn: func() (aiextractor.BundleResult, error) {
			calls++
			if calls == 1 {
				return aiextractor.BundleResult{}, &pipeline.AITransportError{Err: errors.New("timeout")}
			}
			return aiextractor.BundleResult{Bundle: completeBundle(), Confidence: 0.9}, nil
		},
	}

	result, err := Discover(extractor, "https://example.com/events", sampleHTML)
	require.NoError(t, err)
	assert.True(t, result.Trusted)
	assert.Equal(t, 2, calls)
}

func TestDiscover_NoSamplesFallsBack(t *testing.T) {
	extractor := &aiextractor.MockExtractor{
		EventsResponse: aiextractor.RawEventResult{Events: []aiextractor.RawFields{{"event_name": "x"}}},
	}
	result, err := Discover(extractor, "https://example.com/events", "<html><body><p>nothing here</p></body></html>")
	require.NoError(t, err)
	assert.True(t, result.UsedFallback)
	assert.Equal(t, 1, extractor.EventsCalls)
}

// retryingExtractor lets a test script distinct ProposeBundle behaviour
// across calls, which MockExtractor's fixed-response shape can't express.
type retryingExtractor struct {
	proposeFn func() (aiextractor.BundleResult, error)
}

func (r *retryingExtractor) ProposeBundle(string, []aiextractor.Sample) (aiextractor.BundleResult, error) {
	return r.proposeFn()
}

func (r *retryingExtractor) ExtractEvents(string, string) (aiextractor.RawEventResult, error) {
	return aiextractor.RawEventResult{}, nil
}
