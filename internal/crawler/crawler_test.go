package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordicstacks/eventpipeline/internal/aiextractor"
	"github.com/nordicstacks/eventpipeline/internal/browser"
	"github.com/nordicstacks/eventpipeline/internal/model"
	"github.com/nordicstacks/eventpipeline/internal/siteadapter"
)

// fakeAdapter returns a fixed Result regardless of the URL it is asked to
// run, standing in for DayStepAdapter/ProtectedFetchAdapter in tests that
// only care about how the Crawler normalizes an adapter's raw output.
type fakeAdapter struct {
	result siteadapter.Result
}

func (a *fakeAdapter) Matches(string) bool { return true }

func (a *fakeAdapter) Run(context.Context, string) (siteadapter.Result, error) {
	return a.result, nil
}

type fakeSelectorStore struct {
	bundle model.SelectorBundle
	hit    bool
	put    []model.SelectorBundle
}

func (s *fakeSelectorStore) Get(string) (model.SelectorBundle, bool, error) {
	return s.bundle, s.hit, nil
}

func (s *fakeSelectorStore) Put(bundle model.SelectorBundle) error {
	s.put = append(s.put, bundle)
	return nil
}

func fixedNow() time.Time {
	return time.Date(2026, time.August, 1, 9, 0, 0, 0, time.UTC)
}

func containerBundle() model.SelectorBundle {
	return model.SelectorBundle{
		Domain:            "example.com",
		ContainerSelector: ".event-card",
		ItemSelectors: map[string]model.ItemSelector{
			"event_name": {Selector: ".title"},
			"date_iso":   {Selector: "time", Attribute: "datetime"},
			"time":       {Selector: ".time"},
			"location":   {Selector: ".location"},
			"event_url":  {Selector: "a"},
		},
	}
}

func cardElement(name, date, timeText, loc, href string) *browser.FakeElement {
	return &browser.FakeElement{
		Children: map[string]browser.Element{
			".title":   &browser.FakeElement{TextValue: name},
			"time":     &browser.FakeElement{TextValue: date, Attrs: map[string]string{"datetime": date}},
			".time":    &browser.FakeElement{TextValue: timeText},
			".location": &browser.FakeElement{TextValue: loc},
			"a":        &browser.FakeElement{Attrs: map[string]string{"href": href}},
		},
	}
}

func TestCrawl_CachedBundleHitProducesNormalizedEvents(t *testing.T) {
	driver := browser.NewFakeDriver()
	driver.Pages["https://example.com/events"] = &browser.FakeSession{
		Elements: map[string][]browser.Element{
			".event-card": {
				cardElement("Sagostund", "2026-08-05", "10:00", "Huvudbiblioteket", "/events/sagostund"),
			},
		},
	}

	store := &fakeSelectorStore{bundle: containerBundle(), hit: true}
	c := &Crawler{
		Driver:    driver,
		Selectors: store,
		Now:       fixedNow,
	}

	result := c.Crawl(context.Background(), "https://example.com/events")
	require.Empty(t, result.Warnings)
	require.Len(t, result.Events, 1)

	ev := result.Events[0]
	assert.Equal(t, "Sagostund", ev.EventName)
	assert.Equal(t, "2026-08-05", ev.DateISO)
	assert.Equal(t, model.DateNA, ev.EndDateISO)
	assert.Equal(t, "10:00", ev.Time)
	assert.Equal(t, "https://example.com/events/sagostund", ev.EventURL)
}

func TestCrawl_DropsEventsOutsideHorizon(t *testing.T) {
	driver := browser.NewFakeDriver()
	driver.Pages["https://example.com/events"] = &browser.FakeSession{
		Elements: map[string][]browser.Element{
			".event-card": {
				cardElement("Too soon", "2026-07-01", "10:00", "Huvudbiblioteket", "/a"),
				cardElement("Too far", "2026-12-01", "10:00", "Huvudbiblioteket", "/b"),
				cardElement("Just right", "2026-08-10", "10:00", "Huvudbiblioteket", "/c"),
			},
		},
	}

	store := &fakeSelectorStore{bundle: containerBundle(), hit: true}
	c := &Crawler{Driver: driver, Selectors: store, Now: fixedNow}

	result := c.Crawl(context.Background(), "https://example.com/events")
	require.Len(t, result.Events, 1)
	assert.Equal(t, "Just right", result.Events[0].EventName)
}

func TestCrawl_SelectorMissFallsToDiscovererUntrustedBand(t *testing.T) {
	driver := browser.NewFakeDriver()
	html := `<html><body><article class="event-card">
  <h3 class="title">Pysselverkstad</h3>
  <time class="date" datetime="2026-08-10">10 augusti</time>
  <span class="time">13:00</span>
  <span class="location">Huvudbiblioteket</span>
  <a href="/events/pyssel">Läs mer</a>
</article></body></html>`
	driver.Pages["https://example.com/events"] = &browser.FakeSession{
		HTMLSteps: []string{html},
		Elements: map[string][]browser.Element{
			".event-card": {
				cardElement("Pysselverkstad", "2026-08-10", "13:00", "Huvudbiblioteket", "/events/pyssel"),
			},
		},
	}

	store := &fakeSelectorStore{hit: false}
	extractor := &aiextractor.MockExtractor{
		BundleResponse: aiextractor.BundleResult{Bundle: containerBundle(), Confidence: 0.9},
	}
	c := &Crawler{Driver: driver, Selectors: store, Extractor: extractor, Now: fixedNow}

	result := c.Crawl(context.Background(), "https://example.com/events")
	require.Len(t, result.Events, 1)
	assert.Equal(t, "Pysselverkstad", result.Events[0].EventName)
	// adjusted_confidence lands in the untrusted band (4/7 required fields
	// present in this minimal bundle), so the bundle is used for this run
	// only and never reaches the store.
	assert.Empty(t, store.put)
}

func TestCrawl_ConsolidatesDuplicatesWithinRun(t *testing.T) {
	driver := browser.NewFakeDriver()
	driver.Pages["https://example.com/events"] = &browser.FakeSession{
		Elements: map[string][]browser.Element{
			".event-card": {
				cardElement("Sagostund", "2026-08-05", "10:00", "Huvudbiblioteket", "/events/sagostund"),
				cardElement("Sagostund", "2026-08-05", "14:00", "Huvudbiblioteket", "/events/sagostund-2"),
			},
		},
	}

	store := &fakeSelectorStore{bundle: containerBundle(), hit: true}
	c := &Crawler{Driver: driver, Selectors: store, Now: fixedNow}

	result := c.Crawl(context.Background(), "https://example.com/events")
	require.Len(t, result.Events, 1)
	assert.Equal(t, "10:00, 14:00", result.Events[0].Time)
	assert.Equal(t, "https://example.com/events/sagostund", result.Events[0].EventURL)
}

func TestCrawl_AdapterEndDateISOSurvivesNormalization(t *testing.T) {
	adapter := &fakeAdapter{
		result: siteadapter.Result{
			Events: []siteadapter.RawEvent{
				{
					"event_name":       "Julmarknad",
					"date_iso":         "2026-08-05",
					"end_date_iso":     "2026-08-09",
					"time":             "10:00",
					"location":         "Stortorget",
					"target_group_raw": "familjer",
					"event_url":        "/events/julmarknad",
				},
			},
		},
	}

	registry := siteadapter.NewRegistry(adapter)
	c := &Crawler{Adapters: registry, Now: fixedNow}

	result := c.Crawl(context.Background(), "https://example.com/events")
	require.Len(t, result.Events, 1)

	ev := result.Events[0]
	assert.Equal(t, "2026-08-05", ev.DateISO)
	assert.Equal(t, "2026-08-09", ev.EndDateISO, "adapter-reported end_date_iso must not be discarded")
	assert.Equal(t, "familjer", ev.TargetGroupRaw)
	assert.Equal(t, model.TargetGroupFamilies, ev.TargetGroup)
}

func TestCrawl_OpenFailureReturnsWarningNoEvents(t *testing.T) {
	driver := browser.NewFakeDriver()
	store := &fakeSelectorStore{hit: false}
	c := &Crawler{Driver: driver, Selectors: store, Now: fixedNow}

	result := c.Crawl(context.Background(), "https://example.com/missing")
	assert.Empty(t, result.Events)
	assert.Len(t, result.Warnings, 1)
}
