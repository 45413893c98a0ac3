package paginator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordicstacks/eventpipeline/internal/browser"
)

func TestPaginate_LoadMoreStrategy(t *testing.T) {
	clicks := 0
	session := &browser.FakeSession{
		Elements: map[string][]browser.Element{
			"Load more": {&browser.FakeElement{TextValue: "Load more"}},
		},
	}
	session.ClickFunc = func(selectorOrText string) bool {
		clicks++
		if clicks >= 3 {
			delete(session.Elements, "Load more")
		}
		return true
	}
	result := Paginate(session, Options{MaxClicks: 10})
	assert.Equal(t, StrategyLoadMore, result.Strategy)
	assert.Equal(t, 3, clicks)
}

func TestPaginate_URLIncrementStrategy(t *testing.T) {
	session := &browser.FakeSession{Elements: map[string][]browser.Element{}}
	result := Paginate(session, Options{MaxClicks: 3, URL: "https://example.com/events?page=1"})
	require.Equal(t, StrategyURLIncrement, result.Strategy)
	assert.Equal(t, []string{
		"https://example.com/events?page=2",
		"https://example.com/events?page=3",
		"https://example.com/events?page=4",
	}, result.ExtraPageURLs)
}

func TestPaginate_NoStrategyFound(t *testing.T) {
	session := &browser.FakeSession{Elements: map[string][]browser.Element{}}
	result := Paginate(session, Options{MaxClicks: 3})
	assert.Equal(t, StrategyNone, result.Strategy)
	assert.Empty(t, result.ExtraPageURLs)
}

func TestPaginate_IdempotentPerSession(t *testing.T) {
	session := &browser.FakeSession{Elements: map[string][]browser.Element{}}
	first := Paginate(session, Options{MaxClicks: 3, URL: "https://example.com/events?page=1"})
	second := Paginate(session, Options{MaxClicks: 3, URL: "https://example.com/events?page=1"})
	assert.Equal(t, first, second)
}
