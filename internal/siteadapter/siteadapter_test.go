package siteadapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	host string
}

func (s *stubAdapter) Matches(rawURL string) bool { return hostMatches(rawURL, s.host) }
func (s *stubAdapter) Run(context.Context, string) (Result, error) {
	return Result{Events: []RawEvent{{"event_name": s.host}}}, nil
}

func TestRegistry_ResolvesFirstMatch(t *testing.T) {
	a := &stubAdapter{host: "library.example.com"}
	b := &stubAdapter{host: "example.com"}
	registry := NewRegistry(a, b)

	resolved, ok := registry.Resolve("https://library.example.com/events")
	require.True(t, ok)
	assert.Same(t, a, resolved)
}

func TestRegistry_FallsThroughWhenNoMatch(t *testing.T) {
	registry := NewRegistry(&stubAdapter{host: "library.example.com"})
	_, ok := registry.Resolve("https://unrelated.org/events")
	assert.False(t, ok)
}

func TestHostMatches_IgnoresWWWAndSubdomains(t *testing.T) {
	assert.True(t, hostMatches("https://www.skansen.se/kalender", "skansen.se"))
	assert.True(t, hostMatches("https://kalender.skansen.se", "skansen.se"))
	assert.False(t, hostMatches("https://notskansen.se", "skansen.se"))
}

func TestSplitRangeText_SplitsOnDashFamily(t *testing.T) {
	start, end, hasEnd := splitRangeText("24 december 2025 - 26 december 2025")
	assert.True(t, hasEnd)
	assert.Equal(t, "24 december 2025", start)
	assert.Equal(t, "26 december 2025", end)

	start, _, hasEnd = splitRangeText("24 december 2025")
	assert.False(t, hasEnd)
	assert.Equal(t, "24 december 2025", start)
}
