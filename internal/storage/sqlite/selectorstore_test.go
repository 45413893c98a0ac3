package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordicstacks/eventpipeline/internal/model"
)

func TestSelectorStore_PutAndGet(t *testing.T) {
	db := openTestDB(t)
	store := NewSelectorStore(db)

	bundle := model.SelectorBundle{
		Domain:            "example.com",
		URLPattern:        "/events/*",
		ContainerSelector: ".event-card",
		ItemSelectors: map[string]model.ItemSelector{
			"event_name": {Selector: "h2"},
			"event_url":  {Selector: "a", Attribute: "href"},
		},
	}
	require.NoError(t, store.Put(bundle))

	got, ok, err := store.Get("https://example.com/events/123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ".event-card", got.ContainerSelector)
	assert.Equal(t, "h2", got.ItemSelectors["event_name"].Selector)
}

func TestSelectorStore_LongestPatternWins(t *testing.T) {
	db := openTestDB(t)
	store := NewSelectorStore(db)

	require.NoError(t, store.Put(model.SelectorBundle{
		Domain: "example.com", URLPattern: "*", ContainerSelector: ".generic",
		ItemSelectors: map[string]model.ItemSelector{},
	}))
	require.NoError(t, store.Put(model.SelectorBundle{
		Domain: "example.com", URLPattern: "/events/*", ContainerSelector: ".specific",
		ItemSelectors: map[string]model.ItemSelector{},
	}))

	got, ok, err := store.Get("https://example.com/events/123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ".specific", got.ContainerSelector)

	got, ok, err = store.Get("https://example.com/other")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ".generic", got.ContainerSelector)
}

func TestSelectorStore_GetReturnsFalseWhenMissing(t *testing.T) {
	db := openTestDB(t)
	store := NewSelectorStore(db)

	_, ok, err := store.Get("https://unknown.example.com/events")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelectorStore_Delete(t *testing.T) {
	db := openTestDB(t)
	store := NewSelectorStore(db)

	bundle := model.SelectorBundle{Domain: "example.com", URLPattern: "/events/*", ItemSelectors: map[string]model.ItemSelector{}}
	require.NoError(t, store.Put(bundle))
	require.NoError(t, store.Delete("example.com", "/events/*"))

	_, ok, err := store.Get("https://example.com/events/1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelectorStore_ListAll(t *testing.T) {
	db := openTestDB(t)
	store := NewSelectorStore(db)

	require.NoError(t, store.Put(model.SelectorBundle{Domain: "a.com", URLPattern: "/x", ItemSelectors: map[string]model.ItemSelector{}}))
	require.NoError(t, store.Put(model.SelectorBundle{Domain: "b.com", URLPattern: "/y", ItemSelectors: map[string]model.ItemSelector{}}))

	all, err := store.ListAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
