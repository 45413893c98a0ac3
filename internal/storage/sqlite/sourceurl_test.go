package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceURLStore_AddListEnableDisable(t *testing.T) {
	db := openTestDB(t)
	store := NewSourceURLStore(db)

	id, err := store.Add("https://example.com/events", "Example")
	require.NoError(t, err)

	all, err := store.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Enabled)

	require.NoError(t, store.SetEnabled(id, false))
	enabled, err := store.ListEnabled()
	require.NoError(t, err)
	assert.Empty(t, enabled)

	require.NoError(t, store.Remove(id))
	all, err = store.ListAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSourceURLStore_SeedDefaultsOnlyWhenEmpty(t *testing.T) {
	db := openTestDB(t)
	store := NewSourceURLStore(db)

	defaults, err := DefaultSources()
	require.NoError(t, err)

	require.NoError(t, store.SeedDefaults())
	all, err := store.ListAll()
	require.NoError(t, err)
	assert.Len(t, all, len(defaults))

	require.NoError(t, store.SeedDefaults())
	all, err = store.ListAll()
	require.NoError(t, err)
	assert.Len(t, all, len(defaults))
}
