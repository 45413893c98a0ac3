package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsStore_SeedAndGetSet(t *testing.T) {
	db := openTestDB(t)
	store := NewSettingsStore(db)

	require.NoError(t, store.SeedDefaults())

	v, err := store.Get("schedule_frequency", "")
	require.NoError(t, err)
	assert.Equal(t, "weekly", v)

	require.NoError(t, store.Set("schedule_frequency", "daily"))
	v, err = store.Get("schedule_frequency", "")
	require.NoError(t, err)
	assert.Equal(t, "daily", v)

	all, err := store.GetAll()
	require.NoError(t, err)
	assert.Equal(t, "90", all["auto_delete_days"])
}

func TestSettingsStore_GetFallback(t *testing.T) {
	db := openTestDB(t)
	store := NewSettingsStore(db)

	v, err := store.Get("nonexistent", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)
}
