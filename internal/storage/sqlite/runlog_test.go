package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordicstacks/eventpipeline/internal/model"
)

func TestRunLogStore_InsertAndList(t *testing.T) {
	db := openTestDB(t)
	store := NewRunLogStore(db)

	run := model.RunLog{
		ID:          "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Timestamp:   time.Date(2026, time.July, 31, 6, 0, 0, 0, time.UTC),
		Mode:        model.RunModeAuto,
		Status:      model.RunStatusOK,
		EventsFound: 12,
		Failures:    0,
		Warnings:    []string{"selector mismatch on site X"},
	}
	require.NoError(t, store.Insert(run))

	list, err := store.List(10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, run.ID, list[0].ID)
	assert.Equal(t, model.RunStatusOK, list[0].Status)
	assert.Equal(t, []string{"selector mismatch on site X"}, list[0].Warnings)
}

func TestRunLogStore_ClearOlderThan(t *testing.T) {
	db := openTestDB(t)
	store := NewRunLogStore(db)

	require.NoError(t, store.Insert(model.RunLog{
		ID: "old", Timestamp: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		Mode: model.RunModeAuto, Status: model.RunStatusOK,
	}))
	require.NoError(t, store.Insert(model.RunLog{
		ID: "new", Timestamp: time.Date(2026, time.July, 30, 0, 0, 0, 0, time.UTC),
		Mode: model.RunModeAuto, Status: model.RunStatusOK,
	}))

	n, err := store.ClearOlderThan(time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
