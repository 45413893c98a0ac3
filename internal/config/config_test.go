package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("EVENTPIPELINE_AI_API_KEY", "test-key")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, 30, cfg.HorizonDays)
	assert.Equal(t, 90, cfg.RetentionDays)
	assert.Equal(t, "eventpipeline.db", cfg.DBPath)
	assert.Equal(t, "daily", cfg.Schedule.Frequency)
}

func TestLoad_RejectsUnknownOption(t *testing.T) {
	t.Setenv("EVENTPIPELINE_AI_API_KEY", "test-key")
	t.Setenv("EVENTPIPELINE_BOGUS_OPTION", "1")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EVENTPIPELINE_BOGUS_OPTION")
}

func TestLoad_MissingAPIKey(t *testing.T) {
	os.Unsetenv("EVENTPIPELINE_AI_API_KEY")
	os.Unsetenv("OPENAI_API_KEY")
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_InvalidScheduleFrequency(t *testing.T) {
	t.Setenv("EVENTPIPELINE_AI_API_KEY", "test-key")
	t.Setenv("EVENTPIPELINE_SCHEDULE_FREQUENCY", "hourly")
	_, err := Load()
	require.Error(t, err)
}
