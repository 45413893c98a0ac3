package sqlite

import (
	"github.com/nordicstacks/eventpipeline/internal/pipeline"
)

// SettingsStore is the key-value store backing the schedule and
// auto-delete options the admin collaborator exposes.
type SettingsStore struct {
	db *DB
}

func NewSettingsStore(db *DB) *SettingsStore { return &SettingsStore{db: db} }

// defaultSettings mirrors the original deployment's first-run seed.
var defaultSettings = map[string]string{
	"schedule_frequency":    "weekly",
	"schedule_day":          "monday",
	"schedule_time":         "06:00",
	"date_range_days":       "45",
	"auto_delete_enabled":   "false",
	"auto_delete_days":      "90",
	"email_enabled":         "false",
	"email_address":         "",
	"notify_on_complete":    "true",
	"notify_on_failure":     "true",
	"notify_weekly_summary": "false",
}

// SeedDefaults inserts defaultSettings when the table is empty.
func (s *SettingsStore) SeedDefaults() error {
	var count int
	if err := s.db.Conn.QueryRow("SELECT COUNT(*) FROM settings").Scan(&count); err != nil {
		return &pipeline.StoreBusy{Op: "settings_seed_count", Err: err}
	}
	if count > 0 {
		return nil
	}
	for k, v := range defaultSettings {
		if err := s.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Get returns one setting value, or fallback if unset.
func (s *SettingsStore) Get(key, fallback string) (string, error) {
	var value string
	err := s.db.Conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		return fallback, nil
	}
	return value, nil
}

// GetAll returns every setting as a map.
func (s *SettingsStore) GetAll() (map[string]string, error) {
	rows, err := s.db.Conn.Query("SELECT key, value FROM settings")
	if err != nil {
		return nil, &pipeline.StoreBusy{Op: "settings_get_all", Err: err}
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Set upserts one setting value.
func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Conn.Exec("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return &pipeline.StoreBusy{Op: "settings_set", Err: err}
	}
	return nil
}
