package sqlite

import (
	"strings"
	"time"

	"github.com/nordicstacks/eventpipeline/internal/model"
	"github.com/nordicstacks/eventpipeline/internal/pipeline"
)

// RunLogStore records one row per Orchestrator pass, consumed by the
// admin collaborator's history view.
type RunLogStore struct {
	db *DB
}

func NewRunLogStore(db *DB) *RunLogStore { return &RunLogStore{db: db} }

// Insert appends one RunLog entry.
func (s *RunLogStore) Insert(run model.RunLog) error {
	_, err := s.db.Conn.Exec(
		"INSERT INTO scraping_logs (run_id, timestamp, mode, status, events_found, failures, warnings) VALUES (?, ?, ?, ?, ?, ?, ?)",
		run.ID, run.Timestamp, string(run.Mode), string(run.Status), run.EventsFound, run.Failures, strings.Join(run.Warnings, "\n"),
	)
	if err != nil {
		return &pipeline.StoreBusy{Op: "runlog_insert", Err: err}
	}
	return nil
}

// List returns the most recent limit run entries, newest first.
func (s *RunLogStore) List(limit int) ([]model.RunLog, error) {
	rows, err := s.db.Conn.Query(
		"SELECT run_id, timestamp, mode, status, events_found, failures, warnings FROM scraping_logs ORDER BY timestamp DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, &pipeline.StoreBusy{Op: "runlog_list", Err: err}
	}
	defer rows.Close()

	var out []model.RunLog
	for rows.Next() {
		var run model.RunLog
		var mode, status, warnings string
		var ts time.Time
		if err := rows.Scan(&run.ID, &ts, &mode, &status, &run.EventsFound, &run.Failures, &warnings); err != nil {
			return nil, err
		}
		run.Timestamp = ts
		run.Mode = model.RunMode(mode)
		run.Status = model.RunStatus(status)
		if warnings != "" {
			run.Warnings = strings.Split(warnings, "\n")
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// ClearOlderThan deletes run log entries older than cutoff.
func (s *RunLogStore) ClearOlderThan(cutoff time.Time) (int64, error) {
	res, err := s.db.Conn.Exec("DELETE FROM scraping_logs WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, &pipeline.StoreBusy{Op: "runlog_clear", Err: err}
	}
	return res.RowsAffected()
}
