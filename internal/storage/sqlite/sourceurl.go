package sqlite

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/nordicstacks/eventpipeline/configs"
	"github.com/nordicstacks/eventpipeline/internal/model"
	"github.com/nordicstacks/eventpipeline/internal/pipeline"
)

// SourceURLStore is the CRUD surface over scraping_urls consumed by the
// admin collaborator and enumerated by the Orchestrator at the start of
// each run.
type SourceURLStore struct {
	db *DB
}

func NewSourceURLStore(db *DB) *SourceURLStore { return &SourceURLStore{db: db} }

// ListEnabled returns every SourceURL with enabled = 1, the snapshot the
// Orchestrator fans workers out over.
func (s *SourceURLStore) ListEnabled() ([]model.SourceURL, error) {
	return s.list("WHERE enabled = 1")
}

// ListAll returns every configured SourceURL regardless of status.
func (s *SourceURLStore) ListAll() ([]model.SourceURL, error) {
	return s.list("")
}

func (s *SourceURLStore) list(where string) ([]model.SourceURL, error) {
	rows, err := s.db.Conn.Query("SELECT id, url, name, enabled FROM scraping_urls " + where + " ORDER BY name")
	if err != nil {
		return nil, &pipeline.StoreBusy{Op: "source_list", Err: err}
	}
	defer rows.Close()

	var out []model.SourceURL
	for rows.Next() {
		var src model.SourceURL
		var enabled int
		if err := rows.Scan(&src.ID, &src.URL, &src.Name, &enabled); err != nil {
			return nil, err
		}
		src.Enabled = enabled != 0
		out = append(out, src)
	}
	return out, rows.Err()
}

// Add inserts a new source URL, defaulting to enabled.
func (s *SourceURLStore) Add(url, name string) (int64, error) {
	res, err := s.db.Conn.Exec("INSERT INTO scraping_urls (url, name, enabled) VALUES (?, ?, 1)", url, name)
	if err != nil {
		return 0, &pipeline.StoreBusy{Op: "source_add", Err: err}
	}
	return res.LastInsertId()
}

// SetEnabled flips the enabled flag for one source.
func (s *SourceURLStore) SetEnabled(id int64, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	_, err := s.db.Conn.Exec("UPDATE scraping_urls SET enabled = ? WHERE id = ?", v, id)
	if err != nil {
		return &pipeline.StoreBusy{Op: "source_set_enabled", Err: err}
	}
	return nil
}

// Remove deletes a source URL by id.
func (s *SourceURLStore) Remove(id int64) error {
	_, err := s.db.Conn.Exec("DELETE FROM scraping_urls WHERE id = ?", id)
	if err != nil {
		return &pipeline.StoreBusy{Op: "source_remove", Err: err}
	}
	return nil
}

type sourcesSeedFile struct {
	Sources []struct {
		Name string `yaml:"name"`
		URL  string `yaml:"url"`
	} `yaml:"sources"`
}

// DefaultSources parses configs/sources.yaml, the six illustrative
// sources shipped with the binary.
func DefaultSources() ([]model.SourceURL, error) {
	var seed sourcesSeedFile
	if err := yaml.Unmarshal(configs.SourcesYAML, &seed); err != nil {
		return nil, fmt.Errorf("parse embedded sources.yaml: %w", err)
	}
	out := make([]model.SourceURL, len(seed.Sources))
	for i, src := range seed.Sources {
		out[i] = model.SourceURL{URL: src.URL, Name: src.Name, Enabled: true}
	}
	return out, nil
}

// SeedDefaults inserts DefaultSources when the table is empty, matching
// the first-run seeding behavior of the original deployment.
func (s *SourceURLStore) SeedDefaults() error {
	var count int
	if err := s.db.Conn.QueryRow("SELECT COUNT(*) FROM scraping_urls").Scan(&count); err != nil {
		return &pipeline.StoreBusy{Op: "source_seed_count", Err: err}
	}
	if count > 0 {
		return nil
	}
	defaults, err := DefaultSources()
	if err != nil {
		return err
	}
	for _, src := range defaults {
		if _, err := s.Add(src.URL, src.Name); err != nil {
			return err
		}
	}
	return nil
}
