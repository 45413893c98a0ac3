package sqlite

import (
	"encoding/json"
	"net/url"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/nordicstacks/eventpipeline/internal/model"
	"github.com/nordicstacks/eventpipeline/internal/pipeline"
)

// SelectorStore is the persistent cache of per-site CSS selector
// bundles. Writes serialize behind writeMu; reads go straight to
// SQLite, which already gives consistent-snapshot reads within one
// query under WAL mode.
type SelectorStore struct {
	db      *DB
	writeMu sync.Mutex
}

func NewSelectorStore(db *DB) *SelectorStore { return &SelectorStore{db: db} }

type selectorRow struct {
	domain     string
	urlPattern string
	bundle     model.SelectorBundle
}

// Get returns the bundle whose (domain, url_pattern) has the longest
// pattern matching url's path, falling back to a domain-only entry. It
// returns (bundle, false) when nothing matches.
func (s *SelectorStore) Get(rawURL string) (model.SelectorBundle, bool, error) {
	domain, path, err := splitDomainPath(rawURL)
	if err != nil {
		return model.SelectorBundle{}, false, err
	}

	rows, err := s.db.Conn.Query(
		"SELECT domain, url_pattern, container_selector, item_selectors_json, last_updated FROM selector_configs WHERE domain = ?",
		domain,
	)
	if err != nil {
		return model.SelectorBundle{}, false, &pipeline.StoreBusy{Op: "selector_get", Err: err}
	}
	defer rows.Close()

	var candidates []selectorRow
	for rows.Next() {
		var r selectorRow
		var itemsJSON string
		var lastUpdated time.Time
		if err := rows.Scan(&r.domain, &r.urlPattern, &r.bundle.ContainerSelector, &itemsJSON, &lastUpdated); err != nil {
			return model.SelectorBundle{}, false, &pipeline.StoreBusy{Op: "selector_get_scan", Err: err}
		}
		items, err := decodeItemSelectors(itemsJSON)
		if err != nil {
			continue
		}
		r.bundle.Domain = r.domain
		r.bundle.URLPattern = r.urlPattern
		r.bundle.ItemSelectors = items
		r.bundle.LastUpdated = lastUpdated
		candidates = append(candidates, r)
	}
	if err := rows.Err(); err != nil {
		return model.SelectorBundle{}, false, &pipeline.StoreBusy{Op: "selector_get_rows", Err: err}
	}

	best, ok := longestMatch(candidates, path)
	if !ok {
		return model.SelectorBundle{}, false, nil
	}
	return best.bundle, true, nil
}

// longestMatch picks the candidate whose url_pattern matches path with the
// longest literal (non-wildcard) length; "" or "*" patterns match any path
// and are considered the domain-only fallback.
func longestMatch(candidates []selectorRow, path string) (selectorRow, bool) {
	var best selectorRow
	bestLen := -1
	found := false

	for _, c := range candidates {
		if !globMatch(c.urlPattern, path) {
			continue
		}
		l := literalLen(c.urlPattern)
		if l > bestLen {
			best = c
			bestLen = l
			found = true
		}
	}
	return best, found
}

// globMatch implements "*" matches any substring (including empty); ""
// also matches anything (the domain-only fallback). The whole path must
// match, not just a portion of it.
func globMatch(pattern, candidate string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	parts := strings.Split(pattern, "*")
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = regexp.QuoteMeta(p)
	}
	re := regexp.MustCompile("^" + strings.Join(quoted, ".*") + "$")
	return re.MatchString(candidate)
}

func literalLen(pattern string) int {
	return len(strings.ReplaceAll(pattern, "*", ""))
}

// Put upserts a bundle keyed by (domain, url_pattern).
func (s *SelectorStore) Put(bundle model.SelectorBundle) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	itemsJSON, err := json.Marshal(bundle.ItemSelectors)
	if err != nil {
		return err
	}

	_, err = s.db.Conn.Exec(`
		INSERT INTO selector_configs (domain, url_pattern, container_selector, item_selectors_json, last_updated)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(domain, url_pattern) DO UPDATE SET
			container_selector = excluded.container_selector,
			item_selectors_json = excluded.item_selectors_json,
			last_updated = CURRENT_TIMESTAMP
	`, bundle.Domain, bundle.URLPattern, bundle.ContainerSelector, string(itemsJSON))
	if err != nil {
		return &pipeline.StoreBusy{Op: "selector_put", Err: err}
	}
	return nil
}

// ListAll returns every stored bundle, for the admin collaborator.
func (s *SelectorStore) ListAll() ([]model.SelectorBundle, error) {
	rows, err := s.db.Conn.Query("SELECT domain, url_pattern, container_selector, item_selectors_json, last_updated FROM selector_configs ORDER BY domain, url_pattern")
	if err != nil {
		return nil, &pipeline.StoreBusy{Op: "selector_list", Err: err}
	}
	defer rows.Close()

	var out []model.SelectorBundle
	for rows.Next() {
		var b model.SelectorBundle
		var itemsJSON string
		if err := rows.Scan(&b.Domain, &b.URLPattern, &b.ContainerSelector, &itemsJSON, &b.LastUpdated); err != nil {
			return nil, &pipeline.StoreBusy{Op: "selector_list_scan", Err: err}
		}
		items, err := decodeItemSelectors(itemsJSON)
		if err != nil {
			continue
		}
		b.ItemSelectors = items
		out = append(out, b)
	}
	return out, rows.Err()
}

// Delete removes the bundle for a given (domain, url_pattern).
func (s *SelectorStore) Delete(domain, urlPattern string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.Conn.Exec("DELETE FROM selector_configs WHERE domain = ? AND url_pattern = ?", domain, urlPattern)
	if err != nil {
		return &pipeline.StoreBusy{Op: "selector_delete", Err: err}
	}
	return nil
}

func decodeItemSelectors(raw string) (map[string]model.ItemSelector, error) {
	if raw == "" {
		return map[string]model.ItemSelector{}, nil
	}
	var items map[string]model.ItemSelector
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func splitDomainPath(rawURL string) (domain, path2 string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", err
	}
	domain = strings.TrimPrefix(u.Hostname(), "www.")
	path2 = path.Clean(u.Path)
	if path2 == "." {
		path2 = "/"
	}
	return domain, path2, nil
}
