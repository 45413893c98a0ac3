// Package paginator implements the load-more/next/URL-increment
// pagination strategies. Exactly one strategy applies per session: the
// first one whose precondition is met.
package paginator

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/nordicstacks/eventpipeline/internal/browser"
)

// DefaultMaxClicks is the default iteration cap; adapters may override
// it up to 40 for library-style listings.
const DefaultMaxClicks = 10

// loadMoreLabels is the priority-ordered list of button texts tried
// across Swedish, Spanish, and English sites.
var loadMoreLabels = []string{
	"Visa mer", "Visa fler", "Ladda fler",
	"Cargar más",
	"Load more", "Show more",
}

var loadMoreClassSubstrings = []string{"show-more", "load-more"}

var nextLabels = []string{"Next", "Siguiente", "Nästa"}

// Options configures one Paginate call.
type Options struct {
	MaxClicks int // 0 means DefaultMaxClicks
	URL       string
}

// Strategy names the pagination strategy that actually ran.
type Strategy string

const (
	StrategyNone         Strategy = "none"
	StrategyLoadMore     Strategy = "load_more"
	StrategyNumberedNext Strategy = "numbered_next"
	StrategyURLIncrement Strategy = "url_increment"
)

// Result reports which strategy ran. For StrategyURLIncrement, ExtraPageURLs
// holds the additional page URLs the Crawler must open and extract from —
// the click-driven strategies mutate the live session in place and need
// no further navigation.
type Result struct {
	Strategy      Strategy
	ExtraPageURLs []string
}

// Paginate applies the first successful strategy against session,
// scrolling to settle lazy-loaded content first. It keeps no per-session
// state: a second call on the same session scrolls again and clicks any
// load-more or next candidates still present. The URL-increment pages
// depend only on opts.URL, so a repeat call returns the same ExtraPageURLs.
func Paginate(session browser.Session, opts Options) Result {
	maxClicks := opts.MaxClicks
	if maxClicks <= 0 {
		maxClicks = DefaultMaxClicks
	}

	settleScroll(session)

	if tryLoadMore(session, maxClicks) {
		return Result{Strategy: StrategyLoadMore}
	}
	if tryNumberedNext(session, maxClicks) {
		return Result{Strategy: StrategyNumberedNext}
	}
	if urls, ok := urlIncrementPages(opts.URL, maxClicks); ok {
		return Result{Strategy: StrategyURLIncrement, ExtraPageURLs: urls}
	}
	return Result{Strategy: StrategyNone}
}

func settleScroll(session browser.Session) {
	for i := 0; i < 4; i++ {
		_ = session.ScrollToBottom()
		time.Sleep(1 * time.Second)
	}
}

// tryLoadMore clicks the first matching load-more candidate repeatedly
// until none remains or maxClicks is reached.
func tryLoadMore(session browser.Session, maxClicks int) bool {
	clicked := false
	for i := 0; i < maxClicks; i++ {
		candidate, ok := findLoadMoreCandidate(session)
		if !ok {
			break
		}
		ok, err := session.Click(candidate, false, 5000)
		if err != nil || !ok {
			break
		}
		clicked = true
		time.Sleep(500 * time.Millisecond)
	}
	return clicked
}

func findLoadMoreCandidate(session browser.Session) (string, bool) {
	for _, label := range loadMoreLabels {
		if elementLikelyPresent(session, label) {
			return label, true
		}
	}
	for _, cls := range loadMoreClassSubstrings {
		selector := fmt.Sprintf("[class*=%q]", cls)
		if elementLikelyPresent(session, selector) {
			return selector, true
		}
	}
	return "", false
}

// elementLikelyPresent probes for a selector/text candidate. go-rod
// resolves plain-text selectors through the same Element() path as CSS
// ones, so a dry InnerText lookup is enough to know whether to proceed.
func elementLikelyPresent(session browser.Session, selectorOrText string) bool {
	_, err := session.InnerText(selectorOrText)
	return err == nil
}

func tryNumberedNext(session browser.Session, maxClicks int) bool {
	visited := map[string]bool{}
	clicked := false
	for i := 0; i < maxClicks; i++ {
		label, ok := findNextCandidate(session, visited)
		if !ok {
			break
		}
		ok2, err := session.Click(label, false, 5000)
		if err != nil || !ok2 {
			break
		}
		visited[label] = true
		clicked = true
		time.Sleep(500 * time.Millisecond)
	}
	return clicked
}

func findNextCandidate(session browser.Session, visited map[string]bool) (string, bool) {
	for _, label := range nextLabels {
		if visited[label] {
			continue
		}
		if elementLikelyPresent(session, label) {
			return label, true
		}
	}
	if !visited[".pagination-link"] && elementLikelyPresent(session, ".pagination-link") {
		return ".pagination-link", true
	}
	return "", false
}

// paginationParamNames is the recognized set of URL query parameters
// that encode page position.
var paginationParamNames = []string{"page", "p", "offset", "start"}

// urlIncrementPages returns the page-2..max+1 URLs to fetch, when
// rawURL's query string carries a recognized pagination parameter.
func urlIncrementPages(rawURL string, maxClicks int) ([]string, bool) {
	if rawURL == "" {
		return nil, false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, false
	}
	q := u.Query()

	paramName, current, ok := findPaginationParam(q)
	if !ok {
		return nil, false
	}

	var pages []string
	for n := current + 1; n <= current+maxClicks; n++ {
		next := *u
		nq := q
		nq.Set(paramName, strconv.Itoa(n))
		next.RawQuery = nq.Encode()
		pages = append(pages, next.String())
	}
	return pages, true
}

func findPaginationParam(q url.Values) (name string, current int, ok bool) {
	for _, candidate := range paginationParamNames {
		if v := q.Get(candidate); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return candidate, n, true
			}
		}
	}
	return "", 0, false
}
