// Package browser defines the BrowserDriver capability and its concrete
// go-rod implementation. Every Crawler owns exactly one session at a
// time and is responsible for closing it on every exit path.
package browser

// WaitUntil selects the readiness signal Open waits for before returning.
type WaitUntil string

const (
	WaitNetworkIdle      WaitUntil = "networkidle"
	WaitDOMContentLoaded WaitUntil = "domcontentloaded"
)

// OpenWaits configures how Open decides a page has finished loading.
type OpenWaits struct {
	Until                 WaitUntil
	PostDelayMs           int
	ExtraDelayAfterLoadMs int
}

// Session is a scoped handle to one opened page. Close releases the
// underlying browser tab; callers must call it on every exit path
// (success, error, or cancellation).
type Session interface {
	Click(selectorOrText string, force bool, timeoutMs int) (bool, error)
	ScrollToBottom() error
	InnerText(selector string) (string, error)
	InnerHTML(selector string) (string, error)
	GetAttribute(selector, attr string) (string, error)
	LocateAll(selector string) ([]Element, error)
	Content() (string, error)
	Close() error
	// SessionID returns a per-open correlation identifier, threaded into
	// log fields so a Crawler run's log lines for one page can be
	// grouped without a shared sequence.
	SessionID() string
}

// Element is one node returned by LocateAll — enough surface to read text,
// attributes, and nested selectors without re-querying the whole page.
type Element interface {
	Text() (string, error)
	Attribute(name string) (string, error)
	Find(selector string) (Element, bool, error)
	FindAll(selector string) ([]Element, error)
}

// Driver opens sessions against real pages. Exactly one concrete
// implementation (RodDriver) exists; tests use a hand-written fake that
// satisfies this interface directly rather than mocking it.
type Driver interface {
	Open(url string, waits OpenWaits) (Session, error)
}

// DefaultOpenWaits is a "be patient once, then move on" posture: wait
// for network idle, then settle.
func DefaultOpenWaits() OpenWaits {
	return OpenWaits{
		Until:                 WaitNetworkIdle,
		PostDelayMs:           3000,
		ExtraDelayAfterLoadMs: 0,
	}
}
