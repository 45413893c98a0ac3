package browser

import "fmt"

// FakeDriver is a deterministic, in-memory Driver used by tests for
// Paginator, Crawler, and SiteAdapter — no real browser involved. Pages
// are keyed by URL and clicks are resolved through ClickResults, letting
// a test script a "load more" button across several calls.
type FakeDriver struct {
	Pages map[string]*FakeSession
}

func NewFakeDriver() *FakeDriver {
	return &FakeDriver{Pages: map[string]*FakeSession{}}
}

func (d *FakeDriver) Open(url string, _ OpenWaits) (Session, error) {
	session, ok := d.Pages[url]
	if !ok {
		return nil, fmt.Errorf("fake driver: no page registered for %s", url)
	}
	return session, nil
}

// FakeSession is a scriptable Session. HTMLSteps lets a test simulate a
// paginated listing: each call to Click advances to the next entry and
// Content/LocateAll reflect it.
type FakeSession struct {
	HTMLSteps []string
	step      int
	ClickFunc func(selectorOrText string) bool
	Elements  map[string][]Element
	Closed    bool
	ID        string
}

func (s *FakeSession) SessionID() string { return s.ID }

func (s *FakeSession) Click(selectorOrText string, _ bool, _ int) (bool, error) {
	if s.ClickFunc == nil {
		return false, nil
	}
	ok := s.ClickFunc(selectorOrText)
	if ok && s.step < len(s.HTMLSteps)-1 {
		s.step++
	}
	return ok, nil
}

func (s *FakeSession) ScrollToBottom() error { return nil }

func (s *FakeSession) InnerText(selector string) (string, error) {
	els, ok := s.Elements[selector]
	if !ok || len(els) == 0 {
		return "", fmt.Errorf("no element for %s", selector)
	}
	return els[0].Text()
}

func (s *FakeSession) InnerHTML(selector string) (string, error) {
	return s.InnerText(selector)
}

func (s *FakeSession) GetAttribute(selector, attr string) (string, error) {
	els, ok := s.Elements[selector]
	if !ok || len(els) == 0 {
		return "", fmt.Errorf("no element for %s", selector)
	}
	return els[0].Attribute(attr)
}

func (s *FakeSession) LocateAll(selector string) ([]Element, error) {
	return s.Elements[selector], nil
}

func (s *FakeSession) Content() (string, error) {
	if s.step >= len(s.HTMLSteps) {
		return "", nil
	}
	return s.HTMLSteps[s.step], nil
}

func (s *FakeSession) Close() error {
	s.Closed = true
	return nil
}

// FakeElement is a static Element for test fixtures.
type FakeElement struct {
	TextValue string
	Attrs     map[string]string
	Children  map[string]Element
	All       map[string][]Element
}

func (e *FakeElement) Text() (string, error) { return e.TextValue, nil }

func (e *FakeElement) Attribute(name string) (string, error) { return e.Attrs[name], nil }

func (e *FakeElement) Find(selector string) (Element, bool, error) {
	el, ok := e.Children[selector]
	return el, ok, nil
}

func (e *FakeElement) FindAll(selector string) ([]Element, error) {
	return e.All[selector], nil
}
