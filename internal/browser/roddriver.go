package browser

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/google/uuid"
)

// RodDriver drives a headless Chromium instance via go-rod, with the
// stealth patch applied to every page so sites that fingerprint
// automation don't immediately reject the session.
type RodDriver struct {
	browser *rod.Browser
}

// NewRodDriver launches (or attaches to, if controlURL is non-empty) a
// Chromium instance and returns a ready-to-use Driver.
func NewRodDriver(controlURL string, headless bool) (*RodDriver, error) {
	url := controlURL
	if url == "" {
		launched, err := launcher.New().Headless(headless).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		url = launched
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	return &RodDriver{browser: browser}, nil
}

// Close shuts down the underlying browser process.
func (d *RodDriver) Close() error {
	return d.browser.Close()
}

// Open navigates a fresh stealth-patched page to url and waits per waits.
func (d *RodDriver) Open(url string, waits OpenWaits) (Session, error) {
	page, err := stealth.Page(d.browser)
	if err != nil {
		return nil, fmt.Errorf("create stealth page: %w", err)
	}

	if err := page.Navigate(url); err != nil {
		page.Close()
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	switch waits.Until {
	case WaitDOMContentLoaded:
		if err := page.WaitDOMStable(time.Second, 0); err != nil {
			page.Close()
			return nil, fmt.Errorf("wait dom stable: %w", err)
		}
	default:
		if err := page.WaitLoad(); err != nil {
			page.Close()
			return nil, fmt.Errorf("wait load: %w", err)
		}
		if err := page.WaitIdle(5 * time.Second); err != nil {
			// Idle detection is best-effort; a page with long-polling
			// connections never truly goes idle.
		}
	}

	if waits.PostDelayMs > 0 {
		time.Sleep(time.Duration(waits.PostDelayMs) * time.Millisecond)
	}
	if waits.ExtraDelayAfterLoadMs > 0 {
		time.Sleep(time.Duration(waits.ExtraDelayAfterLoadMs) * time.Millisecond)
	}

	return &rodSession{page: page, id: uuid.NewString()}, nil
}

type rodSession struct {
	page *rod.Page
	id   string
}

func (s *rodSession) SessionID() string { return s.id }

func (s *rodSession) Click(selectorOrText string, force bool, timeoutMs int) (bool, error) {
	page := s.page.Timeout(time.Duration(timeoutMs) * time.Millisecond)
	el, err := page.Element(selectorOrText)
	if err != nil {
		return false, nil
	}
	if force {
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return false, err
		}
		return true, nil
	}
	if visible, err := el.Visible(); err != nil || !visible {
		return false, nil
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, err
	}
	return true, nil
}

func (s *rodSession) ScrollToBottom() error {
	_, err := s.page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

func (s *rodSession) InnerText(selector string) (string, error) {
	el, err := s.page.Element(selector)
	if err != nil {
		return "", err
	}
	return el.Text()
}

func (s *rodSession) InnerHTML(selector string) (string, error) {
	el, err := s.page.Element(selector)
	if err != nil {
		return "", err
	}
	return el.HTML()
}

func (s *rodSession) GetAttribute(selector, attr string) (string, error) {
	el, err := s.page.Element(selector)
	if err != nil {
		return "", err
	}
	val, err := el.Attribute(attr)
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", nil
	}
	return *val, nil
}

func (s *rodSession) LocateAll(selector string) ([]Element, error) {
	els, err := s.page.Elements(selector)
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el})
	}
	return out, nil
}

func (s *rodSession) Content() (string, error) {
	return s.page.HTML()
}

func (s *rodSession) Close() error {
	return s.page.Close()
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Text() (string, error) {
	return e.el.Text()
}

func (e *rodElement) Attribute(name string) (string, error) {
	val, err := e.el.Attribute(name)
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", nil
	}
	return *val, nil
}

func (e *rodElement) Find(selector string) (Element, bool, error) {
	el, err := e.el.Element(selector)
	if err != nil {
		return nil, false, nil
	}
	return &rodElement{el: el}, true, nil
}

func (e *rodElement) FindAll(selector string) ([]Element, error) {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el})
	}
	return out, nil
}
