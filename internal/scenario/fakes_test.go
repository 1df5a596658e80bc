// internal/scenario/fakes_test.go
package scenario

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/browser"
)

// kioskPage simulates the kiosk UI: clicking a locator may reveal texts and
// other locators.
type kioskPage struct {
	mu       sync.Mutex
	visible  map[string]bool
	texts    map[string]bool
	reveals  map[string][]string
	panicOn  string
	navs     []string
	clicks   []string
	navError error
}

func newKioskPage() *kioskPage {
	return &kioskPage{
		visible: map[string]bool{},
		texts:   map[string]bool{},
		reveals: map[string][]string{},
	}
}

func (p *kioskPage) Navigate(ctx context.Context, url string, _ browser.WaitUntil) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navs = append(p.navs, url)
	return p.navError
}

func (p *kioskPage) WaitReady(context.Context) error { return nil }

func (p *kioskPage) WaitVisible(ctx context.Context, loc browser.Locator) error {
	p.mu.Lock()
	ok := p.visible[loc.String()]
	p.mu.Unlock()
	if ok {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *kioskPage) Click(ctx context.Context, loc browser.Locator) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := loc.String()
	if key == p.panicOn {
		panic("renderer crashed")
	}
	if !p.visible[key] {
		return errors.New("no node found")
	}
	p.clicks = append(p.clicks, key)
	for _, r := range p.reveals[key] {
		if strings.HasPrefix(r, "xpath=") || strings.HasPrefix(r, "css=") {
			p.visible[browser.MustParseLocator(r).String()] = true
			continue
		}
		p.texts[r] = true
	}
	return nil
}

func (p *kioskPage) TextVisible(ctx context.Context, fragment string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.texts[fragment], nil
}

func (p *kioskPage) Location(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.navs) == 0 {
		return "about:blank", nil
	}
	return p.navs[len(p.navs)-1], nil
}

// fakeSessions hands out sessions over pages built by newPage and counts teardowns.
type fakeSessions struct {
	newPage  func() browser.Page
	openErr  error
	opened   atomic.Int32
	released atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeSessions) DriverName() string { return "fake" }

func (f *fakeSessions) NewSession(ctx context.Context) (*browser.Session, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opened.Add(1)
	n := f.inFlight.Add(1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	return browser.NewSession("fake", f.newPage(), []browser.Releaser{{
		Name: "page",
		Release: func(context.Context) error {
			f.released.Add(1)
			f.inFlight.Add(-1)
			return nil
		},
	}}, zap.NewNop()), nil
}
