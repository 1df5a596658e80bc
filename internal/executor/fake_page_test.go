// internal/executor/fake_page_test.go
package executor

import (
	"context"
	"sync"
	"time"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/browser"
)

// fakePage is a scripted browser.Page. Locators are keyed by their String form.
type fakePage struct {
	mu    sync.Mutex
	start time.Time

	visible     map[string]bool
	clickHangs  map[string]bool
	clickErrs   map[string]error
	clickPanics map[string]bool
	// textAfter makes a text fragment visible after the given delay.
	textAfter map[string]time.Duration
	textErr   error

	navErr        error
	navDelay      time.Duration
	navIgnoresCtx bool
	// onNavigate runs after every successful navigation.
	onNavigate func(f *fakePage, url string)
	navDone    chan struct{}

	readyErr error

	clicks      []string
	waits       []string
	navigations []string
}

var _ browser.Page = (*fakePage)(nil)

func newFakePage() *fakePage {
	return &fakePage{
		start:       time.Now(),
		visible:     map[string]bool{},
		clickHangs:  map[string]bool{},
		clickErrs:   map[string]error{},
		clickPanics: map[string]bool{},
		textAfter:   map[string]time.Duration{},
	}
}

func (f *fakePage) show(loc browser.Locator) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visible[loc.String()] = true
}

func (f *fakePage) Navigate(ctx context.Context, url string, _ browser.WaitUntil) error {
	f.mu.Lock()
	f.navigations = append(f.navigations, url)
	delay, ignores, err, hook := f.navDelay, f.navIgnoresCtx, f.navErr, f.onNavigate
	f.mu.Unlock()

	if delay > 0 {
		if ignores {
			time.Sleep(delay)
			if f.navDone != nil {
				close(f.navDone)
			}
		} else {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if err != nil {
		return err
	}
	if hook != nil {
		hook(f, url)
	}
	return nil
}

func (f *fakePage) WaitReady(ctx context.Context) error {
	f.mu.Lock()
	err := f.readyErr
	f.mu.Unlock()
	return err
}

func (f *fakePage) WaitVisible(ctx context.Context, loc browser.Locator) error {
	f.mu.Lock()
	f.waits = append(f.waits, loc.String())
	ok := f.visible[loc.String()]
	f.mu.Unlock()
	if ok {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakePage) Click(ctx context.Context, loc browser.Locator) error {
	key := loc.String()
	f.mu.Lock()
	f.clicks = append(f.clicks, key)
	hangs, err, panics, ok := f.clickHangs[key], f.clickErrs[key], f.clickPanics[key], f.visible[key]
	f.mu.Unlock()

	if panics {
		panic("driver exploded")
	}
	if hangs {
		<-ctx.Done()
		return ctx.Err()
	}
	if err != nil {
		return err
	}
	if !ok {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (f *fakePage) TextVisible(ctx context.Context, fragment string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.textErr != nil {
		return false, f.textErr
	}
	after, ok := f.textAfter[fragment]
	return ok && time.Since(f.start) >= after, nil
}

func (f *fakePage) Location(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.navigations) == 0 {
		return "about:blank", nil
	}
	return f.navigations[len(f.navigations)-1], nil
}

func (f *fakePage) recordedClicks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.clicks...)
}

func (f *fakePage) recordedNavigations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.navigations...)
}
