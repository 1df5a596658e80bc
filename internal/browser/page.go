// internal/browser/page.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// WaitUntil is the navigation readiness level a caller waits for.
type WaitUntil string

const (
	// WaitCommit returns as soon as the navigation has been committed.
	WaitCommit           WaitUntil = "commit"
	WaitDOMContentLoaded WaitUntil = "domcontentloaded"
	WaitLoad             WaitUntil = "load"
)

// ParseWaitUntil maps a config/scenario string to a WaitUntil. Empty means commit.
func ParseWaitUntil(s string) (WaitUntil, error) {
	switch WaitUntil(strings.ToLower(strings.TrimSpace(s))) {
	case "", WaitCommit:
		return WaitCommit, nil
	case WaitDOMContentLoaded:
		return WaitDOMContentLoaded, nil
	case WaitLoad:
		return WaitLoad, nil
	default:
		return "", fmt.Errorf("unknown wait_until %q (commit, domcontentloaded, load)", s)
	}
}

var (
	// ErrTimeout is wrapped by drivers whose native timeout errors are not context errors.
	ErrTimeout = errors.New("browser operation timed out")
	// ErrUnsupportedLocator is returned when a driver cannot express a locator.
	ErrUnsupportedLocator = errors.New("unsupported locator")
)

// Page is the minimal DOM surface the executor drives. Every method must
// honour ctx cancellation and deadline.
type Page interface {
	// Navigate loads url and returns once the requested readiness level is reached.
	Navigate(ctx context.Context, url string, waitUntil WaitUntil) error
	// WaitReady blocks until the current document and its child frames have
	// finished parsing.
	WaitReady(ctx context.Context) error
	// WaitVisible blocks until the element is attached and visible.
	WaitVisible(ctx context.Context, loc Locator) error
	// Click clicks the first element matching loc.
	Click(ctx context.Context, loc Locator) error
	// TextVisible reports whether fragment is currently rendered on the page.
	TextVisible(ctx context.Context, fragment string) (bool, error)
	// Location returns the current document URL.
	Location(ctx context.Context) (string, error)
}

// framesReadyScript is true once the top document has a body and neither it
// nor any same-origin child frame is still loading. Cross-origin frames are skipped.
const framesReadyScript = `(() => {
	if (document.readyState === "loading" || !document.body) { return false; }
	for (const el of document.querySelectorAll("iframe, frame")) {
		let doc = null;
		try { doc = el.contentDocument; } catch (e) { continue; }
		if (doc && doc.readyState === "loading") { return false; }
	}
	return true;
})()`

// visibleTextScript returns a JS expression that is true when fragment is part
// of the rendered text. innerText excludes display:none and visibility:hidden content.
func visibleTextScript(fragment string) string {
	quoted, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(fragment)
	if err != nil {
		// Marshalling a Go string cannot fail; keep the expression well formed regardless.
		quoted = `""`
	}
	return fmt.Sprintf(`(() => {
		const needle = %s;
		const root = document.body || document.documentElement;
		if (!root) { return false; }
		const normalize = (s) => (s || "").replace(/\s+/g, " ");
		return normalize(root.innerText).includes(normalize(needle));
	})()`, quoted)
}

// jsString encodes s as a JavaScript string literal.
func jsString(s string) string {
	quoted, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(s)
	if err != nil {
		return `""`
	}
	return quoted
}
