// internal/browser/fakes_test.go
package browser

import (
	"context"
	"errors"
	"sync"
)

// stubPage satisfies Page without a browser.
type stubPage struct{}

func (stubPage) Navigate(context.Context, string, WaitUntil) error { return nil }
func (stubPage) WaitReady(context.Context) error { return nil }
func (stubPage) WaitVisible(context.Context, Locator) error { return nil }
func (stubPage) Click(context.Context, Locator) error { return nil }
func (stubPage) TextVisible(context.Context, string) (bool, error) { return false, nil }
func (stubPage) Location(context.Context) (string, error) { return "about:blank", nil }

// releaseLog records the order releasers run in.
type releaseLog struct {
	mu    sync.Mutex
	order []string
}

func (l *releaseLog) releaser(name string, err error) Releaser {
	return Releaser{Name: name, Release: func(context.Context) error {
		l.mu.Lock()
		l.order = append(l.order, name)
		l.mu.Unlock()
		return err
	}}
}

func (l *releaseLog) names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

// fakeDriver hands out stub pages backed by a shared release log.
type fakeDriver struct {
	log     *releaseLog
	openErr error
}

func (d *fakeDriver) Name() string { return "fake" }

func (d *fakeDriver) Open(ctx context.Context) (Page, []Releaser, error) {
	if d.openErr != nil {
		return nil, nil, d.openErr
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return stubPage{}, []Releaser{
		d.log.releaser("runtime", nil),
		d.log.releaser("browser", nil),
		d.log.releaser("context", nil),
		d.log.releaser("page", nil),
	}, nil
}

var errRelease = errors.New("release failed")

// blockingDriver opens sessions whose page releaser waits for release.
// finished receives the release context's error when the releaser returns.
type blockingDriver struct {
	release  chan struct{}
	finished chan error
}

func (d *blockingDriver) Name() string { return "blocking" }

func (d *blockingDriver) Open(context.Context) (Page, []Releaser, error) {
	return stubPage{}, []Releaser{{Name: "page", Release: func(ctx context.Context) error {
		select {
		case <-d.release:
		case <-ctx.Done():
		}
		d.finished <- ctx.Err()
		return ctx.Err()
	}}}, nil
}
