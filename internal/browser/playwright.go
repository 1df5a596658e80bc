// internal/browser/playwright.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/config"
)

// playwrightDriver opens pages through the Playwright driver process.
type playwrightDriver struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
}

func (d *playwrightDriver) Name() string { return config.DriverPlaywright }

func (d *playwrightDriver) launchOptions() playwright.BrowserTypeLaunchOptions {
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(d.cfg.Headless),
		Args:     append([]string{"--disable-gpu", "--enable-automation"}, LaunchArgs(d.cfg)...),
		Timeout:  playwright.Float(60000),
	}
	if d.cfg.ExecPath != "" {
		opts.ExecutablePath = playwright.String(d.cfg.ExecPath)
	}
	return opts
}

func (d *playwrightDriver) Open(ctx context.Context) (Page, []Releaser, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	var releasers []Releaser
	fail := func(err error) (Page, []Releaser, error) {
		_ = releaseAll(Detach(ctx), releasers)
		return nil, nil, err
	}

	// 1. Start the Playwright driver.
	pw, err := playwright.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start playwright driver: %w", err)
	}
	releasers = append(releasers, Releaser{Name: "runtime", Release: func(context.Context) error { return pw.Stop() }})

	// 2. Launch Chromium.
	b, err := pw.Chromium.Launch(d.launchOptions())
	if err != nil {
		return fail(fmt.Errorf("failed to launch browser instance: %w", err))
	}
	releasers = append(releasers, Releaser{Name: "browser", Release: func(context.Context) error { return b.Close() }})
	d.logger.Debug("Browser launched.", zap.String("browser_version", b.Version()))

	// 3. Isolated context with the kiosk viewport.
	ctxOpts := playwright.BrowserNewContextOptions{}
	if d.cfg.WindowWidth > 0 && d.cfg.WindowHeight > 0 {
		ctxOpts.Viewport = &playwright.Size{Width: d.cfg.WindowWidth, Height: d.cfg.WindowHeight}
	}
	bctx, err := b.NewContext(ctxOpts)
	if err != nil {
		return fail(fmt.Errorf("failed to create browser context: %w", err))
	}
	releasers = append(releasers, Releaser{Name: "context", Release: func(context.Context) error { return bctx.Close() }})
	if d.cfg.DefaultTimeout > 0 {
		bctx.SetDefaultTimeout(float64(d.cfg.DefaultTimeout.Milliseconds()))
	}

	// 4. The page itself.
	pg, err := bctx.NewPage()
	if err != nil {
		return fail(fmt.Errorf("failed to create page: %w", err))
	}
	releasers = append(releasers, Releaser{Name: "page", Release: func(context.Context) error { return pg.Close() }})

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	return &playwrightPage{page: pg, fallback: d.cfg.DefaultTimeout}, releasers, nil
}

// playwrightPage implements Page over a playwright.Page. Playwright calls are
// not context-aware, so each call gets a timeout derived from ctx.
type playwrightPage struct {
	page     playwright.Page
	fallback time.Duration
}

var _ Page = (*playwrightPage)(nil)

// timeoutMs converts the time left on ctx into Playwright milliseconds.
func (p *playwrightPage) timeoutMs(ctx context.Context) (*float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	left := p.fallback
	if deadline, ok := ctx.Deadline(); ok {
		left = time.Until(deadline)
		if left <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	if left <= 0 {
		// Zero disables the Playwright timeout entirely.
		return playwright.Float(0), nil
	}
	ms := float64(left.Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return playwright.Float(ms), nil
}

func (p *playwrightPage) Navigate(ctx context.Context, url string, waitUntil WaitUntil) error {
	timeout, err := p.timeoutMs(ctx)
	if err != nil {
		return err
	}
	state := playwright.WaitUntilStateCommit
	switch waitUntil {
	case WaitDOMContentLoaded:
		state = playwright.WaitUntilStateDomcontentloaded
	case WaitLoad:
		state = playwright.WaitUntilStateLoad
	}
	if _, err := p.page.Goto(url, playwright.PageGotoOptions{WaitUntil: state, Timeout: timeout}); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, mapPlaywrightErr(err))
	}
	return nil
}

func (p *playwrightPage) WaitReady(ctx context.Context) error {
	timeout, err := p.timeoutMs(ctx)
	if err != nil {
		return err
	}
	err = p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: timeout,
	})
	if err != nil {
		return mapPlaywrightErr(err)
	}
	for _, f := range p.page.Frames() {
		if f.ParentFrame() == nil || f.IsDetached() {
			continue
		}
		if timeout, err = p.timeoutMs(ctx); err != nil {
			return err
		}
		err = f.WaitForLoadState(playwright.FrameWaitForLoadStateOptions{
			State:   playwright.LoadStateDomcontentloaded,
			Timeout: timeout,
		})
		if err != nil && !f.IsDetached() {
			return mapPlaywrightErr(err)
		}
	}
	return nil
}

func (p *playwrightPage) WaitVisible(ctx context.Context, loc Locator) error {
	timeout, err := p.timeoutMs(ctx)
	if err != nil {
		return err
	}
	return mapPlaywrightErr(p.page.Locator(playwrightSelector(loc)).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: timeout,
	}))
}

func (p *playwrightPage) Click(ctx context.Context, loc Locator) error {
	timeout, err := p.timeoutMs(ctx)
	if err != nil {
		return err
	}
	return mapPlaywrightErr(p.page.Locator(playwrightSelector(loc)).First().Click(playwright.LocatorClickOptions{
		Timeout: timeout,
	}))
}

func (p *playwrightPage) TextVisible(ctx context.Context, fragment string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	res, err := p.page.Evaluate(visibleTextScript(fragment))
	if err != nil {
		return false, mapPlaywrightErr(err)
	}
	visible, _ := res.(bool)
	return visible, nil
}

func (p *playwrightPage) Location(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.URL(), nil
}

// playwrightSelector renders loc with an explicit selector engine prefix.
func playwrightSelector(loc Locator) string {
	return loc.String()
}

func mapPlaywrightErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
