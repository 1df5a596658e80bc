// internal/browser/cdp.go
package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/config"
)

// AllocatorOptions builds the chromedp exec allocator options for cfg.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	// Start from an explicit set rather than chromedp.DefaultExecAllocatorOptions so
	// that headless mode is fully controlled by the configuration.
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.Flag("enable-automation", true),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	for _, f := range LaunchFlags(cfg) {
		if f.Value == "" {
			opts = append(opts, chromedp.Flag(f.Name, true))
		} else {
			opts = append(opts, chromedp.Flag(f.Name, f.Value))
		}
	}
	return opts
}

// cdpDriver opens pages over the Chrome DevTools Protocol via chromedp.
type cdpDriver struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
}

func (d *cdpDriver) Name() string { return config.DriverChromedp }

func (d *cdpDriver) Open(ctx context.Context) (Page, []Releaser, error) {
	// The allocator must not inherit ctx: chromedp kills the browser when the
	// context of the first Run is done, and ctx is usually a scenario deadline.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), AllocatorOptions(d.cfg)...)
	sugar := d.logger.Sugar()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(sugar.Debugf), chromedp.WithErrorf(sugar.Debugf))

	releasers := []Releaser{
		{Name: "browser", Release: func(context.Context) error {
			allocCancel()
			return nil
		}},
		{Name: "page", Release: func(ctx context.Context) error {
			return cancelWithin(ctx, tabCtx, tabCancel)
		}},
	}

	// The first Run starts the browser process. Bound it by ctx without tying
	// the browser's lifetime to ctx.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(tabCtx, kioskViewport(d.cfg.WindowWidth, d.cfg.WindowHeight)) }()

	select {
	case err := <-started:
		if err != nil {
			_ = releaseAll(Detach(ctx), releasers)
			return nil, nil, fmt.Errorf("failed to start chromium: %w", err)
		}
	case <-ctx.Done():
		_ = releaseAll(Detach(ctx), releasers)
		return nil, nil, fmt.Errorf("chromium did not start in time: %w", ctx.Err())
	}

	return &cdpPage{ctx: tabCtx, logger: d.logger}, releasers, nil
}

// kioskViewport pins the page to the kiosk screen size. Kiosks mounted in
// portrait report a portrait orientation.
func kioskViewport(width, height int) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if width <= 0 || height <= 0 {
			return nil
		}
		orientation := emulation.OrientationTypeLandscapePrimary
		if height > width {
			orientation = emulation.OrientationTypePortraitPrimary
		}
		err := emulation.SetDeviceMetricsOverride(int64(width), int64(height), 1.0, false).
			WithScreenOrientation(&emulation.ScreenOrientation{Type: orientation}).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to set kiosk viewport: %w", err)
		}
		return nil
	})
}

// cancelWithin closes the tab gracefully, falling back to a hard cancel when
// ctx expires first.
func cancelWithin(ctx context.Context, tabCtx context.Context, tabCancel context.CancelFunc) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(tabCtx) }()

	select {
	case err := <-done:
		tabCancel()
		if err != nil && err != context.Canceled {
			return err
		}
		return nil
	case <-ctx.Done():
		tabCancel()
		return fmt.Errorf("graceful tab shutdown timed out: %w", ctx.Err())
	}
}

// cdpPage implements Page over one chromedp target.
type cdpPage struct {
	ctx    context.Context
	logger *zap.Logger
}

var _ Page = (*cdpPage)(nil)

// run executes actions so they respect both the tab lifetime and ctx.
func (p *cdpPage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(p.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (p *cdpPage) Navigate(ctx context.Context, url string, waitUntil WaitUntil) error {
	p.logger.Debug("Navigating.", zap.String("url", url), zap.String("wait_until", string(waitUntil)))

	if waitUntil == WaitCommit {
		// Assigning location returns once the browser has accepted the navigation
		// instead of waiting for the load event like chromedp.Navigate does.
		err := p.run(ctx, chromedp.Evaluate(fmt.Sprintf("window.location.assign(%s)", jsString(url)), nil))
		if err != nil && !isNavigationTeardown(err) {
			return fmt.Errorf("navigation to %s failed: %w", url, err)
		}
		return nil
	}

	// chromedp.Navigate waits for the load event, which also satisfies domcontentloaded.
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (p *cdpPage) WaitReady(ctx context.Context) error {
	var ready bool
	return p.run(ctx, chromedp.Poll(framesReadyScript, &ready, chromedp.WithPollingTimeout(0)))
}

func (p *cdpPage) WaitVisible(ctx context.Context, loc Locator) error {
	sel, by, err := cdpSelector(loc)
	if err != nil {
		return err
	}
	return p.run(ctx, chromedp.WaitVisible(sel, by))
}

func (p *cdpPage) Click(ctx context.Context, loc Locator) error {
	sel, by, err := cdpSelector(loc)
	if err != nil {
		return err
	}
	return p.run(ctx, chromedp.Click(sel, by, chromedp.NodeVisible))
}

func (p *cdpPage) TextVisible(ctx context.Context, fragment string) (bool, error) {
	var visible bool
	if err := p.run(ctx, chromedp.Evaluate(visibleTextScript(fragment), &visible)); err != nil {
		return false, err
	}
	return visible, nil
}

func (p *cdpPage) Location(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// cdpSelector maps a Locator to a chromedp selector and query strategy.
func cdpSelector(loc Locator) (string, chromedp.QueryOption, error) {
	switch loc.Strategy {
	case StrategyCSS:
		return loc.Value, chromedp.ByQuery, nil
	case StrategyXPath, StrategyText:
		xp, ok := loc.AsXPath()
		if !ok {
			return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedLocator, loc)
		}
		return xp, chromedp.BySearch, nil
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedLocator, loc)
	}
}

// isNavigationTeardown reports errors caused by the old document going away
// while the navigation script was still being evaluated.
func isNavigationTeardown(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "context was destroyed") ||
		strings.Contains(msg, "Inspected target navigated or closed")
}
