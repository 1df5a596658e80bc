// internal/browser/rod.go
package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/config"
)

// rodDriver opens pages with go-rod against a freshly launched Chromium.
type rodDriver struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
}

func (d *rodDriver) Name() string { return config.DriverRod }

func (d *rodDriver) launcher() *launcher.Launcher {
	l := launcher.New().
		Headless(d.cfg.Headless).
		Set("disable-gpu").
		Set("enable-automation")
	if d.cfg.ExecPath != "" {
		l = l.Bin(d.cfg.ExecPath)
	}
	for _, f := range LaunchFlags(d.cfg) {
		if f.Value == "" {
			l = l.Set(flags.Flag(f.Name))
		} else {
			l = l.Set(flags.Flag(f.Name), f.Value)
		}
	}
	return l
}

func (d *rodDriver) Open(ctx context.Context) (Page, []Releaser, error) {
	var releasers []Releaser
	fail := func(err error) (Page, []Releaser, error) {
		_ = releaseAll(Detach(ctx), releasers)
		return nil, nil, err
	}

	// 1. Launch Chromium. The launcher is bound to ctx only while starting.
	l := d.launcher()
	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		l.Kill()
		return nil, nil, fmt.Errorf("failed to launch Chrome: %w", err)
	}
	releasers = append(releasers, Releaser{Name: "runtime", Release: func(context.Context) error {
		l.Cleanup()
		return nil
	}})

	// 2. Connect over CDP.
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return fail(fmt.Errorf("failed to connect to Chrome: %w", err))
	}
	releasers = append(releasers, Releaser{Name: "browser", Release: func(context.Context) error { return b.Close() }})

	// 3. Blank page with the configured viewport.
	pg, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fail(fmt.Errorf("failed to create page: %w", err))
	}
	releasers = append(releasers, Releaser{Name: "page", Release: func(context.Context) error { return pg.Close() }})

	if d.cfg.WindowWidth > 0 && d.cfg.WindowHeight > 0 {
		err := pg.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:  d.cfg.WindowWidth,
			Height: d.cfg.WindowHeight,
		})
		if err != nil {
			return fail(fmt.Errorf("failed to set viewport: %w", err))
		}
	}

	return &rodPage{page: pg}, releasers, nil
}

// rodPage implements Page over a rod.Page. Each call clones the page with ctx.
type rodPage struct {
	page *rod.Page
}

var _ Page = (*rodPage)(nil)

func (p *rodPage) Navigate(ctx context.Context, url string, waitUntil WaitUntil) error {
	pg := p.page.Context(ctx)

	var wait func()
	if waitUntil == WaitDOMContentLoaded {
		wait = pg.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	}

	// rod.Page.Navigate returns once the browser has committed the navigation.
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}

	switch waitUntil {
	case WaitDOMContentLoaded:
		wait()
		return ctx.Err()
	case WaitLoad:
		if err := pg.WaitLoad(); err != nil {
			return fmt.Errorf("waiting for load of %s failed: %w", url, err)
		}
	}
	return nil
}

func (p *rodPage) WaitReady(ctx context.Context) error {
	return p.page.Context(ctx).Wait(rod.Eval("() => " + framesReadyScript))
}

func (p *rodPage) element(ctx context.Context, loc Locator) (*rod.Element, error) {
	pg := p.page.Context(ctx)
	switch loc.Strategy {
	case StrategyCSS:
		return pg.Element(loc.Value)
	case StrategyXPath, StrategyText:
		xp, ok := loc.AsXPath()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedLocator, loc)
		}
		return pg.ElementX(xp)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLocator, loc)
	}
}

func (p *rodPage) WaitVisible(ctx context.Context, loc Locator) error {
	el, err := p.element(ctx, loc)
	if err != nil {
		return err
	}
	return el.WaitVisible()
}

func (p *rodPage) Click(ctx context.Context, loc Locator) error {
	el, err := p.element(ctx, loc)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) TextVisible(ctx context.Context, fragment string) (bool, error) {
	res, err := p.page.Context(ctx).Eval("() => " + visibleTextScript(fragment))
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (p *rodPage) Location(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}
