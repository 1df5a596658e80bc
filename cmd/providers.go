// cmd/providers.go
package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/browser"
	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/config"
	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/scenario"
	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/store"
)

// suiteBrowser is the part of *browser.Manager the run command needs.
type suiteBrowser interface {
	scenario.SessionFactory
	Shutdown(ctx context.Context) error
}

// runStore is the part of *store.Store the commands need.
type runStore interface {
	EnsureSchema(ctx context.Context) error
	SaveRun(ctx context.Context, report *scenario.SuiteReport) error
	RecentRuns(ctx context.Context, limit int) ([]store.RunSummary, error)
}

// browserProvider creates the session source for a suite.
type browserProvider interface {
	Create(cfg config.BrowserConfig, logger *zap.Logger) (suiteBrowser, error)
}

// storeProvider connects to the run history database. The returned cleanup
// releases the connection pool.
type storeProvider interface {
	Create(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (runStore, func(), error)
}

// dependencies are the external systems the commands talk to. Tests replace them.
type dependencies struct {
	browsers browserProvider
	stores   storeProvider
}

func defaultDeps() dependencies {
	return dependencies{
		browsers: defaultBrowserProvider{},
		stores:   defaultStoreProvider{},
	}
}

type defaultBrowserProvider struct{}

func (defaultBrowserProvider) Create(cfg config.BrowserConfig, logger *zap.Logger) (suiteBrowser, error) {
	m, err := browser.NewManager(cfg, logger)
	if err != nil {
		return nil, err
	}
	return m, nil
}

type defaultStoreProvider struct{}

func (defaultStoreProvider) Create(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (runStore, func(), error) {
	if cfg.DSN == "" {
		return nil, nil, fmt.Errorf("database DSN is not configured (KIOSKPROBE_STORE_DSN)")
	}
	s, cleanup, err := store.Open(ctx, cfg.DSN, logger)
	if err != nil {
		return nil, nil, err
	}
	return s, cleanup, nil
}
