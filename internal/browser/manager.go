// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/config"
)

// Driver opens a fresh page on one automation backend. The returned releasers
// are in acquisition order; a failed Open must release what it acquired itself.
type Driver interface {
	Name() string
	Open(ctx context.Context) (Page, []Releaser, error)
}

const shutdownGracePeriod = 15 * time.Second

// Manager hands out browser sessions and tracks them until they are closed.
type Manager struct {
	driver Driver
	logger *zap.Logger

	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewManager selects the driver named by cfg.Driver.
func NewManager(cfg config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	logger = logger.Named("browser_manager")

	var d Driver
	switch cfg.Driver {
	case "", config.DriverChromedp:
		d = &cdpDriver{cfg: cfg, logger: logger.Named("cdp")}
	case config.DriverPlaywright:
		d = &playwrightDriver{cfg: cfg, logger: logger.Named("playwright")}
	case config.DriverRod:
		d = &rodDriver{cfg: cfg, logger: logger.Named("rod")}
	default:
		return nil, fmt.Errorf("unknown browser driver %q", cfg.Driver)
	}
	return NewManagerWithDriver(d, logger), nil
}

// NewManagerWithDriver builds a manager around an explicit driver.
func NewManagerWithDriver(d Driver, logger *zap.Logger) *Manager {
	m := &Manager{
		driver:   d,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
	m.logger.Debug("Browser manager created.", zap.String("driver", d.Name()))
	return m
}

// DriverName names the backend sessions are opened on.
func (m *Manager) DriverName() string { return m.driver.Name() }

// NewSession launches a browser and opens a page on it. The caller owns the
// session and must Close it.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	page, releasers, err := m.driver.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s session: %w", m.driver.Name(), err)
	}

	session := NewSession(m.driver.Name(), page, releasers, m.logger)

	session.SetOnClose(func() {
		m.mu.Lock()
		delete(m.sessions, session.ID())
		m.mu.Unlock()
		m.logger.Debug("Session removed from manager.", zap.String("session_id", session.ID()))
	})

	m.mu.Lock()
	m.sessions[session.ID()] = session
	m.mu.Unlock()

	m.logger.Info("New session created.", zap.String("session_id", session.ID()))
	return session, nil
}

// Active returns the number of sessions not yet closed.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown closes every open session and waits for them until ctx ends. Closes
// still running at that point keep going for up to shutdownGracePeriod.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Debug("Shutting down browser manager.")

	// 1. Snapshot active sessions.
	m.mu.RLock()
	toClose := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		toClose = append(toClose, s)
	}
	m.mu.RUnlock()

	if len(toClose) > 0 {
		m.logger.Warn("Closing sessions left open.", zap.Int("count", len(toClose)))
	}

	// 2. Close them concurrently. The close context outlives ctx and is
	// cancelled once every close has returned or the grace period ends.
	closeCtx, cancel := context.WithTimeout(Detach(ctx), shutdownGracePeriod)
	var closing sync.WaitGroup
	for _, s := range toClose {
		closing.Add(1)
		go func(s *Session) {
			defer closing.Done()
			if err := s.Close(closeCtx); err != nil {
				m.logger.Warn("Error during session close in shutdown.", zap.String("session_id", s.ID()), zap.Error(err))
			}
		}(s)
	}

	// 3. Wait for the closes started above, not for sessions opened later.
	done := make(chan struct{})
	go func() {
		defer cancel()
		closing.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Debug("All sessions closed gracefully.")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for sessions to close: %w", ctx.Err())
	}
}
