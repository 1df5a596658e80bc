// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Releaser frees one layer of the automation stack (page, context, browser, runtime).
type Releaser struct {
	Name    string
	Release func(ctx context.Context) error
}

// Session is a page plus the resources that back it. Close releases them in
// reverse acquisition order exactly once, whatever happened before.
type Session struct {
	id     string
	driver string
	page   Page
	logger *zap.Logger

	mu        sync.Mutex
	releasers []Releaser
	closed    bool
	closeErr  error
	onClose   func()
}

// NewSession wraps page and the releasers acquired while opening it. Releasers
// are given in acquisition order (runtime first, page last).
func NewSession(driver string, page Page, releasers []Releaser, logger *zap.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		id:        id,
		driver:    driver,
		page:      page,
		releasers: releasers,
		logger:    logger.With(zap.String("session_id", id), zap.String("driver", driver)),
	}
}

// ID returns the unique identifier for the session.
func (s *Session) ID() string { return s.id }

// Driver names the automation backend behind the session.
func (s *Session) Driver() string { return s.driver }

// Page returns the page driven by this session.
func (s *Session) Page() Page { return s.page }

// SetOnClose registers a callback run once after all resources are released.
func (s *Session) SetOnClose(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClose = fn
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases page, context, browser and runtime. Every releaser runs even
// if an earlier one fails; the errors are joined. Later calls return the first result.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		err := s.closeErr
		s.mu.Unlock()
		return err
	}
	s.closed = true
	releasers := s.releasers
	s.releasers = nil
	onClose := s.onClose
	s.mu.Unlock()

	s.logger.Debug("Closing browser session.", zap.Int("layers", len(releasers)))

	var errs []error
	for i := len(releasers) - 1; i >= 0; i-- {
		r := releasers[i]
		if err := release(ctx, r); err != nil {
			s.logger.Warn("Failed to release session resource.", zap.String("resource", r.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("release %s: %w", r.Name, err))
		}
	}
	err := errors.Join(errs...)

	s.mu.Lock()
	s.closeErr = err
	s.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	return err
}

// release runs one releaser, converting a panic into an error so the rest of
// the stack is still released.
func release(ctx context.Context, r Releaser) (err error) {
	if r.Release == nil {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic during release: %v", rec)
		}
	}()
	return r.Release(ctx)
}

// releaseAll is used by drivers to unwind a partially opened session.
func releaseAll(ctx context.Context, releasers []Releaser) error {
	var errs []error
	for i := len(releasers) - 1; i >= 0; i-- {
		if err := release(ctx, releasers[i]); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", releasers[i].Name, err))
		}
	}
	return errors.Join(errs...)
}
