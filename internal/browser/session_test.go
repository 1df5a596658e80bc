// internal/browser/session_test.go
package browser

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSessionClose(t *testing.T) {
	t.Run("should release layers in reverse acquisition order", func(t *testing.T) {
		// Arrange
		log := &releaseLog{}
		s := NewSession("fake", stubPage{}, []Releaser{
			log.releaser("runtime", nil),
			log.releaser("browser", nil),
			log.releaser("context", nil),
			log.releaser("page", nil),
		}, zap.NewNop())

		// Act
		err := s.Close(context.Background())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []string{"page", "context", "browser", "runtime"}, log.names())
		assert.True(t, s.Closed())
	})

	t.Run("should keep releasing after a failure and join errors", func(t *testing.T) {
		log := &releaseLog{}
		s := NewSession("fake", stubPage{}, []Releaser{
			log.releaser("runtime", nil),
			{Name: "browser", Release: func(context.Context) error { panic("boom") }},
			log.releaser("page", errRelease),
		}, zap.NewNop())

		err := s.Close(context.Background())

		require.Error(t, err)
		assert.ErrorIs(t, err, errRelease)
		assert.Contains(t, err.Error(), "release browser: panic during release: boom")
		assert.Equal(t, []string{"page", "runtime"}, log.names())
	})

	t.Run("should run exactly once under concurrent calls", func(t *testing.T) {
		log := &releaseLog{}
		calls := 0
		s := NewSession("fake", stubPage{}, []Releaser{log.releaser("page", errRelease)}, zap.NewNop())
		s.SetOnClose(func() { calls++ })

		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = s.Close(context.Background())
			}(i)
		}
		wg.Wait()

		assert.Equal(t, []string{"page"}, log.names())
		assert.Equal(t, 1, calls)
		// Exactly one caller performs the release; the rest see the stored result
		// once it is available, or nil if they raced ahead of it.
		failures := 0
		for _, err := range errs {
			if err != nil {
				assert.ErrorIs(t, err, errRelease)
				failures++
			}
		}
		assert.GreaterOrEqual(t, failures, 1)
		assert.ErrorIs(t, s.Close(context.Background()), errRelease)
	})

	t.Run("should expose identity", func(t *testing.T) {
		s := NewSession("chromedp", stubPage{}, nil, zap.NewNop())
		assert.NotEmpty(t, s.ID())
		assert.Equal(t, "chromedp", s.Driver())
		assert.NotNil(t, s.Page())
		assert.NoError(t, s.Close(context.Background()))
	})
}

func TestReleaseAll(t *testing.T) {
	log := &releaseLog{}
	err := releaseAll(context.Background(), []Releaser{
		log.releaser("runtime", nil),
		log.releaser("browser", errRelease),
		{Name: "nil"},
	})
	assert.ErrorIs(t, err, errRelease)
	assert.Equal(t, []string{"browser", "runtime"}, log.names())
}
