// internal/browser/manager_test.go
package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewManager(t *testing.T) {
	t.Run("should select the configured driver", func(t *testing.T) {
		for _, driver := range []string{config.DriverChromedp, config.DriverPlaywright, config.DriverRod} {
			cfg := config.NewDefaultConfig().Browser()
			cfg.Driver = driver

			m, err := NewManager(cfg, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, driver, m.DriverName())
		}
	})

	t.Run("should reject unknown drivers", func(t *testing.T) {
		cfg := config.NewDefaultConfig().Browser()
		cfg.Driver = "selenium"
		_, err := NewManager(cfg, zap.NewNop())
		assert.ErrorContains(t, err, "unknown browser driver")
	})
}

func TestManagerSessions(t *testing.T) {
	t.Run("should track sessions until they close", func(t *testing.T) {
		// Arrange
		log := &releaseLog{}
		m := NewManagerWithDriver(&fakeDriver{log: log}, zaptest.NewLogger(t))

		// Act
		s, err := m.NewSession(context.Background())
		require.NoError(t, err)

		// Assert
		assert.Equal(t, 1, m.Active())
		require.NoError(t, s.Close(context.Background()))
		assert.Equal(t, 0, m.Active())
		assert.Equal(t, []string{"page", "context", "browser", "runtime"}, log.names())
	})

	t.Run("should wrap driver failures", func(t *testing.T) {
		boom := errors.New("no chromium")
		m := NewManagerWithDriver(&fakeDriver{log: &releaseLog{}, openErr: boom}, zap.NewNop())

		_, err := m.NewSession(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, m.Active())
	})

	t.Run("Shutdown closes sessions left open", func(t *testing.T) {
		log := &releaseLog{}
		m := NewManagerWithDriver(&fakeDriver{log: log}, zap.NewNop())
		for i := 0; i < 3; i++ {
			_, err := m.NewSession(context.Background())
			require.NoError(t, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, m.Shutdown(ctx))

		assert.Equal(t, 0, m.Active())
		assert.Len(t, log.names(), 12)
	})

	t.Run("Shutdown returns at the deadline without cutting closes short", func(t *testing.T) {
		d := &blockingDriver{release: make(chan struct{}), finished: make(chan error, 1)}
		m := NewManagerWithDriver(d, zap.NewNop())
		_, err := m.NewSession(context.Background())
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		err = m.Shutdown(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 1, m.Active())

		close(d.release)
		select {
		case err := <-d.finished:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("session close never finished")
		}
		assert.Eventually(t, func() bool { return m.Active() == 0 }, 5*time.Second, 10*time.Millisecond)
	})
}
