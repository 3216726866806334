package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/garyjia/expense-wizard/internal/domain/event"
)

func noop(context.Context, *event.Event) error { return nil }

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestDispatch_RunsHandlersInOrder(t *testing.T) {
	d := New(nil)
	var order []string

	d.Subscribe(event.TypeLineSaved, "first", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "first")
		return nil
	})
	d.Subscribe(event.TypeLineSaved, "second", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "second")
		return nil
	})
	d.SubscribeAll("audit", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "audit")
		return nil
	})

	require.NoError(t, d.Dispatch(context.Background(), event.New(event.TypeLineSaved, "r-1", nil)))
	assert.Equal(t, []string{"first", "second", "audit"}, order)
}

func TestDispatch_OnlyMatchingType(t *testing.T) {
	d := New(nil)
	called := false
	d.Subscribe(event.TypeReportFinalized, "ack", func(ctx context.Context, evt *event.Event) error {
		called = true
		return nil
	})

	require.NoError(t, d.Dispatch(context.Background(), event.New(event.TypeLineDeleted, "r-1", nil)))
	assert.False(t, called)
}

func TestDispatch_StopsAtFirstError(t *testing.T) {
	logger, logs := observed()
	d := New(logger)
	boom := errors.New("boom")
	second := false

	d.Subscribe(event.TypeLineSaved, "failing", func(ctx context.Context, evt *event.Event) error { return boom })
	d.Subscribe(event.TypeLineSaved, "after", func(ctx context.Context, evt *event.Event) error {
		second = true
		return nil
	})

	err := d.Dispatch(context.Background(), event.New(event.TypeLineSaved, "r-1", nil))

	assert.ErrorIs(t, err, boom)
	assert.False(t, second)
	assert.Equal(t, 1, logs.FilterMessage("Handler failed").Len())
}

func TestDispatch_RecoversPanic(t *testing.T) {
	d := New(nil)
	d.Subscribe(event.TypeLineSaved, "panics", func(ctx context.Context, evt *event.Event) error {
		panic("kaboom")
	})

	err := d.Dispatch(context.Background(), event.New(event.TypeLineSaved, "r-1", nil))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestDispatchAsync_CloseWaits(t *testing.T) {
	d := New(nil)
	var done atomic.Int32

	for _, name := range []string{"a", "b"} {
		d.Subscribe(event.TypeReportFinalized, name, func(ctx context.Context, evt *event.Event) error {
			time.Sleep(20 * time.Millisecond)
			done.Add(1)
			return nil
		})
	}

	d.DispatchAsync(context.Background(), event.New(event.TypeReportFinalized, "r-1", nil))
	require.NoError(t, d.Close())

	assert.Equal(t, int32(2), done.Load())
}

func TestDispatchAsync_RacingClose(t *testing.T) {
	for round := 0; round < 20; round++ {
		d := New(nil)
		var closed, late atomic.Bool
		d.SubscribeAll("h", func(ctx context.Context, evt *event.Event) error {
			time.Sleep(time.Millisecond)
			if closed.Load() {
				late.Store(true)
			}
			return nil
		})

		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				d.DispatchAsync(context.Background(), event.New(event.TypeLineSaved, "r-1", nil))
			}()
		}

		close(start)
		require.NoError(t, d.Close())
		closed.Store(true)
		wg.Wait()

		assert.False(t, late.Load(), "handler ran after Close returned")
	}
}

func TestDispatchAsync_LogsErrors(t *testing.T) {
	logger, logs := observed()
	d := New(logger)
	d.Subscribe(event.TypeReportFinalized, "failing", func(ctx context.Context, evt *event.Event) error {
		return errors.New("lark down")
	})

	d.DispatchAsync(context.Background(), event.New(event.TypeReportFinalized, "r-1", nil))
	require.NoError(t, d.Close())

	assert.Equal(t, 1, logs.FilterMessage("Async handler failed").Len())
}

func TestClose(t *testing.T) {
	logger, logs := observed()
	d := New(logger)
	var called atomic.Bool
	d.Subscribe(event.TypeLineSaved, "h", func(ctx context.Context, evt *event.Event) error {
		called.Store(true)
		return nil
	})

	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.Close(), ErrClosed)
	assert.ErrorIs(t, d.Dispatch(context.Background(), event.New(event.TypeLineSaved, "r-1", nil)), ErrClosed)

	d.DispatchAsync(context.Background(), event.New(event.TypeLineSaved, "r-1", nil))
	assert.False(t, called.Load())
	assert.Equal(t, 1, logs.FilterMessage("Dropping event after close").Len())
}

func TestHandlers(t *testing.T) {
	d := New(nil)
	d.Subscribe(event.TypeLineSaved, "saved", noop)
	d.SubscribeAll("audit", noop)

	assert.Equal(t, []string{"saved", "audit"}, d.Handlers(event.TypeLineSaved))
	assert.Equal(t, []string{"audit"}, d.Handlers(event.TypeLineDeleted))
}

func TestConcurrentSubscribeAndDispatch(t *testing.T) {
	d := New(nil)
	var calls atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Subscribe(event.TypeLineSaved, "h", func(ctx context.Context, evt *event.Event) error {
				calls.Add(1)
				return nil
			})
		}()
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Dispatch(context.Background(), event.New(event.TypeLineSaved, "r-1", nil))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(100), calls.Load())
}
