// Package dispatcher fans draft events out to in-process handlers.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/expense-wizard/internal/domain/event"
)

// ErrClosed is returned when publishing after Close
var ErrClosed = errors.New("dispatcher is closed")

// Dispatcher routes events to registered handlers
type Dispatcher interface {
	// Subscribe registers a named handler for an event type
	Subscribe(eventType event.Type, name string, handler Handler)

	// SubscribeAll registers a handler for every event type
	SubscribeAll(name string, handler Handler)

	// Dispatch runs handlers in registration order and stops at the first error
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync runs each handler on its own goroutine. Errors are logged.
	DispatchAsync(ctx context.Context, evt *event.Event)

	// Handlers returns the handler names registered for an event type
	Handlers(eventType event.Type) []string

	// Close waits for async handlers and rejects further events
	Close() error
}

// mu also orders closed against wg.Add so Close never waits on a
// zero counter that DispatchAsync is about to raise.
type eventDispatcher struct {
	mu       sync.RWMutex
	handlers map[event.Type][]subscription
	all      []subscription
	logger   *zap.Logger

	wg     sync.WaitGroup
	closed atomic.Bool
}

// New creates a dispatcher. A nil logger discards output.
func New(logger *zap.Logger) Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &eventDispatcher{
		handlers: make(map[event.Type][]subscription),
		logger:   logger,
	}
}

func (d *eventDispatcher) Subscribe(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[eventType] = append(d.handlers[eventType], subscription{name: name, handler: handler})
	d.logger.Debug("Handler registered", zap.String("event_type", eventType.String()), zap.String("handler", name))
}

func (d *eventDispatcher) SubscribeAll(name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.all = append(d.all, subscription{name: name, handler: handler})
	d.logger.Debug("Handler registered for all events", zap.String("handler", name))
}

// snapshot returns the handlers for an event type followed by the catch-all ones
func (d *eventDispatcher) snapshot(eventType event.Type) []subscription {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.subscriptionsLocked(eventType)
}

func (d *eventDispatcher) subscriptionsLocked(eventType event.Type) []subscription {
	subs := make([]subscription, 0, len(d.handlers[eventType])+len(d.all))
	subs = append(subs, d.handlers[eventType]...)
	return append(subs, d.all...)
}

func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return ErrClosed
	}

	for _, sub := range d.snapshot(evt.Type) {
		if err := d.safeExecute(ctx, evt, sub); err != nil {
			d.logger.Error("Handler failed",
				zap.String("event_type", evt.Type.String()),
				zap.String("report_id", evt.ReportID),
				zap.String("handler", sub.name),
				zap.Error(err))
			return fmt.Errorf("handler %s: %w", sub.name, err)
		}
	}
	return nil
}

func (d *eventDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	d.mu.RLock()
	if d.closed.Load() {
		d.mu.RUnlock()
		d.logger.Warn("Dropping event after close",
			zap.String("event_type", evt.Type.String()),
			zap.String("report_id", evt.ReportID))
		return
	}
	subs := d.subscriptionsLocked(evt.Type)
	d.wg.Add(len(subs))
	d.mu.RUnlock()

	for _, sub := range subs {
		go func(sub subscription) {
			defer d.wg.Done()
			if err := d.safeExecute(ctx, evt, sub); err != nil {
				d.logger.Error("Async handler failed",
					zap.String("event_type", evt.Type.String()),
					zap.String("report_id", evt.ReportID),
					zap.String("handler", sub.name),
					zap.Error(err))
			}
		}(sub)
	}
}

func (d *eventDispatcher) Handlers(eventType event.Type) []string {
	subs := d.snapshot(eventType)
	names := make([]string, len(subs))
	for i, s := range subs {
		names[i] = s.name
	}
	return names
}

func (d *eventDispatcher) Close() error {
	d.mu.Lock()
	if !d.closed.CompareAndSwap(false, true) {
		d.mu.Unlock()
		return ErrClosed
	}
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("Dispatcher closed")
	return nil
}

func (d *eventDispatcher) safeExecute(ctx context.Context, evt *event.Event, sub subscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return sub.handler(ctx, evt)
}
