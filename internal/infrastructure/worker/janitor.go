package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultJanitorInterval is how often idle drafts are swept
const DefaultJanitorInterval = 5 * time.Minute

// Expirer removes drafts that have been idle too long
type Expirer interface {
	ExpireIdle(ctx context.Context) (int, error)
}

// Janitor periodically expires idle drafts
type Janitor struct {
	expirer  Expirer
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewJanitor creates a janitor sweeping every interval
func NewJanitor(expirer Expirer, interval time.Duration, logger *zap.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{expirer: expirer, interval: interval, logger: logger}
}

// Name returns the worker name
func (j *Janitor) Name() string {
	return "DraftJanitor"
}

// Start launches the sweep loop
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return errors.New("draft janitor is already running")
	}

	var loopCtx context.Context
	loopCtx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})
	j.running = true

	j.logger.Info("DraftJanitor started", zap.Duration("interval", j.interval))
	go j.loop(loopCtx, j.done)
	return nil
}

// Stop cancels the loop and waits for it to exit
func (j *Janitor) Stop() error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = false
	j.cancel()
	done := j.done
	j.mu.Unlock()

	<-done
	j.logger.Info("DraftJanitor stopped")
	return nil
}

func (j *Janitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	n, err := j.expirer.ExpireIdle(ctx)
	if err != nil {
		j.logger.Error("Failed to expire idle drafts", zap.Error(err))
		return
	}
	if n > 0 {
		j.logger.Debug("Swept idle drafts", zap.Int("expired", n))
	}
}
