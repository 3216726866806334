package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockExpirer struct {
	calls atomic.Int32
	err   error
}

func (m *mockExpirer) ExpireIdle(context.Context) (int, error) {
	m.calls.Add(1)
	return 1, m.err
}

func TestJanitor_SweepsOnInterval(t *testing.T) {
	exp := &mockExpirer{}
	j := NewJanitor(exp, 5*time.Millisecond, zap.NewNop())

	require.NoError(t, j.Start(context.Background()))
	assert.Error(t, j.Start(context.Background()), "second start must fail")

	assert.Eventually(t, func() bool { return exp.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, j.Stop())
	require.NoError(t, j.Stop(), "stop is idempotent")

	after := exp.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, exp.calls.Load(), "no sweeps after stop")
}

func TestJanitor_LogsErrors(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	exp := &mockExpirer{err: errors.New("store closed")}
	j := NewJanitor(exp, 5*time.Millisecond, zap.New(core))

	require.NoError(t, j.Start(context.Background()))
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("Failed to expire idle drafts").Len() > 0
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, j.Stop())
}

func TestJanitor_DefaultInterval(t *testing.T) {
	j := NewJanitor(&mockExpirer{}, 0, nil)
	assert.Equal(t, DefaultJanitorInterval, j.interval)
	assert.Equal(t, "DraftJanitor", j.Name())
}

type stubWorker struct {
	name     string
	startErr error
	started  atomic.Bool
	stopped  atomic.Bool
}

func (s *stubWorker) Start(context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.started.Store(true)
	return nil
}

func (s *stubWorker) Stop() error {
	s.stopped.Store(true)
	return nil
}

func (s *stubWorker) Name() string { return s.name }

func TestManager_Lifecycle(t *testing.T) {
	m := NewManager(zap.NewNop())
	ok := &stubWorker{name: "ok"}
	broken := &stubWorker{name: "broken", startErr: errors.New("no")}
	m.Register(ok)
	m.Register(broken)
	assert.Equal(t, 2, m.Count())

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.Running())
	assert.Error(t, m.StartAll(context.Background()))
	assert.True(t, ok.started.Load())

	require.NoError(t, m.StopAll())
	assert.False(t, m.Running())
	assert.True(t, ok.stopped.Load())
	require.NoError(t, m.StopAll())
}

func TestManager_RunStopsOnCancel(t *testing.T) {
	m := NewManager(nil)
	exp := &mockExpirer{}
	m.Register(NewJanitor(exp, time.Millisecond, nil))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- m.Run(ctx) }()

	assert.Eventually(t, func() bool { return exp.calls.Load() > 0 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, m.Running())
}
