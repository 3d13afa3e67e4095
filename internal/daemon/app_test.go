// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuGH/salesinsights/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type blockingManager struct {
	startErr error
}

func (m *blockingManager) Start(ctx context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}
	<-ctx.Done()
	return nil
}

func (m *blockingManager) Shutdown(context.Context) error          { return nil }
func (m *blockingManager) RegisterShutdownHook(string, ShutdownHook) {}

type fakeReloader struct {
	watching atomic.Int32
	reloads  atomic.Int32
}

func (f *fakeReloader) Reload(context.Context) error {
	f.reloads.Add(1)
	return nil
}

func (f *fakeReloader) Watch(ctx context.Context, _ time.Duration) error {
	f.watching.Add(1)
	<-ctx.Done()
	return nil
}

func TestApp_RunStartsWatcher(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	data := &fakeReloader{}
	app := NewApp(log.WithComponent("test"), &blockingManager{}, data, true)
	app.reloadSignal = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool { return data.watching.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestApp_WatchDisabled(t *testing.T) {
	data := &fakeReloader{}
	app := NewApp(log.WithComponent("test"), &blockingManager{}, data, false)
	app.reloadSignal = nil

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, app.Run(ctx))
	assert.Zero(t, data.watching.Load())
}

func TestApp_ManagerErrorStopsRun(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	boom := errors.New("bind failed")
	data := &fakeReloader{}
	app := NewApp(log.WithComponent("test"), &blockingManager{startErr: boom}, data, true)
	app.reloadSignal = nil

	err := app.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestApp_MissingManager(t *testing.T) {
	app := NewApp(log.WithComponent("test"), nil, nil, false)
	assert.ErrorIs(t, app.Run(context.Background()), ErrMissingManager)
}
