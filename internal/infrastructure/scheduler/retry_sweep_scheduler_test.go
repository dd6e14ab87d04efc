package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appetims "github.com/dukapos/backend/internal/application/etims"
)

type fakeSweepRunner struct {
	calls  atomic.Int32
	report appetims.SweepReport
	err    error
}

func (f *fakeSweepRunner) RetrySweep(ctx context.Context, limit int) (appetims.SweepReport, error) {
	f.calls.Add(1)
	if f.err != nil {
		return appetims.SweepReport{}, f.err
	}
	return f.report, nil
}

func newSchedulerTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func TestRetrySweepScheduler_RunsSweepsOnInterval(t *testing.T) {
	runner := &fakeSweepRunner{report: appetims.SweepReport{Attempted: 2, Approved: 2}}
	scheduler := NewRetrySweepScheduler(runner, newSchedulerTestLogger(), RetrySweepSchedulerConfig{
		Enabled:       true,
		SweepInterval: 20 * time.Millisecond,
		BatchSize:     10,
		SweepTimeout:  15 * time.Millisecond,
	})

	require.NoError(t, scheduler.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return runner.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, scheduler.Stop(context.Background()))
}

func TestRetrySweepScheduler_DisabledDoesNothing(t *testing.T) {
	runner := &fakeSweepRunner{}
	scheduler := NewRetrySweepScheduler(runner, newSchedulerTestLogger(), RetrySweepSchedulerConfig{
		Enabled:       false,
		SweepInterval: 5 * time.Millisecond,
		BatchSize:     10,
		SweepTimeout:  time.Millisecond,
	})

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, int32(0), runner.calls.Load())
	require.NoError(t, scheduler.Stop(context.Background()))
}

func TestRetrySweepScheduler_StopHaltsSweeps(t *testing.T) {
	runner := &fakeSweepRunner{}
	scheduler := NewRetrySweepScheduler(runner, newSchedulerTestLogger(), RetrySweepSchedulerConfig{
		Enabled:       true,
		SweepInterval: 10 * time.Millisecond,
		BatchSize:     10,
		SweepTimeout:  5 * time.Millisecond,
	})

	require.NoError(t, scheduler.Start(context.Background()))
	assert.Eventually(t, func() bool {
		return runner.calls.Load() >= 1
	}, time.Second, 2*time.Millisecond)

	require.NoError(t, scheduler.Stop(context.Background()))
	after := runner.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, runner.calls.Load())
}

func TestRetrySweepScheduler_StartIsIdempotent(t *testing.T) {
	runner := &fakeSweepRunner{}
	scheduler := NewRetrySweepScheduler(runner, newSchedulerTestLogger(), RetrySweepSchedulerConfig{
		Enabled:       true,
		SweepInterval: time.Hour,
		BatchSize:     10,
		SweepTimeout:  time.Minute,
	})

	require.NoError(t, scheduler.Start(context.Background()))
	require.NoError(t, scheduler.Start(context.Background()))
	require.NoError(t, scheduler.Stop(context.Background()))
	require.NoError(t, scheduler.Stop(context.Background()))
}

func TestRetrySweepScheduler_SweepErrorKeepsLoopAlive(t *testing.T) {
	runner := &fakeSweepRunner{err: errors.New("no active configuration")}
	scheduler := NewRetrySweepScheduler(runner, newSchedulerTestLogger(), RetrySweepSchedulerConfig{
		Enabled:       true,
		SweepInterval: 10 * time.Millisecond,
		BatchSize:     10,
		SweepTimeout:  5 * time.Millisecond,
	})

	require.NoError(t, scheduler.Start(context.Background()))
	assert.Eventually(t, func() bool {
		return runner.calls.Load() >= 3
	}, time.Second, 2*time.Millisecond)
	require.NoError(t, scheduler.Stop(context.Background()))
}

func TestDefaultRetrySweepSchedulerConfig(t *testing.T) {
	cfg := DefaultRetrySweepSchedulerConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Less(t, cfg.SweepTimeout, cfg.SweepInterval)
}
