package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellbeing/internal/clock"
	"wellbeing/internal/infrastructure/logging"
)

var epoch = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for task run")
	}
}

func TestScheduler_RunsTasksOnTheirOwnCadence(t *testing.T) {
	clk := clock.Fake(epoch)
	s := New(clk, logging.NopLogger{})

	fast := make(chan struct{}, 10)
	slow := make(chan struct{}, 10)
	require.NoError(t, s.Add(Task{Name: "sampler", Interval: 10 * time.Second, Run: func(context.Context) error {
		fast <- struct{}{}
		return nil
	}}))
	require.NoError(t, s.Add(Task{Name: "aggregator", Interval: 30 * time.Second, Run: func(context.Context) error {
		slow <- struct{}{}
		return nil
	}}))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	clk.WaitForTimers(2)

	clk.Advance(10 * time.Second)
	waitFor(t, fast)
	clk.Advance(10 * time.Second)
	waitFor(t, fast)
	clk.Advance(10 * time.Second)
	waitFor(t, fast)
	waitFor(t, slow)

	s.Stop()
	assert.Len(t, slow, 0)
	stats := s.Stats()
	assert.Equal(t, int64(1), stats["aggregator"].Runs)
}

func TestScheduler_RunOnStart(t *testing.T) {
	clk := clock.Fake(epoch)
	s := New(clk, logging.NopLogger{})

	ran := make(chan struct{}, 1)
	require.NoError(t, s.Add(Task{Name: "aggregator", Interval: time.Minute, RunOnStart: true, Run: func(context.Context) error {
		ran <- struct{}{}
		return nil
	}}))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	waitFor(t, ran)
}

func TestScheduler_FailuresDoNotStopTheLoop(t *testing.T) {
	clk := clock.Fake(epoch)
	s := New(clk, logging.NopLogger{})

	var calls atomic.Int64
	ran := make(chan struct{}, 10)
	require.NoError(t, s.Add(Task{Name: "sampler", Interval: time.Second, Run: func(context.Context) error {
		defer func() { ran <- struct{}{} }()
		if calls.Add(1) == 1 {
			return errors.New("no focused window")
		}
		return nil
	}}))

	require.NoError(t, s.Start(context.Background()))
	clk.WaitForTimers(1)

	clk.Advance(time.Second)
	waitFor(t, ran)
	clk.Advance(time.Second)
	waitFor(t, ran)
	s.Stop()

	stats := s.Stats()["sampler"]
	assert.Equal(t, int64(2), stats.Runs)
	assert.Equal(t, int64(1), stats.Failures)
	assert.Empty(t, stats.LastError)
}

func TestScheduler_StopWaitsForInFlightRun(t *testing.T) {
	clk := clock.Fake(epoch)
	s := New(clk, logging.NopLogger{})

	started := make(chan struct{})
	var finished atomic.Bool
	require.NoError(t, s.Add(Task{Name: "aggregator", Interval: time.Minute, RunOnStart: true, Run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		finished.Store(true)
		return ctx.Err()
	}}))

	require.NoError(t, s.Start(context.Background()))
	waitFor(t, started)
	s.Stop()
	assert.True(t, finished.Load())
}

func TestScheduler_RunBlocksUntilCancelled(t *testing.T) {
	s := New(clock.Fake(epoch), logging.NopLogger{})
	require.NoError(t, s.Add(Task{Name: "noop", Interval: time.Second, Run: func(context.Context) error { return nil }}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestScheduler_AddValidation(t *testing.T) {
	s := New(clock.Fake(epoch), logging.NopLogger{})
	noop := func(context.Context) error { return nil }

	assert.Error(t, s.Add(Task{Interval: time.Second, Run: noop}))
	assert.Error(t, s.Add(Task{Name: "x", Run: noop}))
	assert.Error(t, s.Add(Task{Name: "x", Interval: time.Second}))
	require.NoError(t, s.Add(Task{Name: "x", Interval: time.Second, Run: noop}))
	assert.Error(t, s.Add(Task{Name: "x", Interval: time.Second, Run: noop}))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	assert.Error(t, s.Start(context.Background()))
	assert.Error(t, s.Add(Task{Name: "y", Interval: time.Second, Run: noop}))
}
