package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSchedulerRegisterStartStopLifecycle(t *testing.T) {
	s := New(0)
	require.NoError(t, s.Register(Task{
		Name: "every_minute",
		Spec: "* * * * *",
		Run:  func(ctx context.Context) error { return nil },
	}))

	s.Start()
	s.Stop()
}

func TestSchedulerFireDirectSkipsOverlap(t *testing.T) {
	s := New(0)
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	bt := &boundTask{task: Task{
		Name: "slow",
		Run: func(ctx context.Context) error {
			calls.Add(1)
			close(started)
			<-release
			return nil
		},
	}}

	go s.fire(bt)
	<-started

	// A second fire while the first is still running must be skipped,
	// not queued or run concurrently.
	s.fire(bt)
	require.Equal(t, int32(1), calls.Load())

	close(release)
	time.Sleep(10 * time.Millisecond)
	require.False(t, bt.running.Load())
}

func TestSchedulerFireLogsAndSurvivesTaskError(t *testing.T) {
	s := New(0)
	bt := &boundTask{task: Task{
		Name: "failing",
		Run: func(ctx context.Context) error {
			return errors.New("boom")
		},
	}}

	require.NotPanics(t, func() { s.fire(bt) })
	require.False(t, bt.running.Load(), "running flag must be released even on error")
}

func TestSchedulerFireRecoversFromPanic(t *testing.T) {
	s := New(0)
	bt := &boundTask{task: Task{
		Name: "panics",
		Run: func(ctx context.Context) error {
			panic("kaboom")
		},
	}}

	require.NotPanics(t, func() { s.fire(bt) })
	require.False(t, bt.running.Load())
}

func TestSchedulerRegisterRejectsInvalidSpec(t *testing.T) {
	s := New(0)
	err := s.Register(Task{Name: "bad", Spec: "not-a-cron-spec", Run: func(context.Context) error { return nil }})
	require.Error(t, err)
}

func TestSchedulerTaskTimeoutCancelsContext(t *testing.T) {
	s := New(10 * time.Millisecond)
	var sawDeadline bool
	bt := &boundTask{task: Task{
		Name: "bounded",
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			sawDeadline = ctx.Err() != nil
			return ctx.Err()
		},
	}}

	s.fire(bt)
	require.True(t, sawDeadline)
}
