package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRegister_Validation(t *testing.T) {
	s := New(Config{})
	job := JobFunc{JobName: "a", Fn: func(context.Context) error { return nil }}

	assert.ErrorIs(t, s.Register(nil, Every(time.Minute)), ErrNilJob)
	assert.ErrorIs(t, s.Register(job, nil), ErrNilSchedule)
	require.NoError(t, s.Register(job, Every(time.Minute)))
	assert.ErrorIs(t, s.Register(job, Every(time.Minute)), ErrJobAlreadyExists)

	_, err := s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestRunNow_RecordsFailuresAndPanics(t *testing.T) {
	s := New(Config{})
	require.NoError(t, s.Register(JobFunc{JobName: "fail", Fn: func(context.Context) error { return errors.New("boom") }}, Every(time.Hour)))
	require.NoError(t, s.Register(JobFunc{JobName: "panic", Fn: func(context.Context) error { panic("oops") }}, Every(time.Hour)))

	res, err := s.RunNow(context.Background(), "fail")
	require.NoError(t, err)
	assert.False(t, res.Success())
	assert.EqualError(t, res.Err, "boom")

	res, err = s.RunNow(context.Background(), "panic")
	require.NoError(t, err)
	assert.Contains(t, res.Err.Error(), "panicked")

	for _, info := range s.Jobs() {
		assert.EqualValues(t, 1, info.RunCount, info.Name)
		assert.EqualValues(t, 1, info.FailCount, info.Name)
		assert.False(t, info.Running)
	}
}

func TestStartStop_RunsDueJobs(t *testing.T) {
	s := New(Config{Tick: 5 * time.Millisecond})
	var runs atomic.Int32
	done := make(chan struct{}, 10)
	require.NoError(t, s.Register(JobFunc{JobName: "tick", Fn: func(context.Context) error {
		runs.Add(1)
		return nil
	}}, Every(time.Millisecond)))
	s.OnJobComplete(func(JobResult) {
		select {
		case done <- struct{}{}:
		default:
		}
	})

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}

	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
	assert.GreaterOrEqual(t, runs.Load(), int32(1))
}

func TestStop_CancelsRunningJob(t *testing.T) {
	s := New(Config{Tick: 5 * time.Millisecond})
	started := make(chan struct{})
	require.NoError(t, s.Register(JobFunc{JobName: "block", Fn: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}, Every(time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	<-started
	require.NoError(t, s.Stop())

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.EqualValues(t, 1, jobs[0].RunCount, "a running job is not started twice")
}

func TestEvery(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, at.Add(time.Hour), Every(time.Hour).Next(at))
	assert.Equal(t, "@every 1h0m0s", Every(time.Hour).String())
}
