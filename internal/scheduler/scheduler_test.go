package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewScheduler_Defaults(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	require.Equal(t, PolicyFIFO, s.Policy())
	require.Equal(t, int32(10), s.Config().MaxActiveTasks)
	require.Equal(t, "default-scheduler", s.Name())
}

func TestScheduler_AdmitAndRelease(t *testing.T) {
	s := NewScheduler(SchedulerConfig{MaxActiveTasks: 2})
	ctx := context.Background()

	r1, err := s.Admit(ctx, &TaskInfo{RunID: "a", TaskName: "t"})
	require.NoError(t, err)
	r2, err := s.Admit(ctx, &TaskInfo{RunID: "b", TaskName: "t"})
	require.NoError(t, err)
	require.Equal(t, 2, s.GetActiveTaskCount())
	require.Equal(t, 2, s.GetActiveRunCount())

	r1()
	r1() // releasing twice is harmless
	require.Equal(t, 1, s.GetActiveTaskCount())
	require.Equal(t, 1, s.GetActiveRunCount())

	r2()
	require.Equal(t, 0, s.GetActiveTaskCount())
	require.Equal(t, 0, s.GetActiveRunCount())
}

func TestScheduler_BlocksWhenFull(t *testing.T) {
	s := NewScheduler(SchedulerConfig{MaxActiveTasks: 1})

	release, err := s.Admit(context.Background(), &TaskInfo{RunID: "a"})
	require.NoError(t, err)

	admitted := make(chan func())
	go func() {
		r, err := s.Admit(context.Background(), &TaskInfo{RunID: "b"})
		if err == nil {
			admitted <- r
		}
	}()

	select {
	case <-admitted:
		t.Fatal("second task admitted while the only slot was taken")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case r := <-admitted:
		r()
	case <-time.After(time.Second):
		t.Fatal("second task was not admitted after release")
	}
}

func TestScheduler_AdmitHonoursContext(t *testing.T) {
	s := NewScheduler(SchedulerConfig{MaxActiveTasks: 1})
	release, err := s.Admit(context.Background(), &TaskInfo{RunID: "a"})
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Admit(ctx, &TaskInfo{RunID: "b"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, s.GetActiveTaskCount())
}
