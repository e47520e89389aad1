package daemon

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestScheduler_RunsAndRecordsErrors(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(ctx)
	s.SetTiming(5*time.Millisecond, 0)

	var ok, bad atomic.Int32
	s.AddJob(&Job{Name: "ok", Interval: 20 * time.Millisecond, Run: func(ctx context.Context) error {
		ok.Add(1)
		return nil
	}})
	s.AddJob(&Job{Name: "bad", Interval: 20 * time.Millisecond, Run: func(ctx context.Context) error {
		bad.Add(1)
		return errors.New("boom")
	}})
	s.AddJob(&Job{Name: "disabled", Interval: 0, Run: func(ctx context.Context) error {
		t.Error("disabled job ran")
		return nil
	}})

	done := make(chan struct{})
	go func() {
		s.Run()
		close(done)
	}()

	waitFor(t, 2*time.Second, func() bool { return ok.Load() >= 2 && bad.Load() >= 2 })
	cancel()
	<-done

	statuses := s.GetJobStatuses()
	if len(statuses) != 2 {
		t.Fatalf("statuses=%+v", statuses)
	}
	for _, st := range statuses {
		switch st.Name {
		case "ok":
			if st.ErrorCount != 0 || st.LastError != "" || st.RunCount < 2 {
				t.Fatalf("ok status=%+v", st)
			}
		case "bad":
			if st.ErrorCount < 2 || st.LastError != "boom" {
				t.Fatalf("bad status=%+v", st)
			}
		}
	}
}

func TestScheduler_TriggerJob(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewScheduler(ctx)
	s.SetTiming(5*time.Millisecond, time.Hour)

	var runs atomic.Int32
	s.AddJob(&Job{Name: "slow", Interval: time.Hour, Run: func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}})

	go s.Run()

	if s.TriggerJob("missing") {
		t.Fatal("triggered unknown job")
	}
	if !s.TriggerJob("slow") {
		t.Fatal("trigger failed")
	}
	waitFor(t, 2*time.Second, func() bool { return runs.Load() == 1 })
}
