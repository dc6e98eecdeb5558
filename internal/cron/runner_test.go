package cronrunner

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunner_RejectsBadSpec(t *testing.T) {
	r := New(nil, context.Background())
	if _, err := r.Add("not a spec", func(context.Context) {}); err == nil {
		t.Fatalf("expected error for bad spec")
	}
}

func TestRunner_SkipsOverlappingRuns(t *testing.T) {
	r := New(nil, context.Background())
	var started atomic.Int32
	release := make(chan struct{})
	if _, err := r.Add("* * * * * *", func(context.Context) {
		started.Add(1)
		<-release
	}); err != nil {
		t.Fatalf("add err=%v", err)
	}
	r.Start()
	time.Sleep(2500 * time.Millisecond)
	close(release)
	r.Stop()
	if got := started.Load(); got != 1 {
		t.Fatalf("started=%d want=1", got)
	}
}

func TestRunner_CancelledBaseContextSkipsJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := New(nil, ctx)
	var ran atomic.Bool
	if _, err := r.Add("* * * * * *", func(context.Context) { ran.Store(true) }); err != nil {
		t.Fatalf("add err=%v", err)
	}
	r.Start()
	time.Sleep(1500 * time.Millisecond)
	r.Stop()
	if ran.Load() {
		t.Fatalf("job ran after base context was cancelled")
	}
}
