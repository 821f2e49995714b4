package history

import (
	"sync/atomic"
	"testing"
	"time"
)

type countingPruner struct {
	calls atomic.Int32
}

func (p *countingPruner) DeleteBefore(time.Time) (int64, error) {
	p.calls.Add(1)
	return 0, nil
}

func TestRetentionCleaner_Disabled(t *testing.T) {
	if rc := NewRetentionCleaner(&countingPruner{}, RetentionConfig{RetentionDays: 0}); rc != nil {
		t.Fatal("expected nil cleaner when retention is 0")
	}
}

func TestRetentionCleaner_CleansOnStartup(t *testing.T) {
	p := &countingPruner{}
	rc := NewRetentionCleaner(p, RetentionConfig{RetentionDays: 1})
	defer rc.Stop()
	if got := p.calls.Load(); got != 1 {
		t.Errorf("calls after start = %d, want 1", got)
	}
}

func TestRetentionCleaner_Ticks(t *testing.T) {
	p := &countingPruner{}
	rc := NewRetentionCleaner(p, RetentionConfig{RetentionDays: 1, Interval: 10 * time.Millisecond})
	defer rc.Stop()
	deadline := time.Now().Add(2 * time.Second)
	for p.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := p.calls.Load(); got < 3 {
		t.Errorf("calls = %d, want at least 3", got)
	}
}

func TestRetentionCleaner_StopIsIdempotent(t *testing.T) {
	cleaner := NewRetentionCleaner(newTestStore(t), RetentionConfig{RetentionDays: 1})
	if cleaner == nil {
		t.Fatal("expected non-nil retention cleaner")
	}
	cleaner.Stop()
	cleaner.Stop()
}
