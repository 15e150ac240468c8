package budget

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestTryReserveEnforcesLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.json")
	tr, err := NewTracker(path, 3)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	for i := 0; i < 3; i++ {
		if !tr.TryReserve(1) {
			t.Fatalf("reservation %d should succeed", i+1)
		}
	}
	if tr.TryReserve(1) {
		t.Fatalf("fourth reservation should fail at limit 3")
	}

	tr.Release(1)
	if !tr.TryReserve(1) {
		t.Fatalf("reservation after release should succeed")
	}
}

func TestCommitPersistsUsage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.json")
	tr, err := NewTracker(path, 10)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	if !tr.TryReserve(2) {
		t.Fatalf("TryReserve(2) failed")
	}
	tr.Commit(2)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read budget file: %v", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatalf("unmarshal budget file: %v", err)
	}
	if state.RequestsUsed != 2 {
		t.Fatalf("persisted usage = %d, want 2", state.RequestsUsed)
	}

	// A fresh tracker over the same file sees the prior usage.
	tr2, err := NewTracker(path, 10)
	if err != nil {
		t.Fatalf("NewTracker reload: %v", err)
	}
	if got := tr2.Remaining(); got != 8 {
		t.Fatalf("Remaining after reload = %d, want 8", got)
	}
}

func TestConcurrentReservationsNeverExceedLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.json")
	const limit = 50
	tr, err := NewTracker(path, limit)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.TryReserve(1) {
				tr.Commit(1)
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != limit {
		t.Fatalf("granted %d reservations, want exactly %d", granted, limit)
	}
	if got := tr.Snapshot().RequestsUsed; got != limit {
		t.Fatalf("RequestsUsed = %d, want %d", got, limit)
	}
}

func TestDayRolloverResetsUsage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.json")
	tr, err := NewTracker(path, 5)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	current := time.Date(2025, 6, 1, 23, 50, 0, 0, time.UTC)
	tr.now = func() time.Time { return current }

	for i := 0; i < 5; i++ {
		if !tr.TryReserve(1) {
			t.Fatalf("reservation %d failed", i+1)
		}
		tr.Commit(1)
	}
	if tr.TryReserve(1) {
		t.Fatalf("budget should be exhausted")
	}

	// Cross UTC midnight.
	current = current.Add(20 * time.Minute)
	if got := tr.Remaining(); got != 5 {
		t.Fatalf("Remaining after rollover = %d, want 5", got)
	}
	if !tr.TryReserve(1) {
		t.Fatalf("reservation after rollover should succeed")
	}
}

func TestCorruptBudgetFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	tr, err := NewTracker(path, 7)
	if err != nil {
		t.Fatalf("NewTracker over corrupt file: %v", err)
	}
	if got := tr.Remaining(); got != 7 {
		t.Fatalf("Remaining = %d, want 7", got)
	}
}
