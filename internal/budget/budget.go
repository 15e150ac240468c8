// Package budget enforces the persistent daily LLM request quota.
package budget

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrBudgetExceeded is returned by callers once the daily ceiling blocks a
// reservation; the run continues with whatever has been aggregated.
var ErrBudgetExceeded = errors.New("daily request budget exceeded")

// State is the persisted budget record. RequestsUsed only grows within a
// calendar day and resets on day rollover.
type State struct {
	Date         string `json:"date"`
	RequestsUsed int    `json:"requests_used"`
	DailyLimit   int    `json:"daily_limit"`
}

// Tracker serializes reservation attempts against the persisted state so the
// ceiling holds even under concurrent batch dispatch. The day boundary is the
// UTC calendar date.
type Tracker struct {
	mu       sync.Mutex
	path     string
	state    State
	reserved int
	now      func() time.Time
}

// NewTracker loads or creates the budget file at path. A persisted limit that
// disagrees with dailyLimit is overwritten; usage is kept.
func NewTracker(path string, dailyLimit int) (*Tracker, error) {
	if dailyLimit <= 0 {
		return nil, fmt.Errorf("daily limit must be positive")
	}

	t := &Tracker{path: path, now: time.Now}

	state, err := t.load()
	if err != nil {
		return nil, err
	}
	state.DailyLimit = dailyLimit
	t.state = state

	if err := t.persist(); err != nil {
		return nil, err
	}
	return t, nil
}

// TryReserve atomically reserves n request units. It returns false with no
// state change when used+reserved+n would exceed the daily limit. Callers
// must follow up with Commit or Release.
func (t *Tracker) TryReserve(n int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rolloverLocked()

	if t.state.RequestsUsed+t.reserved+n > t.state.DailyLimit {
		return false
	}
	t.reserved += n
	return true
}

// Commit converts n reserved units into used units and persists the state.
// Each issued request is committed regardless of its outcome.
func (t *Tracker) Commit(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.reserved -= n
	if t.reserved < 0 {
		t.reserved = 0
	}
	t.state.RequestsUsed += n
	if err := t.persist(); err != nil {
		// Enforcement continues in memory; persistence failure only risks a
		// more generous quota after a crash.
		fmt.Fprintf(os.Stderr, "warning: budget persist failed: %v\n", err)
	}
}

// Release returns n reserved units without consuming budget, used when a
// reservation was made but no request was issued.
func (t *Tracker) Release(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.reserved -= n
	if t.reserved < 0 {
		t.reserved = 0
	}
}

// Remaining reports how many requests are still available today.
func (t *Tracker) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rolloverLocked()

	rem := t.state.DailyLimit - t.state.RequestsUsed - t.reserved
	if rem < 0 {
		return 0
	}
	return rem
}

// Snapshot returns a copy of the persisted state.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rolloverLocked()
	return t.state
}

// Stats returns a short usage summary for display.
func (t *Tracker) Stats() string {
	s := t.Snapshot()
	pct := 0.0
	if s.DailyLimit > 0 {
		pct = float64(s.RequestsUsed) / float64(s.DailyLimit) * 100
	}
	return fmt.Sprintf("%d/%d requests (%.1f%%)", s.RequestsUsed, s.DailyLimit, pct)
}

// rolloverLocked resets usage when the UTC calendar date has changed.
// Callers must hold mu.
func (t *Tracker) rolloverLocked() {
	today := t.now().UTC().Format("2006-01-02")
	if t.state.Date != today {
		t.state.Date = today
		t.state.RequestsUsed = 0
		t.reserved = 0
		if err := t.persist(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: budget persist failed: %v\n", err)
		}
	}
}

func (t *Tracker) load() (State, error) {
	today := t.now().UTC().Format("2006-01-02")
	fresh := State{Date: today}

	data, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fresh, nil
		}
		return fresh, fmt.Errorf("read budget file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		// A corrupt budget file starts a fresh day rather than killing runs.
		return fresh, nil
	}
	if state.Date != today {
		return fresh, nil
	}
	return state, nil
}

func (t *Tracker) persist() error {
	data, err := json.MarshalIndent(t.state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(t.path, data, 0o644)
}
