package guard

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestIsDuplicate(t *testing.T) {
	g := New(time.Second, 100*time.Millisecond)
	defer g.Stop()

	if g.IsDuplicate("msg-1") {
		t.Error("First sighting is not a duplicate")
	}
	if !g.IsDuplicate("msg-1") {
		t.Error("Redelivery inside the window must be flagged")
	}
	if g.IsDuplicate("msg-2") {
		t.Error("Different id is not a duplicate")
	}
	if g.IsDuplicate("") {
		t.Error("Empty id never counts as duplicate")
	}

	time.Sleep(120 * time.Millisecond)
	if g.IsDuplicate("msg-1") {
		t.Error("Redelivery after the window is accepted again")
	}
}

func TestThrottled(t *testing.T) {
	g := New(50*time.Millisecond, time.Second)
	defer g.Stop()

	if g.Throttled("chat1") {
		t.Error("First message must pass")
	}
	if !g.Throttled("chat1") {
		t.Error("Immediate follow-up must be throttled")
	}
	if g.Throttled("chat2") {
		t.Error("Other chats are unaffected")
	}

	time.Sleep(60 * time.Millisecond)
	if g.Throttled("chat1") {
		t.Error("Message after the cooldown must pass")
	}
}

func TestTrollCooldownAndExpiry(t *testing.T) {
	g := New(time.Second, time.Second)
	defer g.Stop()

	var fired atomic.Int32
	g.StartTroll("255711111111", 40*time.Millisecond, func() { fired.Add(1) })

	if !g.TrollActive("255711111111") {
		t.Fatal("Cooldown must be active right after start")
	}
	if g.TrollActive("255722222222") {
		t.Error("Other customers are unaffected")
	}

	time.Sleep(100 * time.Millisecond)
	if g.TrollActive("255711111111") {
		t.Error("Cooldown must clear at expiry")
	}
	if fired.Load() != 1 {
		t.Errorf("Re-engagement fired %d times, want 1", fired.Load())
	}
}

func TestTrollReplacementSingleTimer(t *testing.T) {
	g := New(time.Second, time.Second)
	defer g.Stop()

	var first, second atomic.Int32
	g.StartTroll("255711111111", 30*time.Millisecond, func() { first.Add(1) })
	g.StartTroll("255711111111", 30*time.Millisecond, func() { second.Add(1) })

	time.Sleep(100 * time.Millisecond)
	if first.Load() != 0 {
		t.Error("Replaced timer must never fire")
	}
	if second.Load() != 1 {
		t.Errorf("Replacement fired %d times, want 1", second.Load())
	}
}

func TestTrollStaleTimerAfterReplacement(t *testing.T) {
	g := New(time.Second, time.Second)
	defer g.Stop()

	g.StartTroll("255711111111", time.Hour, nil)
	g.mu.Lock()
	stale := g.reEngageGen["255711111111"]
	g.mu.Unlock()

	g.StartTroll("255711111111", time.Hour, nil)

	// What an already-fired timer of the replaced cooldown would do.
	var fired atomic.Int32
	g.expireTroll("255711111111", stale, func() { fired.Add(1) })

	if fired.Load() != 0 {
		t.Error("Stale timer callback must not re-engage")
	}
	if !g.TrollActive("255711111111") {
		t.Error("Stale timer callback must not clear the replacement cooldown")
	}
}

func TestClearTrollCancelsReEngagement(t *testing.T) {
	g := New(time.Second, time.Second)
	defer g.Stop()

	var fired atomic.Int32
	g.StartTroll("255711111111", 30*time.Millisecond, func() { fired.Add(1) })
	g.ClearTroll("255711111111")

	if g.TrollActive("255711111111") {
		t.Error("ClearTroll must lift the cooldown")
	}
	time.Sleep(80 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("Cleared cooldown must not re-engage")
	}
}

func TestLazyExpiryWithoutTimer(t *testing.T) {
	g := New(time.Second, time.Second)
	// No Stop deferred on purpose; Stop cancels the timer and this test
	// exercises the lazy path in TrollActive.
	g.StartTroll("255711111111", 20*time.Millisecond, nil)
	g.Stop()

	time.Sleep(40 * time.Millisecond)
	if g.TrollActive("255711111111") {
		t.Error("Expired cooldown must clear lazily even without the timer")
	}
}
