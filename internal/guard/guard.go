package guard

import (
	"log"
	"sync"
	"time"
)

// Guard drops duplicate deliveries, rate-limits per-customer traffic and
// enforces troll cooldowns before a message ever reaches the generator.
type Guard struct {
	mu sync.Mutex

	seen        map[string]time.Time // message id → first seen
	lastMsg     map[string]time.Time // chat key → last accepted message
	troll       map[string]time.Time // phone → cooldown expiry
	reEngage    map[string]*time.Timer
	reEngageGen map[string]uint64 // phone → generation of the live timer
	gen         uint64

	cooldown    time.Duration
	dedupWindow time.Duration
}

// New creates a guard with the given per-customer cooldown and duplicate
// detection window.
func New(cooldown, dedupWindow time.Duration) *Guard {
	return &Guard{
		seen:        make(map[string]time.Time),
		lastMsg:     make(map[string]time.Time),
		troll:       make(map[string]time.Time),
		reEngage:    make(map[string]*time.Timer),
		reEngageGen: make(map[string]uint64),
		cooldown:    cooldown,
		dedupWindow: dedupWindow,
	}
}

// IsDuplicate checks if a message ID has been seen within the dedup window.
// Returns true if the message is a redelivery and should be ignored.
func (g *Guard) IsDuplicate(msgID string) bool {
	if msgID == "" {
		return false
	}
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if ts, ok := g.seen[msgID]; ok && now.Sub(ts) < g.dedupWindow {
		return true
	}
	g.seen[msgID] = now

	// Cleanup old entries if map gets too big
	if len(g.seen) > 10000 {
		for k, v := range g.seen {
			if now.Sub(v) > 2*g.dedupWindow {
				delete(g.seen, k)
			}
		}
	}
	return false
}

// Throttled reports whether a message on chatKey arrived inside the
// cooldown window. A throttled message is dropped silently; an accepted
// one stamps the window.
func (g *Guard) Throttled(chatKey string) bool {
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.lastMsg[chatKey]; ok && now.Sub(last) < g.cooldown {
		return true
	}
	g.lastMsg[chatKey] = now
	return false
}

// TrollActive reports whether phone is inside a troll cooldown. An expired
// cooldown is cleared lazily here, in addition to the proactive
// re-engagement send scheduled at detection time.
func (g *Guard) TrollActive(phone string) bool {
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	expiry, ok := g.troll[phone]
	if !ok {
		return false
	}
	if now.Before(expiry) {
		return true
	}
	delete(g.troll, phone)
	return false
}

// StartTroll puts phone into a cooldown of duration d and schedules
// onExpire to fire exactly at expiry. A second detection for the same
// customer replaces the prior timer; there is never more than one
// re-engagement in flight per customer.
func (g *Guard) StartTroll(phone string, d time.Duration, onExpire func()) time.Time {
	expiry := time.Now().Add(d)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.troll[phone] = expiry
	if t, ok := g.reEngage[phone]; ok {
		t.Stop()
	}
	g.gen++
	gen := g.gen
	g.reEngageGen[phone] = gen
	g.reEngage[phone] = time.AfterFunc(d, func() { g.expireTroll(phone, gen, onExpire) })
	log.Printf("🚫 [TROLL] %s — cooldown until %s", phone, expiry.Format(time.Kitchen))
	return expiry
}

// expireTroll lifts phone's cooldown when its timer fires. gen identifies
// the cooldown the timer was armed for: a replaced cooldown's old timer
// may already have fired and be waiting on mu, and must not clear the
// new one.
func (g *Guard) expireTroll(phone string, gen uint64, onExpire func()) {
	g.mu.Lock()
	if g.reEngageGen[phone] != gen {
		g.mu.Unlock()
		return
	}
	delete(g.reEngage, phone)
	delete(g.reEngageGen, phone)
	delete(g.troll, phone)
	g.mu.Unlock()
	if onExpire != nil {
		onExpire()
	}
}

// ClearTroll lifts a cooldown early and cancels the pending re-engagement.
func (g *Guard) ClearTroll(phone string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.troll, phone)
	if t, ok := g.reEngage[phone]; ok {
		t.Stop()
		delete(g.reEngage, phone)
		delete(g.reEngageGen, phone)
	}
}

// Stop cancels all pending re-engagement timers. Used at shutdown.
func (g *Guard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for phone, t := range g.reEngage {
		t.Stop()
		delete(g.reEngage, phone)
		delete(g.reEngageGen, phone)
	}
}
