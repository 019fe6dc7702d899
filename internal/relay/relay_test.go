package relay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordedSend struct {
	to   string
	text string
}

type memSender struct {
	mu   sync.Mutex
	sent []recordedSend
}

func (s *memSender) SendText(to, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, recordedSend{to, text})
	return nil
}

func (s *memSender) all() []recordedSend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedSend(nil), s.sent...)
}

func (s *memSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type memResponder struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (r *memResponder) Generate(ctx context.Context, phone, prompt string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.reply, r.err
}

func (r *memResponder) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type missedLog struct {
	mu    sync.Mutex
	items []string
}

func (m *missedLog) add(item string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, item)
}

func (m *missedLog) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.items...)
}

func identity(s string) string { return s }

func newTestRelay(sender *memSender, responder *memResponder, missed *missedLog, interval time.Duration) *Relay {
	return New(nil, sender, responder, missed.add, identity, "255700000001", interval, 3)
}

func TestStockCheckFirstReminderImmediate(t *testing.T) {
	sender := &memSender{}
	r := newTestRelay(sender, &memResponder{reply: "sawa"}, &missedLog{}, time.Hour)
	defer r.Stop()

	r.StartStockCheck("255711111111", "chat1", "PS5")

	sent := sender.all()
	if len(sent) != 1 {
		t.Fatalf("Expected immediate first reminder, got %d sends", len(sent))
	}
	if sent[0].to != "255700000001" {
		t.Errorf("Reminder went to %s, want owner", sent[0].to)
	}
	if !strings.Contains(sent[0].text, "STOCK CHECK #1/3") || !strings.Contains(sent[0].text, "PS5") {
		t.Errorf("Reminder text wrong: %q", sent[0].text)
	}
	if !r.HasStockCheck("255711111111") {
		t.Error("Check must be outstanding")
	}
}

func TestStockCheckLadderAndAutoResolve(t *testing.T) {
	sender := &memSender{}
	responder := &memResponder{reply: "Samahani [TROLL] haipatikani"}
	missed := &missedLog{}
	r := New(nil, sender, responder, missed.add,
		func(s string) string { return strings.ReplaceAll(s, "[TROLL] ", "") },
		"255700000001", 20*time.Millisecond, 3)
	defer r.Stop()

	r.StartStockCheck("255711111111", "chat1", "PS5")

	deadline := time.After(2 * time.Second)
	for {
		if !r.HasStockCheck("255711111111") {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Auto-resolve never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}
	time.Sleep(30 * time.Millisecond)

	sent := sender.all()
	var ownerReminders, customerSends int
	for _, s := range sent {
		switch s.to {
		case "255700000001":
			ownerReminders++
		case "chat1":
			customerSends++
			if strings.Contains(s.text, "[TROLL]") {
				t.Errorf("Customer text not cleaned: %q", s.text)
			}
		}
	}
	if ownerReminders != 3 {
		t.Errorf("Owner reminders = %d, want 3", ownerReminders)
	}
	if customerSends != 1 {
		t.Errorf("Auto-resolve must send exactly once, got %d", customerSends)
	}
	if got := missed.all(); len(got) != 1 || got[0] != "PS5" {
		t.Errorf("Missed log wrong: %v", got)
	}
	if responder.callCount() != 1 {
		t.Errorf("Generator called %d times, want 1", responder.callCount())
	}
}

func TestStockCheckAutoResolveGeneratorFailure(t *testing.T) {
	sender := &memSender{}
	responder := &memResponder{err: errors.New("quota")}
	missed := &missedLog{}
	r := newTestRelay(sender, responder, missed, 10*time.Millisecond)
	defer r.Stop()

	r.StartStockCheck("255711111111", "chat1", "PS5")

	deadline := time.After(2 * time.Second)
	for r.HasStockCheck("255711111111") {
		select {
		case <-deadline:
			t.Fatal("Auto-resolve never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}
	time.Sleep(20 * time.Millisecond)

	var customerText string
	for _, s := range sender.all() {
		if s.to == "chat1" {
			customerText = s.text
		}
	}
	if !strings.Contains(customerText, "haipatikani") {
		t.Errorf("Fallback OOS text missing: %q", customerText)
	}
}

func TestStockCheckReplacement(t *testing.T) {
	sender := &memSender{}
	r := newTestRelay(sender, &memResponder{reply: "ok"}, &missedLog{}, time.Hour)
	defer r.Stop()

	r.StartStockCheck("255711111111", "chat1", "PS5")
	r.StartStockCheck("255711111111", "chat1", "Xbox")

	rec, ok := r.CancelStockCheck("255711111111")
	if !ok {
		t.Fatal("Check should be outstanding")
	}
	if rec.Item != "Xbox" {
		t.Errorf("Replacement lost: item = %q, want Xbox", rec.Item)
	}
	if rec.Reminders != 1 {
		t.Errorf("Replacement must restart the ladder, reminders = %d", rec.Reminders)
	}
	if r.HasStockCheck("255711111111") {
		t.Error("Cancel must remove the check")
	}
}

func TestStockCheckStaleTimerAfterReplacement(t *testing.T) {
	sender := &memSender{}
	r := newTestRelay(sender, &memResponder{reply: "ok"}, &missedLog{}, time.Hour)
	defer r.Stop()

	r.StartStockCheck("255711111111", "chat1", "PS5")
	r.mu.Lock()
	stale := r.checks["255711111111"]
	r.mu.Unlock()

	r.StartStockCheck("255711111111", "chat1", "Xbox")
	before := sender.count()

	// What an already-fired timer of the replaced check would do.
	r.sendReminder("255711111111", stale)
	r.autoResolve("255711111111", stale)

	if sender.count() != before {
		t.Error("Stale timer callbacks must not send anything")
	}
	rec, ok := r.CancelStockCheck("255711111111")
	if !ok {
		t.Fatal("Replacement check must survive stale callbacks")
	}
	if rec.Item != "Xbox" || rec.Reminders != 1 {
		t.Errorf("Replacement touched by stale timer: %+v", rec)
	}
}

func TestCancelStockCheckStopsTimer(t *testing.T) {
	sender := &memSender{}
	r := newTestRelay(sender, &memResponder{reply: "ok"}, &missedLog{}, 20*time.Millisecond)
	defer r.Stop()

	r.StartStockCheck("255711111111", "chat1", "PS5")
	if _, ok := r.CancelStockCheck("255711111111"); !ok {
		t.Fatal("Cancel failed")
	}

	before := sender.count()
	time.Sleep(80 * time.Millisecond)
	if sender.count() != before {
		t.Error("Cancelled check still fired reminders")
	}

	if _, ok := r.CancelStockCheck("255711111111"); ok {
		t.Error("Second cancel must report nothing outstanding")
	}
}

func TestEscalationLifecycle(t *testing.T) {
	r := newTestRelay(&memSender{}, &memResponder{}, &missedLog{}, time.Hour)
	defer r.Stop()

	if r.HasEscalation("255711111111") {
		t.Fatal("Fresh relay has no escalations")
	}
	r.RegisterEscalation("255711111111", "anataka refund")
	r.RegisterEscalation("255722222222", "bei ya jumla")

	if !r.HasEscalation("255711111111") {
		t.Error("Escalation not registered")
	}
	if got := r.LatestEscalationPhone(); got != "255722222222" {
		t.Errorf("Latest escalation = %s, want the second", got)
	}

	rec, ok := r.TakeEscalation("255711111111")
	if !ok || rec.Summary != "anataka refund" {
		t.Errorf("TakeEscalation wrong: %+v ok=%v", rec, ok)
	}
	if _, ok := r.TakeEscalation("255711111111"); ok {
		t.Error("Escalation must be gone after take")
	}
}

func TestPendingLifecycle(t *testing.T) {
	r := newTestRelay(&memSender{}, &memResponder{}, &missedLog{}, time.Hour)
	defer r.Stop()

	r.SetPending("255711111111", "simu-a", "350,000", "Kariakoo")

	rec, ok := r.Pending("255711111111")
	if !ok || rec.ItemID != "simu-a" {
		t.Fatalf("Pending wrong: %+v", rec)
	}
	// Peeking must not consume.
	if _, ok := r.Pending("255711111111"); !ok {
		t.Error("Pending consumed by peek")
	}

	// Overwrite, no queueing.
	r.SetPending("255711111111", "simu-b", "100,000", "Posta")
	taken, ok := r.TakePending("255711111111")
	if !ok || taken.ItemID != "simu-b" {
		t.Errorf("Overwrite lost: %+v", taken)
	}
	if _, ok := r.Pending("255711111111"); ok {
		t.Error("Take must clear the record")
	}
}

func TestExtractPhone(t *testing.T) {
	cases := map[string]string{
		"🚨 *ALERT #1/5 — Mteja +255711111111*\nshida": "255711111111",
		"hakuna namba hapa":                            "",
		"+123 fupi sana":                               "",
	}
	for in, want := range cases {
		if got := ExtractPhone(in); got != want {
			t.Errorf("ExtractPhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveTargetQuoteWins(t *testing.T) {
	r := newTestRelay(&memSender{}, &memResponder{}, &missedLog{}, time.Hour)
	defer r.Stop()

	got := r.ResolveTarget("Mteja +255711111111 ana shida", func() string { return "255799999999" })
	if got != "255711111111" {
		t.Errorf("Quote must win, got %s", got)
	}
	if r.FallbackRoutes.Load() != 0 {
		t.Error("Quote routing must not count as fallback")
	}

	got = r.ResolveTarget("", func() string { return "255799999999" })
	if got != "255799999999" {
		t.Errorf("Fallback target wrong: %s", got)
	}
	if r.FallbackRoutes.Load() != 1 {
		t.Error("Fallback must be counted")
	}

	if got := r.ResolveTarget("", func() string { return "" }); got != "" {
		t.Errorf("No target should resolve empty, got %s", got)
	}
}
