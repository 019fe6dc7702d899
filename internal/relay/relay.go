// Package relay bridges the asynchronous gap between "the assistant needs
// a human decision" and "the owner replies whenever they get to it". It
// tracks at most one stock check, one escalation and one pending payment
// per customer, drives the stock-check reminder ladder, and routes the
// owner's answers back to the right customer.
package relay

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jezakh/patanabot/internal/models"
	"github.com/jezakh/patanabot/internal/store"
)

// Responder generates a persona-voiced reply for a customer from a
// privileged instruction prompt.
type Responder interface {
	Generate(ctx context.Context, phone, prompt string) (string, error)
}

// Sender is the outbound text surface.
type Sender interface {
	SendText(to, text string) error
}

type stockCheck struct {
	rec   models.StockCheckRec
	timer *time.Timer
}

// Relay owns the pending-state maps and their timers. Every timer
// callback re-enters shared state, so all map access goes through mu and
// each customer has at most one live timer.
type Relay struct {
	mu          sync.Mutex
	checks      map[string]*stockCheck
	escalations map[string]*models.EscalationRec
	pending     map[string]*models.PendingPaymentRec

	mirror    *store.RelayStore
	sender    Sender
	responder Responder
	missed    func(item string)
	clean     func(string) string

	ownerPhone   string
	interval     time.Duration
	maxReminders int

	// FallbackRoutes counts owner replies routed by the last-writer-wins
	// heuristic instead of an explicit quote-reply. Known limitation,
	// kept observable.
	FallbackRoutes atomic.Int64
}

// New wires a relay. clean strips control tags from generator output
// before it reaches a customer; missed logs an unavailable item.
func New(mirror *store.RelayStore, sender Sender, responder Responder, missed func(string), clean func(string) string, ownerPhone string, interval time.Duration, maxReminders int) *Relay {
	return &Relay{
		checks:       make(map[string]*stockCheck),
		escalations:  make(map[string]*models.EscalationRec),
		pending:      make(map[string]*models.PendingPaymentRec),
		mirror:       mirror,
		sender:       sender,
		responder:    responder,
		missed:       missed,
		clean:        clean,
		ownerPhone:   ownerPhone,
		interval:     interval,
		maxReminders: maxReminders,
	}
}

// ---- stock checks ----

// StartStockCheck registers an owner stock question for phone and fires
// the first reminder immediately. A prior check for the same customer is
// cancelled and replaced; its timer never fires again.
func (r *Relay) StartStockCheck(phone, chatID, item string) {
	rec := models.StockCheckRec{
		Phone:     phone,
		ChatID:    chatID,
		Item:      item,
		CreatedAt: time.Now(),
	}
	sc := &stockCheck{rec: rec}
	r.mu.Lock()
	if old, ok := r.checks[phone]; ok && old.timer != nil {
		old.timer.Stop()
	}
	r.checks[phone] = sc
	r.mu.Unlock()
	if r.mirror != nil {
		r.mirror.PutStockCheck(&rec)
	}
	r.sendReminder(phone, sc)
}

// sendReminder advances sc's reminder ladder. sc identifies the check the
// caller's timer was armed for: a replaced check's old timer may already
// have fired and be waiting on mu, and must not touch the new record.
func (r *Relay) sendReminder(phone string, sc *stockCheck) {
	r.mu.Lock()
	check, ok := r.checks[phone]
	if !ok || check != sc {
		r.mu.Unlock()
		return
	}
	check.rec.Reminders++
	n := check.rec.Reminders
	item := check.rec.Item
	if n >= r.maxReminders {
		check.timer = time.AfterFunc(r.interval, func() { r.autoResolve(phone, sc) })
	} else {
		check.timer = time.AfterFunc(r.interval, func() { r.sendReminder(phone, sc) })
	}
	rec := check.rec
	r.mu.Unlock()

	if r.mirror != nil {
		r.mirror.PutStockCheck(&rec)
	}

	if r.ownerPhone == "" || n > r.maxReminders {
		return
	}
	urgency := "📦"
	tail := ""
	switch n {
	case 2:
		urgency = "⏰"
	case r.maxReminders:
		urgency = "🚨"
		tail = fmt.Sprintf("\n\n⚠️ Hii ni reminder ya mwisho! Baada ya dakika %d nitamwambia mteja haina.", int(r.interval.Minutes()))
	}
	msg := fmt.Sprintf("%s *STOCK CHECK #%d/%d*\n\nMteja +%s anataka: *%s*\nTunaipata? Jibu *NDIYO* au *HAPANA*%s",
		urgency, n, r.maxReminders, phone, item, tail)
	if err := r.sender.SendText(r.ownerPhone, msg); err != nil {
		log.Printf("⚠️ Stock check reminder send failed: %v", err)
		return
	}
	log.Printf("📦 [STOCK CHECK #%d] reminder sent for %q (customer %s)", n, item, phone)
}

// autoResolve fires exactly once per expired check: the reminder ladder
// ran out, so the customer gets a persona-voiced "not available" answer.
func (r *Relay) autoResolve(phone string, sc *stockCheck) {
	r.mu.Lock()
	check, ok := r.checks[phone]
	if !ok || check != sc {
		r.mu.Unlock()
		return
	}
	delete(r.checks, phone)
	rec := check.rec
	r.mu.Unlock()

	if r.mirror != nil {
		r.mirror.DeleteStockCheck(phone)
	}

	prompt := fmt.Sprintf(`❌ BIDHAA HAINA: %s. Boss hajajibu kwa muda.
SHERIA KALI: Kama kuna bidhaa nyingine katika CATEGORY ILE ILE inayolingana na bajeti ya mteja, mpe ofa kwa heshima.
KAMA HAKUNA, muage kwa heshima — "Samahani boss, kwa sasa hii haipatikani. Ukihitaji kitu kingine nipo hapa!"
ONYO: USIMPE bidhaa ya category tofauti.`, rec.Item)

	reply, err := r.responder.Generate(context.Background(), phone, prompt)
	if err != nil {
		log.Printf("⚠️ Auto-resolve generation failed for %s: %v", phone, err)
		reply = "Samahani boss, kwa sasa hii haipatikani. Ukihitaji kitu kingine nipo hapa! 🙏"
	}
	if err := r.sender.SendText(rec.ChatID, r.clean(reply)); err != nil {
		log.Printf("⚠️ Auto-resolve send failed for %s: %v", phone, err)
	}
	if r.missed != nil {
		r.missed(rec.Item)
	}
	log.Printf("📉 [OOS AUTO] %q — owner didn't reply, alternatives sent to %s", rec.Item, phone)
}

// CancelStockCheck removes phone's check and stops its timer. Returns the
// record so the caller can act on the owner's answer.
func (r *Relay) CancelStockCheck(phone string) (models.StockCheckRec, bool) {
	r.mu.Lock()
	check, ok := r.checks[phone]
	if ok {
		if check.timer != nil {
			check.timer.Stop()
		}
		delete(r.checks, phone)
	}
	r.mu.Unlock()
	if !ok {
		return models.StockCheckRec{}, false
	}
	if r.mirror != nil {
		r.mirror.DeleteStockCheck(phone)
	}
	return check.rec, true
}

// HasStockCheck reports whether phone has an outstanding check.
func (r *Relay) HasStockCheck(phone string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.checks[phone]
	return ok
}

// LatestStockCheckPhone returns the most recently registered check's
// customer, for the last-writer-wins routing fallback.
func (r *Relay) LatestStockCheckPhone() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var phone string
	var latest time.Time
	for p, c := range r.checks {
		if c.rec.CreatedAt.After(latest) || phone == "" {
			latest, phone = c.rec.CreatedAt, p
		}
	}
	return phone
}

// ---- escalations ----

// RegisterEscalation opens (or supersedes) the escalation for phone. It
// stays open until the owner's next plain-text reply is routed there.
func (r *Relay) RegisterEscalation(phone, summary string) {
	rec := &models.EscalationRec{Phone: phone, Summary: summary, CreatedAt: time.Now()}
	r.mu.Lock()
	r.escalations[phone] = rec
	r.mu.Unlock()
	if r.mirror != nil {
		r.mirror.PutEscalation(rec)
	}
}

// TakeEscalation closes and returns the escalation for phone.
func (r *Relay) TakeEscalation(phone string) (models.EscalationRec, bool) {
	r.mu.Lock()
	rec, ok := r.escalations[phone]
	if ok {
		delete(r.escalations, phone)
	}
	r.mu.Unlock()
	if !ok {
		return models.EscalationRec{}, false
	}
	if r.mirror != nil {
		r.mirror.DeleteEscalation(phone)
	}
	return *rec, true
}

// HasEscalation reports whether phone has an open escalation.
func (r *Relay) HasEscalation(phone string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.escalations[phone]
	return ok
}

// LatestEscalationPhone returns the most recently escalated customer.
func (r *Relay) LatestEscalationPhone() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var phone string
	var latest time.Time
	for p, e := range r.escalations {
		if e.CreatedAt.After(latest) || phone == "" {
			latest, phone = e.CreatedAt, p
		}
	}
	return phone
}

// ---- pending payments ----

// SetPending records the pending payment for phone, overwriting any prior
// one. No queueing: a customer has at most one reservation at a time.
func (r *Relay) SetPending(phone, itemID, price, location string) {
	rec := &models.PendingPaymentRec{
		Phone:            phone,
		ItemID:           itemID,
		AgreedPrice:      price,
		DeliveryLocation: location,
		CreatedAt:        time.Now(),
	}
	r.mu.Lock()
	r.pending[phone] = rec
	r.mu.Unlock()
	if r.mirror != nil {
		r.mirror.PutPending(rec)
	}
}

// Pending returns phone's pending payment without removing it.
func (r *Relay) Pending(phone string) (*models.PendingPaymentRec, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.pending[phone]
	if !ok {
		return nil, false
	}
	cp := *rec
	return &cp, true
}

// TakePending removes and returns phone's pending payment.
func (r *Relay) TakePending(phone string) (models.PendingPaymentRec, bool) {
	r.mu.Lock()
	rec, ok := r.pending[phone]
	if ok {
		delete(r.pending, phone)
	}
	r.mu.Unlock()
	if !ok {
		return models.PendingPaymentRec{}, false
	}
	if r.mirror != nil {
		r.mirror.DeletePending(phone)
	}
	return *rec, true
}

// LatestPendingPhone returns the most recent pending payment's customer.
func (r *Relay) LatestPendingPhone() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var phone string
	var latest time.Time
	for p, rec := range r.pending {
		if rec.CreatedAt.After(latest) || phone == "" {
			latest, phone = rec.CreatedAt, p
		}
	}
	return phone
}

// ---- routing ----

var phoneRe = regexp.MustCompile(`\+(\d{9,15})`)

// ExtractPhone pulls a phone number out of quoted owner-notification text.
func ExtractPhone(text string) string {
	m := phoneRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// ResolveTarget picks the customer an owner reply refers to: a quoted
// notification wins, otherwise the most recent open record from latest().
// The fallback is last-writer-wins and counted as such.
func (r *Relay) ResolveTarget(quoted string, latest func() string) string {
	if phone := ExtractPhone(quoted); phone != "" {
		return phone
	}
	phone := latest()
	if phone != "" {
		r.FallbackRoutes.Add(1)
		log.Printf("⚠️ [ROUTE FALLBACK #%d] owner reply routed to most recent record (%s) — quote-reply avoids misrouting", r.FallbackRoutes.Load(), phone)
	}
	return phone
}

// ---- lifecycle ----

// RestoreFromMirror reloads pending state after a restart and restarts the
// stock-check timers where the reminder ladder left off.
func (r *Relay) RestoreFromMirror() {
	if r.mirror == nil {
		return
	}
	pending, checks, escalations, err := r.mirror.LoadAll()
	if err != nil {
		log.Printf("⚠️ Relay restore failed: %v", err)
		return
	}
	r.mu.Lock()
	for i := range pending {
		rec := pending[i]
		r.pending[rec.Phone] = &rec
	}
	for i := range escalations {
		rec := escalations[i]
		r.escalations[rec.Phone] = &rec
	}
	for i := range checks {
		rec := checks[i]
		phone := rec.Phone
		sc := &stockCheck{rec: rec}
		if rec.Reminders >= r.maxReminders {
			sc.timer = time.AfterFunc(r.interval, func() { r.autoResolve(phone, sc) })
		} else {
			sc.timer = time.AfterFunc(r.interval, func() { r.sendReminder(phone, sc) })
		}
		r.checks[phone] = sc
	}
	r.mu.Unlock()
	if len(pending)+len(checks)+len(escalations) > 0 {
		log.Printf("🔄 Relay restored: %d pending payments, %d stock checks, %d escalations",
			len(pending), len(checks), len(escalations))
	}
}

// Stop cancels every live timer. Used at shutdown; mirrored records keep
// the state for the next boot.
func (r *Relay) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.checks {
		if c.timer != nil {
			c.timer.Stop()
		}
	}
}
