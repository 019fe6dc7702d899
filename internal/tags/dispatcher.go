package tags

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/jezakh/patanabot/internal/models"
	"github.com/jezakh/patanabot/internal/shop"
)

// Ledger is the inventory surface the dispatcher needs.
type Ledger interface {
	Reserve(itemID string) bool
	Restore(itemID string)
	Lookup(query string) *shop.Item
}

// Profiles is the customer profile surface the dispatcher needs.
type Profiles interface {
	Rating(phone string) int
	BumpRating(phone string, delta int) error
	IncrementEscalation(phone string) (int, error)
	ResetEscalations(phone string) error
}

// Orders appends to the order ledger and missed-opportunity log.
type Orders interface {
	Save(phone, item string, price int, location string) error
	SaveMissed(item string)
}

// Relay registers asynchronous owner requests.
type Relay interface {
	StartStockCheck(phone, chatID, item string)
	RegisterEscalation(phone, summary string)
	SetPending(phone, itemID, price, location string)
	Pending(phone string) (*models.PendingPaymentRec, bool)
}

// Trolls places customers into cooldown.
type Trolls interface {
	StartTroll(phone string, d time.Duration, onExpire func()) time.Time
}

// Sender is the outbound message surface.
type Sender interface {
	SendText(to, text string) error
	SendImage(to string, data []byte, caption string) error
}

// Stats counts the protocol's observable anomalies.
type Stats struct {
	ReserveFailures atomic.Int64
	NearMisses      atomic.Int64
}

// ReEngageText is sent to a cooled-down customer exactly at troll cooldown
// expiry.
const ReEngageText = "Habari Boss! 👋 Natumaini uko salama. Kama unahitaji bidhaa yoyote leo, nipo hapa kukusaidia! 🔥"

// Dispatcher turns one generated reply into customer-visible text plus
// executed side effects, in the protocol's fixed priority order.
type Dispatcher struct {
	ledger   Ledger
	profiles Profiles
	orders   Orders
	relay    Relay
	trolls   Trolls
	sender   Sender

	ownerPhone     string
	imageDir       string
	maxEscalations int
	trollCooldown  time.Duration

	Stats Stats
}

// NewDispatcher wires a dispatcher.
func NewDispatcher(ledger Ledger, profiles Profiles, orders Orders, relay Relay, trolls Trolls, sender Sender, ownerPhone, imageDir string, maxEscalations int, trollCooldown time.Duration) *Dispatcher {
	return &Dispatcher{
		ledger:         ledger,
		profiles:       profiles,
		orders:         orders,
		relay:          relay,
		trolls:         trolls,
		sender:         sender,
		ownerPhone:     ownerPhone,
		imageDir:       imageDir,
		maxEscalations: maxEscalations,
		trollCooldown:  trollCooldown,
	}
}

func (d *Dispatcher) notifyOwner(text string) {
	if d.ownerPhone == "" {
		return
	}
	if err := d.sender.SendText(d.ownerPhone, text); err != nil {
		log.Printf("⚠️ Owner notification failed: %v", err)
	}
}

func (d *Dispatcher) label(phone string) string {
	return models.RatingLabel(d.profiles.Rating(phone))
}

// Process applies the tag protocol to one generated reply for the customer
// at phone/chatID. inbound is the customer message that produced the reply
// (quoted in owner alerts). It returns the customer-visible text and
// whether the reply has already been fully sent (the SEND_IMAGE path).
func (d *Dispatcher) Process(phone, chatID, inbound, generated string) (string, bool) {
	res := Parse(generated)

	for _, miss := range res.NearMisses {
		d.Stats.NearMisses.Add(1)
		log.Printf("⚠️ [NEAR-MISS TAG] left in customer text for %s: %q", phone, miss)
	}

	if tag, ok := res.First(KindAlert); ok {
		d.handleAlert(phone, inbound, tag)
	}

	if tag, ok := res.First(KindCheckStock); ok {
		// The "let me check" text must go out now; the rest of the
		// protocol resumes when the owner answers.
		d.relay.StartStockCheck(phone, chatID, tag.Value)
		log.Printf("📦 [CHECK STOCK] %q — owner pinged, waiting for reply", tag.Value)
		return res.Clean, false
	}

	if tag, ok := res.First(KindPendingPayment); ok {
		d.handlePendingPayment(phone, tag)
	}

	if tag, ok := res.First(KindOrderClosed); ok {
		d.handleOrderClosed(phone, tag)
	}

	if _, ok := res.First(KindReceipt); ok {
		d.handleReceipt(phone)
	}

	clean := CleanFormatting(res.Clean)

	if images := res.All(KindSendImage); len(images) > 0 {
		d.handleSendImages(phone, chatID, clean, images)
		return "", true
	}

	if tag, ok := res.First(KindOutOfStock); ok {
		d.orders.SaveMissed(tag.Value)
		log.Printf("📉 [OUT OF STOCK] %q — logged", tag.Value)
	}

	if _, ok := res.First(KindTroll); ok {
		d.handleTroll(phone, chatID)
	}

	return clean, false
}

func (d *Dispatcher) handleAlert(phone, inbound string, tag Tag) {
	count, err := d.profiles.IncrementEscalation(phone)
	if err != nil {
		log.Printf("⚠️ Escalation counter failed for %s: %v", phone, err)
		return
	}

	if count <= d.maxEscalations {
		d.relay.RegisterEscalation(phone, tag.Value)
		if inbound == "" {
			inbound = "[Media]"
		}
		d.notifyOwner(fmt.Sprintf(
			"🚨 *ALERT #%d/%d — Mteja +%s*\n%s\n\n📋 *Tatizo:* %s\n💬 *Meseji:* \"%s\"\n\n💡 *Reply hii meseji* na maelekezo yako!",
			count, d.maxEscalations, phone, d.label(phone), tag.Value, inbound))
		log.Printf("🚨 [ALERT #%d] %s: %s", count, phone, tag.Value)
	}
	if count >= d.maxEscalations {
		log.Printf("⚠️ [MAX ALERTS] %s hit %d escalations", phone, d.maxEscalations)
	}
}

func (d *Dispatcher) handlePendingPayment(phone string, tag Tag) {
	stockNote := ""
	if !d.ledger.Reserve(tag.ItemID) {
		// Permissive by design: the sale proceeds, the mismatch goes to
		// the owner as an explicit anomaly.
		d.Stats.ReserveFailures.Add(1)
		stockNote = "\n⚠️ *Stoo ilikuwa 0 — angalia mwenyewe kama ipo!*"
		log.Printf("❌ [STOCK FAIL] %s — reservation failed, sale proceeding anyway", tag.ItemID)
	}

	d.relay.SetPending(phone, tag.ItemID, tag.Price, tag.Location)

	itemName := tag.ItemID
	if it := d.ledger.Lookup(tag.ItemID); it != nil {
		itemName = it.Name
	}
	d.notifyOwner(fmt.Sprintf(
		"💰 *PENDING PAYMENT:*\n+%s (%s)\nBidhaa: %s\nBei: TZS %s\nLocation: %s%s\n\n_Mteja anatuma muamala. Akituma screenshot, nitakuuliza THIBITISHA au KATAA._",
		phone, d.label(phone), itemName, tag.Price, tag.Location, stockNote))
	log.Printf("💰 [PENDING] %s @ TZS %s → %s", tag.ItemID, tag.Price, tag.Location)
}

func (d *Dispatcher) handleOrderClosed(phone string, tag Tag) {
	if err := d.orders.Save(phone, tag.ItemID, parsePriceText(tag.Price), tag.Location); err != nil {
		log.Printf("⚠️ Order save failed for %s: %v", phone, err)
		return
	}
	if err := d.profiles.BumpRating(phone, 1); err != nil {
		log.Printf("⚠️ Rating bump failed for %s: %v", phone, err)
	}
	if err := d.profiles.ResetEscalations(phone); err != nil {
		log.Printf("⚠️ Escalation reset failed for %s: %v", phone, err)
	}
	log.Printf("✅ [ORDER CLOSED] %s @ %s → %s", tag.ItemID, tag.Price, tag.Location)
}

func (d *Dispatcher) handleReceipt(phone string) {
	pending, ok := d.relay.Pending(phone)
	if !ok {
		log.Printf("🧾 [RECEIPT] %s — no pending payment, ignoring", phone)
		return
	}
	itemName := pending.ItemID
	if it := d.ledger.Lookup(pending.ItemID); it != nil {
		itemName = it.Name
	}
	d.notifyOwner(fmt.Sprintf(
		"🧾 *RECEIPT UPLOADED:*\n+%s (%s)\nBidhaa: %s\nBei: TZS %s\n\n_Angalia kama hela imeingia. Reply:_\n*THIBITISHA* = Malipo OK ✅\n*KATAA* = Hayajaingia ❌",
		phone, d.label(phone), itemName, pending.AgreedPrice))
	log.Printf("🧾 [RECEIPT] %s sent receipt for %s", phone, itemName)
}

func (d *Dispatcher) handleSendImages(phone, chatID, text string, imageTags []Tag) {
	if text != "" {
		if err := d.sender.SendText(chatID, text); err != nil {
			log.Printf("⚠️ Text send failed for %s: %v", phone, err)
		}
	}
	sent := 0
	for _, tag := range imageTags {
		item := d.ledger.Lookup(tag.Value)
		if item == nil {
			log.Printf("🖼️ [SEND IMAGE] %q matched nothing, skipped", tag.Value)
			continue
		}
		for _, file := range item.Images {
			data, err := os.ReadFile(filepath.Join(d.imageDir, file))
			if err != nil {
				log.Printf("⚠️ Image %s unreadable: %v", file, err)
				continue
			}
			if err := d.sender.SendImage(chatID, data, ""); err != nil {
				log.Printf("⚠️ Image send failed for %s: %v", phone, err)
				continue
			}
			sent++
		}
	}
	log.Printf("🖼️ [SEND IMAGE] %d picha → %s", sent, phone)
}

func (d *Dispatcher) handleTroll(phone, chatID string) {
	d.trolls.StartTroll(phone, d.trollCooldown, func() {
		if err := d.sender.SendText(chatID, ReEngageText); err != nil {
			log.Printf("⚠️ Re-engagement send failed for %s: %v", phone, err)
			return
		}
		log.Printf("🔄 [FOLLOW-UP] %s — re-engagement sent", phone)
	})

	if err := d.profiles.BumpRating(phone, -1); err != nil {
		log.Printf("⚠️ Rating downgrade failed for %s: %v", phone, err)
	}
	d.notifyOwner(fmt.Sprintf("🚫 *TROLL DETECTED:* +%s\n%s\nAmepigwa cooldown ya dakika %d.",
		phone, d.label(phone), int(d.trollCooldown.Minutes())))
	log.Printf("🚫 [TROLL] %s — cooldown + follow-up scheduled", phone)
}

// parsePriceText folds a price string like "1,250,000" to its integer
// value. Owner notices keep the raw text, the ledger stores this.
func parsePriceText(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n = n*10 + int(r-'0')
		}
	}
	return n
}
