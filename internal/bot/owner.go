package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/jezakh/patanabot/internal/config"
	"github.com/jezakh/patanabot/internal/models"
	"github.com/jezakh/patanabot/internal/shop"
	"github.com/jezakh/patanabot/internal/tags"
	"github.com/jezakh/patanabot/internal/transport"
)

// Reporter builds the daily sales report on demand.
type Reporter interface {
	BuildDaily() (pdf []byte, summary string, err error)
}

// SetReporter attaches the report generator after construction; the
// report package depends on the stores, not on the bot.
func (b *Bot) SetReporter(r Reporter) { b.reporter = r }

const ownerHelp = `🛠️ *AMRI ZA MWENYE DUKA*

📦 *BIDHAA* — orodha ya stoo
➕ *ONGEZA:* jina, bei ya chini, idadi, hali (mstari mmoja kwa bidhaa)
✏️ *STOO:* maelekezo ya kubadilisha stoo kwa maneno
💳 *MALIPO:* taarifa za malipo (namba ya lipa)
📜 *SERA:* PAY_FIRST au PAY_ON_DELIVERY
⏸️ *ZIMA:* +namba — simamisha bot kwa mteja
▶️ *WASHA:* +namba au WOTE — rudisha bot
⭐ *RATE:* +namba 1-5 — weka daraja la mteja
👤 *PROFILE:* +namba — taarifa za mteja
📊 *RIPOTI* — ripoti ya mauzo ya leo
✅ *THIBITISHA* / ❌ *KATAA* — malipo yanayosubiri (quote ujumbe wangu)
✅ *NDIYO* / ❌ *HAPANA* — jibu la ukaguzi wa stoo

Ujumbe mwingine wowote unakuwa maelekezo kwa mazungumzo yanayosubiri.`

func (b *Bot) handleOwner(ctx context.Context, msg transport.Message) {
	if msg.Media != nil {
		b.handleOwnerMedia(msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	upper := strings.ToUpper(text)

	switch {
	case upper == "BIDHAA" || upper == "STOO" || upper == "LIST":
		b.send(msg.ChatID, b.shop.ListText())

	case strings.HasPrefix(upper, "ONGEZA:"):
		b.ownerImport(msg.ChatID, text[len("ONGEZA:"):])

	case strings.HasPrefix(upper, "STOO:") || strings.HasPrefix(upper, "UPDATE:"):
		instruction := text[strings.Index(text, ":")+1:]
		b.ownerEdit(ctx, msg.ChatID, instruction)

	case strings.HasPrefix(upper, "MALIPO:"):
		info := strings.TrimSpace(text[len("MALIPO:"):])
		if err := b.shop.SetPaymentInfo(info); err != nil {
			b.send(msg.ChatID, "❌ Imeshindikana kuhifadhi: "+err.Error())
			return
		}
		b.send(msg.ChatID, "💳 Taarifa za malipo zimehifadhiwa.")

	case strings.HasPrefix(upper, "SERA:"):
		b.ownerPolicy(msg.ChatID, strings.TrimSpace(text[len("SERA:"):]))

	case upper == "MSAADA" || upper == "HELP":
		b.send(msg.ChatID, ownerHelp)

	case strings.HasPrefix(upper, "ZIMA:"):
		b.ownerPause(msg.ChatID, text[len("ZIMA:"):])

	case strings.HasPrefix(upper, "WASHA:"):
		b.ownerResume(msg.ChatID, text[len("WASHA:"):])

	case strings.HasPrefix(upper, "RATE:"):
		b.ownerRate(msg.ChatID, text[len("RATE:"):])

	case strings.HasPrefix(upper, "PROFILE:"):
		b.ownerProfile(msg.ChatID, text[len("PROFILE:"):])

	case upper == "RIPOTI":
		b.ownerReport(msg.ChatID)

	case upper == "THIBITISHA":
		b.ownerConfirmPayment(ctx, msg)

	case upper == "KATAA":
		b.ownerRejectPayment(ctx, msg)

	case upper == "NDIYO" || upper == "HAPANA":
		b.ownerStockAnswer(ctx, msg, upper == "NDIYO")

	default:
		b.ownerGuidance(ctx, msg, text)
	}
}

func (b *Bot) ownerImport(chatID, body string) {
	res, err := b.shop.ImportText(body)
	if err != nil {
		b.send(chatID, "❌ "+err.Error())
		return
	}
	b.send(chatID, fmt.Sprintf("📦 Stoo imesasishwa: mpya %d, zilizobadilishwa %d, jumla %d.",
		res.Added, res.Updated, res.Total))
}

func (b *Bot) ownerEdit(ctx context.Context, chatID, instruction string) {
	n, err := b.responder.EditInventory(ctx, instruction)
	if err != nil {
		log.Printf("❌ Inventory edit failed: %v", err)
		b.send(chatID, "❌ Imeshindikana kubadilisha stoo. Jaribu maneno mengine.")
		return
	}
	b.send(chatID, fmt.Sprintf("✏️ Stoo imebadilishwa. Bidhaa sasa: %d.", n))
}

func (b *Bot) ownerPolicy(chatID, policy string) {
	var value string
	switch strings.ToUpper(policy) {
	case "PAY_FIRST":
		value = shop.PayFirst
	case "PAY_ON_DELIVERY":
		value = shop.PayOnDelivery
	default:
		b.send(chatID, "❌ Sera sahihi ni PAY_FIRST au PAY_ON_DELIVERY.")
		return
	}
	if err := b.shop.SetPaymentPolicy(value); err != nil {
		b.send(chatID, "❌ Imeshindikana kuhifadhi sera: "+err.Error())
		return
	}
	b.send(chatID, "📜 Sera ya malipo: "+strings.ToUpper(policy))
}

func (b *Bot) ownerPause(chatID, arg string) {
	phone := config.NormalizePhone(strings.TrimSpace(arg))
	if phone == "" {
		b.send(chatID, "❌ Andika: ZIMA: +255712345678")
		return
	}
	if err := b.customers.Pause(phone); err != nil {
		b.send(chatID, "❌ Imeshindikana: "+err.Error())
		return
	}
	b.send(chatID, "⏸️ Bot imezimwa kwa +"+phone+". Unaongea naye moja kwa moja sasa.")
}

func (b *Bot) ownerResume(chatID, arg string) {
	arg = strings.TrimSpace(arg)
	if strings.EqualFold(arg, "WOTE") {
		n, err := b.customers.ResumeAll()
		if err != nil {
			b.send(chatID, "❌ Imeshindikana: "+err.Error())
			return
		}
		b.send(chatID, fmt.Sprintf("▶️ Bot imewashwa kwa wateja wote (%d).", n))
		return
	}
	phone := config.NormalizePhone(arg)
	if phone == "" {
		b.send(chatID, "❌ Andika: WASHA: +255712345678 au WASHA: WOTE")
		return
	}
	if err := b.customers.Resume(phone); err != nil {
		b.send(chatID, "❌ Imeshindikana: "+err.Error())
		return
	}
	b.guard.ClearTroll(phone)
	b.send(chatID, "▶️ Bot imewashwa kwa +"+phone+".")
}

func (b *Bot) ownerRate(chatID, arg string) {
	fields := strings.Fields(strings.TrimSpace(arg))
	if len(fields) != 2 {
		b.send(chatID, "❌ Andika: RATE: +255712345678 5")
		return
	}
	phone := config.NormalizePhone(fields[0])
	rating, err := strconv.Atoi(fields[1])
	if err != nil || rating < 1 || rating > 5 {
		b.send(chatID, "❌ Daraja ni namba 1 mpaka 5.")
		return
	}
	if err := b.customers.SetRating(phone, rating); err != nil {
		b.send(chatID, "❌ Imeshindikana: "+err.Error())
		return
	}
	b.send(chatID, fmt.Sprintf("⭐ +%s sasa ni %s", phone, models.RatingLabel(rating)))
}

func (b *Bot) ownerProfile(chatID, arg string) {
	phone := config.NormalizePhone(strings.TrimSpace(arg))
	c, err := b.customers.Get(phone)
	if err != nil {
		b.send(chatID, "❌ Mteja hapatikani: "+err.Error())
		return
	}
	status := "inafanya kazi"
	if c.BotPaused {
		status = "imezimwa"
	}
	history := b.customers.History(phone)
	b.send(chatID, fmt.Sprintf(
		"👤 *+%s*\nDaraja: %s\nMaswali magumu: %d\nBot: %s\nMazungumzo: meseji %d\nAlianza: %s",
		phone, models.RatingLabel(c.Rating), c.Escalations, status,
		len(history), c.CreatedAt.Format("2006-01-02")))
}

func (b *Bot) ownerReport(chatID string) {
	if b.reporter == nil {
		b.send(chatID, "❌ Ripoti haijawashwa.")
		return
	}
	pdf, summary, err := b.reporter.BuildDaily()
	if err != nil {
		log.Printf("❌ Report build failed: %v", err)
		b.send(chatID, "❌ Imeshindikana kutengeneza ripoti.")
		return
	}
	b.send(chatID, summary)
	if len(pdf) > 0 {
		if err := b.tr.SendDocument(chatID, pdf, "ripoti-ya-leo.pdf", "📊 Ripoti ya mauzo"); err != nil {
			log.Printf("❌ Report send failed: %v", err)
		}
	}
}

// ownerConfirmPayment closes the sale the owner verified: stock stays
// reserved, the order is recorded and the customer gets a warm close
// plus an upsell.
func (b *Bot) ownerConfirmPayment(ctx context.Context, msg transport.Message) {
	phone := b.relay.ResolveTarget(msg.Quoted, b.relay.LatestPendingPhone)
	if phone == "" {
		b.send(msg.ChatID, "❌ Hakuna malipo yanayosubiri. Quote ujumbe wa risiti.")
		return
	}
	rec, ok := b.relay.TakePending(phone)
	if !ok {
		b.send(msg.ChatID, "❌ Hakuna malipo yanayosubiri kwa +"+phone+".")
		return
	}

	price := 0
	if n, err := strconv.Atoi(strings.Map(keepDigit, rec.AgreedPrice)); err == nil {
		price = n
	}
	if err := b.orders.Save(phone, rec.ItemID, price, rec.DeliveryLocation); err != nil {
		log.Printf("❌ Order save failed for %s: %v", phone, err)
	}
	if err := b.customers.BumpRating(phone, 1); err != nil {
		log.Printf("⚠️ Rating bump failed for %s: %v", phone, err)
	}
	b.customers.ResetEscalations(phone)

	reply, err := b.responder.Generate(ctx, phone,
		"🔑 MAELEKEZO YA BOSS: Malipo yamethibitishwa kwa "+rec.ItemID+
			". Mshukuru mteja kwa furaha, mwambie oda yake inashughulikiwa, kisha mpendekezee bidhaa moja ya ziada inayoendana.")
	if err != nil {
		reply = "✅ Asante Boss! Malipo yamepokelewa na oda yako inashughulikiwa. Karibu tena! 🎉"
	}
	b.send(phone, tags.StripAll(reply))
	b.send(msg.ChatID, "✅ Oda ya +"+phone+" ("+rec.ItemID+") imefungwa.")
}

// ownerRejectPayment returns the reserved unit and asks the customer to
// retry payment, without accusing anyone.
func (b *Bot) ownerRejectPayment(ctx context.Context, msg transport.Message) {
	phone := b.relay.ResolveTarget(msg.Quoted, b.relay.LatestPendingPhone)
	if phone == "" {
		b.send(msg.ChatID, "❌ Hakuna malipo yanayosubiri. Quote ujumbe wa risiti.")
		return
	}
	rec, ok := b.relay.TakePending(phone)
	if !ok {
		b.send(msg.ChatID, "❌ Hakuna malipo yanayosubiri kwa +"+phone+".")
		return
	}
	b.shop.Restore(rec.ItemID)

	reply, err := b.responder.Generate(ctx, phone,
		"🔑 MAELEKEZO YA BOSS: Malipo ya "+rec.ItemID+
			" hayajaonekana bado. Kwa upole mwambie mteja malipo hayajafika na amwombe ajaribu tena au athibitishe namba aliyotumia. Usimlaumu.")
	if err != nil {
		reply = "Samahani Boss, malipo bado hayajaonekana upande wetu. Tafadhali hakiki muamala wako na ujaribu tena. 🙏"
	}
	b.send(phone, tags.StripAll(reply))
	b.send(msg.ChatID, "❌ Malipo ya +"+phone+" yamekataliwa, stoo imerudishwa.")
}

// ownerStockAnswer resolves a pending stock check with the owner's
// NDIYO/HAPANA and relays a generated answer to the customer.
func (b *Bot) ownerStockAnswer(ctx context.Context, msg transport.Message, available bool) {
	phone := b.relay.ResolveTarget(msg.Quoted, b.relay.LatestStockCheckPhone)
	if phone == "" {
		b.send(msg.ChatID, "❌ Hakuna ukaguzi wa stoo unaosubiri.")
		return
	}
	rec, ok := b.relay.CancelStockCheck(phone)
	if !ok {
		b.send(msg.ChatID, "❌ Hakuna ukaguzi wa stoo kwa +"+phone+".")
		return
	}

	var instruction string
	if available {
		instruction = "🔑 MAELEKEZO YA BOSS: Bidhaa " + rec.Item +
			" IPO stoo. Mwambie mteja habari njema na msogeze kwenye kufunga oda."
	} else {
		instruction = "🔑 MAELEKEZO YA BOSS: Bidhaa " + rec.Item +
			" HAIPO stoo kwa sasa. Omba radhi kwa upole na mpendekezee mbadala kutoka stoo."
		b.orders.SaveMissed(rec.Item)
	}
	reply, err := b.responder.Generate(ctx, phone, instruction)
	if err != nil {
		log.Printf("❌ Stock answer generate failed: %v", err)
		b.send(msg.ChatID, "⚠️ Jibu la mteja limeshindikana, mwandikie mwenyewe.")
		return
	}
	b.send(rec.ChatID, tags.StripAll(reply))
	b.send(msg.ChatID, "✅ Mteja +"+phone+" amejibiwa kuhusu "+rec.Item+".")
}

// ownerGuidance treats any other owner text as instructions for the
// customer behind the most recent open escalation (or the quoted one).
func (b *Bot) ownerGuidance(ctx context.Context, msg transport.Message, text string) {
	phone := b.relay.ResolveTarget(msg.Quoted, func() string {
		if p := b.relay.LatestEscalationPhone(); p != "" {
			return p
		}
		if p := b.relay.LatestStockCheckPhone(); p != "" {
			return p
		}
		return b.relay.LatestPendingPhone()
	})
	if phone == "" {
		b.send(msg.ChatID, ownerHelp)
		return
	}

	b.relay.TakeEscalation(phone)
	reply, err := b.responder.Generate(ctx, phone, "🔑 MAELEKEZO YA BOSS: "+text)
	if err != nil {
		log.Printf("❌ Guidance generate failed for %s: %v", phone, err)
		b.send(msg.ChatID, "⚠️ Jibu limeshindikana, jaribu tena.")
		return
	}
	b.send(phone, tags.StripAll(reply))
	b.send(msg.ChatID, "📨 Maelekezo yamefikishwa kwa +"+phone+".")
}

func keepDigit(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}
