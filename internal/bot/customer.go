package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jezakh/patanabot/internal/ai"
	"github.com/jezakh/patanabot/internal/transport"
)

const demoReply = `Habari Boss! 👋 Mimi ni PatanaBot Enterprise — Muuzaji wa AI 24/7.

🧠 Napatana bei
📸 Ninapokea picha
🎤 Ninaelewa voice notes
💰 Ninafunga oda automatically

Jaribu: Uliza bei ya AirPods au tuma picha ya simu!`

func (b *Bot) handleCustomer(ctx context.Context, msg transport.Message, phone string) {
	if b.guard.TrollActive(phone) {
		return
	}
	if !b.customers.Active(phone) {
		return
	}
	if b.guard.Throttled(msg.ChatID) {
		log.Printf("⏸️ Cooldown: ignoring %s", phone)
		return
	}
	if looksLikeBot(msg.Text) {
		log.Printf("🤖 Ignoring automated sender %s", phone)
		return
	}
	// A failed media download degrades the turn to text-only.
	if msg.MediaErr {
		log.Printf("❌ Media download failed for %s", phone)
		msg.Media = nil
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" && msg.Media == nil {
		return
	}

	// Demo hook: canned pitch, no generator round-trip.
	if strings.EqualFold(text, "DEMO") {
		log.Printf("🎯 [DEMO] → %s", phone)
		b.send(msg.ChatID, demoReply)
		return
	}

	prompt := text
	if prompt == "" {
		prompt = "(mteja ametuma picha)"
	}

	var reply string
	var err error
	if msg.Media != nil {
		reply, err = b.responder.GenerateWithMedia(ctx, phone, prompt, &ai.Media{Data: msg.Media.Data, MIME: msg.Media.MIME})
	} else {
		reply, err = b.responder.Generate(ctx, phone, prompt)
	}
	if err != nil {
		log.Printf("❌ Generate failed for %s: %v", phone, err)
		b.send(msg.ChatID, ai.FallbackReply)
		return
	}

	out, handled := b.dispatcher.Process(phone, msg.ChatID, text, reply)
	if handled {
		return
	}

	b.warnFloorLeak(phone, out)
	b.send(msg.ChatID, out)
}

// warnFloorLeak flags a reply that quotes an item's secret floor price.
// The text still goes out: the model may legitimately quote a matching
// figure, so the owner gets a heads-up instead of a blocked message.
func (b *Bot) warnFloorLeak(phone, reply string) {
	if !b.shop.ContainsFloorPrice(reply) {
		return
	}
	log.Printf("🔓 Possible floor price leak to %s", phone)
	b.notifyOwner(fmt.Sprintf("🔓 *Tahadhari:* jibu kwa +%s linaweza kuwa na bei ya siri. Angalia chat.", phone))
}
