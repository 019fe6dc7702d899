// Package bot runs the message loop: it reads inbound transport messages
// and routes them to the owner command surface or the customer sales flow.
package bot

import (
	"context"
	"log"
	"strings"

	"github.com/jezakh/patanabot/internal/ai"
	"github.com/jezakh/patanabot/internal/config"
	"github.com/jezakh/patanabot/internal/guard"
	"github.com/jezakh/patanabot/internal/relay"
	"github.com/jezakh/patanabot/internal/shop"
	"github.com/jezakh/patanabot/internal/store"
	"github.com/jezakh/patanabot/internal/tags"
	"github.com/jezakh/patanabot/internal/transport"
)

// Generator produces persona replies and applies owner inventory edits.
type Generator interface {
	Generate(ctx context.Context, phone, prompt string) (string, error)
	GenerateWithMedia(ctx context.Context, phone, prompt string, media *ai.Media) (string, error)
	EditInventory(ctx context.Context, instruction string) (int, error)
}

// Bot wires the transport to the sales and owner flows.
type Bot struct {
	cfg        *config.Config
	tr         transport.Transport
	guard      *guard.Guard
	dispatcher *tags.Dispatcher
	relay      *relay.Relay
	responder  Generator
	customers  *store.CustomerStore
	orders     *store.OrderStore
	shop       *shop.Store
	reporter   Reporter

	// last product the owner added by photo caption, so a follow-up
	// captionless photo attaches to it
	lastOwnerProduct string
}

func New(cfg *config.Config, tr transport.Transport, g *guard.Guard, d *tags.Dispatcher, r *relay.Relay, resp Generator, customers *store.CustomerStore, orders *store.OrderStore, shopStore *shop.Store) *Bot {
	return &Bot{
		cfg:        cfg,
		tr:         tr,
		guard:      g,
		dispatcher: d,
		relay:      r,
		responder:  resp,
		customers:  customers,
		orders:     orders,
		shop:       shopStore,
	}
}

// Run consumes inbound messages until the transport closes or the
// context is cancelled. Messages are handled sequentially so chat
// history reads and writes never race per customer.
func (b *Bot) Run(ctx context.Context) {
	log.Println("🤖 PatanaBot message loop started")
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-b.tr.Messages():
			if !ok {
				return
			}
			b.handle(ctx, msg)
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg transport.Message) {
	if msg.Group {
		return
	}
	if msg.ID != "" && b.guard.IsDuplicate(msg.ID) {
		return
	}

	phone := config.NormalizePhone(msg.Phone)
	if phone == "" {
		return
	}

	if phone == b.cfg.OwnerPhone {
		b.handleOwner(ctx, msg)
		return
	}
	b.handleCustomer(ctx, msg, phone)
}

func (b *Bot) send(to, text string) {
	if text == "" {
		return
	}
	if err := b.tr.SendText(to, text); err != nil {
		log.Printf("❌ Send failed to %s: %v", to, err)
	}
}

// notifyOwner relays an internal event to the owner chat.
func (b *Bot) notifyOwner(text string) {
	if b.cfg.OwnerPhone == "" {
		return
	}
	b.send(b.cfg.OwnerPhone, text)
}

// looksLikeBot filters automated counterparties so two bots never loop
// at each other.
func looksLikeBot(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range []string{
		"[auto-reply]",
		"auto-reply:",
		"this is an automated",
		"ujumbe huu umetumwa kiotomatiki",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
