package shop

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatPrice renders an integer price with thousands separators the way
// the shop writes prices in chat (1,250,000).
func FormatPrice(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// Snapshot renders the full inventory as structured text for the
// generator's system context. This is the only place floor prices are
// rendered; the text never leaves the prompt.
func (s *Store) Snapshot() string {
	p, err := s.Get()
	if err != nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏪 DUKA: %s\n", p.ShopName)
	fmt.Fprintf(&b, "💰 MALIPO: %s\n", p.PaymentInfo)
	fmt.Fprintf(&b, "🚚 DELIVERY: %s\n\n", p.DeliveryPolicy)
	b.WriteString("📦 BIDHAA ZILIZOPO:\n")
	b.WriteString(strings.Repeat("─", 50) + "\n")

	for _, it := range p.Inventory {
		fmt.Fprintf(&b, "• %s (id: %s)\n", it.Name, it.ID)
		fmt.Fprintf(&b, "  Hali: %s\n", it.Condition)
		fmt.Fprintf(&b, "  Category: %s | Brand: %s | Tier: %s\n", it.Category, it.Brand, it.Tier)
		if it.Features != "" {
			fmt.Fprintf(&b, "  Features: %s\n", it.Features)
		}
		fmt.Fprintf(&b, "  Bei ya Kawaida: TZS %s\n", FormatPrice(it.PublicPrice))
		fmt.Fprintf(&b, "  🔒 Floor Price (SIRI!): TZS %s\n", FormatPrice(it.FloorPrice))
		fmt.Fprintf(&b, "  Stock: %d | Picha: %d\n\n", it.Stock, len(it.Images))
	}
	return b.String()
}

// ListText renders the inventory as an owner-facing list.
func (s *Store) ListText() string {
	p, err := s.Get()
	if err != nil {
		return "❌ Stoo haisomeki: " + err.Error()
	}
	if len(p.Inventory) == 0 {
		return "📦 Stoo iko tupu. Tuma _ONGEZA:_ kuweka bidhaa."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📦 *STOO — bidhaa %d*\n%s\n", len(p.Inventory), strings.Repeat("━", 25))
	for _, it := range p.Inventory {
		fmt.Fprintf(&b, "• *%s* — TZS %s (floor %s) | stock %d | 📸 %d\n",
			it.Name, FormatPrice(it.PublicPrice), FormatPrice(it.FloorPrice), it.Stock, len(it.Images))
	}
	return b.String()
}

// ContainsFloorPrice reports whether text contains any item's floor price,
// in plain or comma-grouped form. Prices below four digits are skipped:
// they collide with ordinary numbers far too often to be a signal.
func (s *Store) ContainsFloorPrice(text string) bool {
	p, err := s.Get()
	if err != nil {
		return false
	}
	for _, it := range p.Inventory {
		if it.FloorPrice < 1000 {
			continue
		}
		plain := strconv.Itoa(it.FloorPrice)
		if strings.Contains(text, plain) || strings.Contains(text, FormatPrice(it.FloorPrice)) {
			return true
		}
	}
	return false
}
