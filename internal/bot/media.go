package bot

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jezakh/patanabot/internal/shop"
	"github.com/jezakh/patanabot/internal/transport"
)

// handleOwnerMedia adds products by photo. A caption like
// "Samsung A15, 280000, 4, grey" creates or restocks the product and
// files the image under it; "PICHA: jina" attaches to an existing
// product; a captionless photo goes to the last product added this way.
func (b *Bot) handleOwnerMedia(msg transport.Message) {
	caption := strings.TrimSpace(msg.Text)

	switch {
	case caption == "":
		if b.lastOwnerProduct == "" {
			b.send(msg.ChatID, "❌ Picha bila maelezo. Andika: jina, bei ya chini, idadi, hali — au PICHA: jina.")
			return
		}
		b.attachImage(msg, b.lastOwnerProduct)

	case strings.HasPrefix(strings.ToUpper(caption), "PICHA:"):
		name := strings.TrimSpace(caption[len("PICHA:"):])
		it := b.shop.Lookup(name)
		if it == nil {
			b.send(msg.ChatID, "❌ Bidhaa haipatikani: "+name)
			return
		}
		b.attachImage(msg, it.ID)

	default:
		b.quickAddFromCaption(msg, caption)
	}
}

func (b *Bot) quickAddFromCaption(msg transport.Message, caption string) {
	parts := strings.Split(caption, ",")
	if len(parts) < 2 {
		b.send(msg.ChatID, "❌ Maelezo hayakamiliki. Andika: jina, bei ya chini, idadi, hali.")
		return
	}
	name := strings.TrimSpace(parts[0])
	floor, err := strconv.Atoi(strings.Map(keepDigit, parts[1]))
	if err != nil || floor <= 0 {
		b.send(msg.ChatID, "❌ Bei haisomeki: "+strings.TrimSpace(parts[1]))
		return
	}
	stock := 1
	if len(parts) > 2 {
		if n, err := strconv.Atoi(strings.TrimSpace(parts[2])); err == nil && n > 0 {
			stock = n
		}
	}
	note := ""
	if len(parts) > 3 {
		note = strings.TrimSpace(strings.Join(parts[3:], ","))
	}

	it, isNew, err := b.shop.QuickAdd(name, floor, stock, note)
	if err != nil {
		b.send(msg.ChatID, "❌ Imeshindikana kuongeza: "+err.Error())
		return
	}
	b.lastOwnerProduct = it.ID
	b.attachImage(msg, it.ID)

	verb := "imeongezwa"
	if !isNew {
		verb = "imesasishwa"
	}
	b.send(msg.ChatID, fmt.Sprintf("📦 %s %s: %s/= (stoo %d). Picha imehifadhiwa.",
		it.Name, verb, shop.FormatPrice(it.PublicPrice), it.Stock))
}

// attachImage writes the photo into the image directory and records the
// filename on the product so [SEND_IMAGE:] can find it later.
func (b *Bot) attachImage(msg transport.Message, itemID string) {
	if msg.Media == nil || len(msg.Media.Data) == 0 {
		return
	}
	if err := os.MkdirAll(b.cfg.ImageDir, 0o755); err != nil {
		log.Printf("❌ Image dir: %v", err)
		return
	}

	ext := ".jpg"
	if strings.Contains(msg.Media.MIME, "png") {
		ext = ".png"
	}
	base := shop.Slugify(itemID)
	filename := base + ext
	for i := 2; ; i++ {
		if _, err := os.Stat(filepath.Join(b.cfg.ImageDir, filename)); os.IsNotExist(err) {
			break
		}
		filename = fmt.Sprintf("%s-%d%s", base, i, ext)
	}

	path := filepath.Join(b.cfg.ImageDir, filename)
	if err := os.WriteFile(path, msg.Media.Data, 0o644); err != nil {
		log.Printf("❌ Image write failed: %v", err)
		b.send(msg.ChatID, "❌ Picha haikuhifadhika.")
		return
	}
	if err := b.shop.AddImage(itemID, filename); err != nil {
		log.Printf("⚠️ Image link failed for %s: %v", itemID, err)
	}
	log.Printf("🖼️ Image saved for %s: %s", itemID, filename)
}
