package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jezakh/patanabot/internal/config"
	"github.com/jezakh/patanabot/internal/database"
	"github.com/jezakh/patanabot/internal/models"
	"github.com/jezakh/patanabot/internal/shop"
	"github.com/jezakh/patanabot/internal/utils"
)

func main() {
	fmt.Println("🌱 PatanaBot Demo Shop Seeder")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("❌ Failed to create data dir: %v", err)
	}

	db, err := database.Connect(cfg.DBPath)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	fmt.Println("🔨 Running database migrations...")
	if err := db.Migrate(); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	// Demo shop profile
	shopStore, err := shop.NewStore(cfg.ShopProfilePath)
	if err != nil {
		log.Fatalf("❌ Failed to open shop profile: %v", err)
	}
	defer shopStore.Close()

	err = shopStore.Update(func(p *shop.Profile) error {
		if len(p.Inventory) > 0 {
			fmt.Printf("⚠️  Profile already has %d items, leaving inventory alone.\n", len(p.Inventory))
			return nil
		}
		p.ShopName = "Patana Electronics"
		p.PaymentInfo = "Lipa Namba: 5555333 (Patana Electronics)"
		p.PaymentPolicy = shop.PayFirst
		p.DeliveryPolicy = "Dar es Salaam: boda siku hiyo hiyo. Mikoani: basi, siku 1-2."
		p.Inventory = demoInventory()
		return nil
	})
	if err != nil {
		log.Fatalf("❌ Failed to write shop profile: %v", err)
	}
	fmt.Println("✅ Shop profile seeded:", cfg.ShopProfilePath)

	// Admin user for the HTTP API
	email := getenv("ADMIN_EMAIL", "owner@patana.local")
	password := getenv("ADMIN_PASSWORD", "badilisha-hii")

	var count int64
	db.Model(&models.AdminUser{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		fmt.Println("⚠️  Admin user already exists:", email)
		return
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}
	if err := db.Create(&models.AdminUser{Email: email, PasswordHash: hash, Role: "owner"}).Error; err != nil {
		log.Fatalf("❌ Failed to create admin user: %v", err)
	}
	fmt.Println("✅ Admin user created:", email)
}

func demoInventory() []shop.Item {
	rows := []struct {
		name  string
		floor int
		stock int
		cond  string
	}{
		{"Samsung Galaxy A15", 280000, 4, "new"},
		{"Tecno Spark 20", 230000, 6, "new"},
		{"iPhone 11 64GB", 520000, 2, "grade A"},
		{"Redmi Note 13", 310000, 3, "new"},
		{"Oraimo FreePods 4", 55000, 10, "new"},
		{"Anker PowerBank 20000mAh", 85000, 5, "new"},
		{"HP EliteBook 840 G5", 750000, 1, "refurbished"},
	}
	items := make([]shop.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, shop.Item{
			ID:          shop.Slugify(r.name),
			Name:        r.name,
			Condition:   r.cond,
			PublicPrice: r.floor + r.floor*3/10,
			FloorPrice:  r.floor,
			Stock:       r.stock,
		})
	}
	return items
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
