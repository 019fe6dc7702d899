package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jezakh/patanabot/internal/ai"
	"github.com/jezakh/patanabot/internal/analytics"
	"github.com/jezakh/patanabot/internal/bot"
	"github.com/jezakh/patanabot/internal/config"
	"github.com/jezakh/patanabot/internal/database"
	"github.com/jezakh/patanabot/internal/guard"
	"github.com/jezakh/patanabot/internal/handlers"
	"github.com/jezakh/patanabot/internal/relay"
	"github.com/jezakh/patanabot/internal/report"
	"github.com/jezakh/patanabot/internal/shop"
	"github.com/jezakh/patanabot/internal/store"
	"github.com/jezakh/patanabot/internal/tags"
	"github.com/jezakh/patanabot/internal/transport"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data dir: %v", err)
	}
	if err := os.MkdirAll(cfg.ImageDir, 0o755); err != nil {
		log.Fatalf("Failed to create image dir: %v", err)
	}

	// 2. Initialize database
	db, err := database.Connect(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// 3. Synchronize schema
	if err := db.Migrate(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	// 4. Stores
	customers := store.NewCustomerStore(db, cfg.Relay.HistoryWindow)
	orders := store.NewOrderStore(db)
	relayMirror := store.NewRelayStore(db)

	// A restart should never leave customers stuck on a paused bot.
	if n, err := customers.ResumeAll(); err != nil {
		log.Printf("⚠️ Auto-resume failed: %v", err)
	} else if n > 0 {
		log.Printf("▶️ Auto-resumed bot for %d paused customers", n)
	}

	// 5. Shop profile
	shopStore, err := shop.NewStore(cfg.ShopProfilePath)
	if err != nil {
		log.Fatalf("Failed to load shop profile: %v", err)
	}
	defer shopStore.Close()

	// 6. Gemini
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	responder, err := ai.New(ctx, cfg.Gemini, shopStore, customers)
	if err != nil {
		log.Fatalf("Failed to init Gemini client: %v", err)
	}
	defer responder.Close()

	// 7. WhatsApp gateway
	gateway := transport.NewGateway(cfg.Gateway.URL, cfg.Gateway.AuthToken, cfg.DataDir)
	gateway.Start()

	// 8. Relay, guard, tag dispatcher
	rel := relay.New(relayMirror, gateway, responder, orders.SaveMissed, tags.StripAll,
		cfg.OwnerPhone, cfg.Relay.ReminderInterval, cfg.Relay.MaxReminders)
	rel.RestoreFromMirror()
	defer rel.Stop()

	g := guard.New(cfg.Guard.Cooldown, cfg.Guard.DedupWindow)
	defer g.Stop()

	dispatcher := tags.NewDispatcher(shopStore, customers, orders, rel, g, gateway,
		cfg.OwnerPhone, cfg.ImageDir, cfg.Relay.MaxEscalations, cfg.Guard.TrollCooldown)

	// 9. Bot loop
	b := bot.New(cfg, gateway, g, dispatcher, rel, responder, customers, orders, shopStore)

	analyticsSvc := analytics.New(db)
	p, _ := shopStore.Get()
	shopName := "Duka"
	if p != nil {
		shopName = p.ShopName
	}
	reporter := report.NewGenerator(analyticsSvc, orders, shopName)
	b.SetReporter(reporter)

	if cfg.Report.Enabled {
		scheduler := report.NewScheduler(reporter, gateway, cfg.OwnerPhone, cfg.Report.Hour)
		scheduler.Start()
		defer scheduler.Stop()
	}

	go b.Run(ctx)

	// 10. Admin HTTP API
	router := handlers.NewRouter(cfg, db, shopStore, customers, orders, analyticsSvc, gateway)
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	go func() {
		log.Printf("🌐 Admin API listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// 11. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ HTTP shutdown: %v", err)
	}

	cancel()
	gateway.Close()
	if err := db.Close(); err != nil {
		log.Printf("⚠️ DB close: %v", err)
	}
	log.Println("👋 Bye")
}
