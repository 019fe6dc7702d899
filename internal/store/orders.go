package store

import (
	"fmt"
	"log"

	"github.com/jezakh/patanabot/internal/database"
	"github.com/jezakh/patanabot/internal/models"
)

// OrderStore appends to the order ledger and the missed-opportunity log.
type OrderStore struct {
	db *database.DB
}

// NewOrderStore creates an order store.
func NewOrderStore(db *database.DB) *OrderStore {
	return &OrderStore{db: db}
}

// Save appends a closed order. The ledger is append-only.
func (s *OrderStore) Save(phone, item string, price int, location string) error {
	order := models.Order{
		Phone:            phone,
		ItemSold:         item,
		AgreedPrice:      price,
		DeliveryLocation: location,
	}
	if err := s.db.Create(&order).Error; err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	log.Printf("🛒 ORDER SAVED: %s @ TZS %d → %s (customer %s)", item, price, location, phone)
	return nil
}

// SaveMissed logs an item that was requested but unavailable.
func (s *OrderStore) SaveMissed(item string) {
	if item == "" {
		return
	}
	if err := s.db.Create(&models.MissedOpportunity{ItemRequested: item}).Error; err != nil {
		log.Printf("⚠️ Failed to log missed opportunity %q: %v", item, err)
		return
	}
	log.Printf("📉 MISSED: %q logged", item)
}

// Recent returns the latest n orders, newest first.
func (s *OrderStore) Recent(n int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.Order("created_at DESC").Limit(n).Find(&orders).Error
	return orders, err
}
