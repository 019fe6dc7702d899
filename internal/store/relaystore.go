package store

import (
	"log"

	"gorm.io/gorm/clause"

	"github.com/jezakh/patanabot/internal/database"
	"github.com/jezakh/patanabot/internal/models"
)

// RelayStore is the durable mirror of the relay's in-memory maps. Timers
// are not persisted; the relay rebuilds them from these rows at boot.
type RelayStore struct {
	db *database.DB
}

// NewRelayStore creates a relay mirror store.
func NewRelayStore(db *database.DB) *RelayStore {
	return &RelayStore{db: db}
}

func (s *RelayStore) upsert(rec interface{}) {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		UpdateAll: true,
	}).Create(rec).Error
	if err != nil {
		log.Printf("⚠️ Relay mirror write failed: %v", err)
	}
}

// PutPending mirrors a pending payment record.
func (s *RelayStore) PutPending(rec *models.PendingPaymentRec) { s.upsert(rec) }

// DeletePending removes the mirrored pending payment for phone.
func (s *RelayStore) DeletePending(phone string) {
	s.db.Where("phone = ?", phone).Delete(&models.PendingPaymentRec{})
}

// PutStockCheck mirrors a stock check record.
func (s *RelayStore) PutStockCheck(rec *models.StockCheckRec) { s.upsert(rec) }

// DeleteStockCheck removes the mirrored stock check for phone.
func (s *RelayStore) DeleteStockCheck(phone string) {
	s.db.Where("phone = ?", phone).Delete(&models.StockCheckRec{})
}

// PutEscalation mirrors an escalation record.
func (s *RelayStore) PutEscalation(rec *models.EscalationRec) { s.upsert(rec) }

// DeleteEscalation removes the mirrored escalation for phone.
func (s *RelayStore) DeleteEscalation(phone string) {
	s.db.Where("phone = ?", phone).Delete(&models.EscalationRec{})
}

// LoadAll returns every mirrored record so the relay can rebuild its maps
// and timers after a restart.
func (s *RelayStore) LoadAll() ([]models.PendingPaymentRec, []models.StockCheckRec, []models.EscalationRec, error) {
	var pending []models.PendingPaymentRec
	var checks []models.StockCheckRec
	var escalations []models.EscalationRec
	if err := s.db.Find(&pending).Error; err != nil {
		return nil, nil, nil, err
	}
	if err := s.db.Find(&checks).Error; err != nil {
		return nil, nil, nil, err
	}
	if err := s.db.Find(&escalations).Error; err != nil {
		return nil, nil, nil, err
	}
	return pending, checks, escalations, nil
}
