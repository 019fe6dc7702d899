package store

import (
	"encoding/json"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jezakh/patanabot/internal/database"
	"github.com/jezakh/patanabot/internal/models"
)

// Turn is one entry in a customer's conversation window.
type Turn struct {
	Role string `json:"role"` // "customer" or "assistant"
	Text string `json:"text"`
}

const (
	RoleCustomer  = "customer"
	RoleAssistant = "assistant"
)

// CustomerStore persists customer profiles and conversation history.
type CustomerStore struct {
	db     *database.DB
	window int
}

// NewCustomerStore creates a customer store trimming history to window turns.
func NewCustomerStore(db *database.DB, window int) *CustomerStore {
	if window <= 0 {
		window = 15
	}
	return &CustomerStore{db: db, window: window}
}

// Get returns the profile for phone, creating a default row on first contact.
func (s *CustomerStore) Get(phone string) (*models.Customer, error) {
	var c models.Customer
	err := s.db.Where("phone = ?", phone).First(&c).Error
	if err == gorm.ErrRecordNotFound {
		c = models.Customer{Phone: phone, Rating: 3, History: []byte("[]")}
		if err := s.db.Create(&c).Error; err != nil {
			return nil, fmt.Errorf("failed to create customer %s: %w", phone, err)
		}
		return &c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load customer %s: %w", phone, err)
	}
	return &c, nil
}

// History returns the stored conversation window for phone. A missing row or
// unreadable blob yields an empty history rather than an error; the
// conversation just starts fresh.
func (s *CustomerStore) History(phone string) []Turn {
	var c models.Customer
	if err := s.db.Where("phone = ?", phone).First(&c).Error; err != nil {
		return nil
	}
	var turns []Turn
	if err := json.Unmarshal(c.History, &turns); err != nil {
		log.Printf("⚠️ Corrupted history for %s, starting fresh: %v", phone, err)
		return nil
	}
	return turns
}

// SaveHistory stores the conversation window for phone, trimming to the
// configured maximum (oldest first).
func (s *CustomerStore) SaveHistory(phone string, turns []Turn) error {
	if len(turns) > s.window {
		turns = turns[len(turns)-s.window:]
	}
	blob, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("failed to serialize history: %w", err)
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoUpdates: clause.AssignmentColumns([]string{"history", "updated_at"}),
	}).Create(&models.Customer{Phone: phone, Rating: 3, History: blob}).Error
}

// ResetHistory drops the stored window so the next turn starts clean. Used
// when the generator rejects the history as malformed.
func (s *CustomerStore) ResetHistory(phone string) error {
	return s.db.Model(&models.Customer{}).Where("phone = ?", phone).
		Update("history", []byte("[]")).Error
}

// Rating returns the current 1-5 rating for phone.
func (s *CustomerStore) Rating(phone string) int {
	c, err := s.Get(phone)
	if err != nil {
		return 3
	}
	return c.Rating
}

// SetRating clamps rating into [1,5] and stores it.
func (s *CustomerStore) SetRating(phone string, rating int) error {
	if rating < 1 {
		rating = 1
	}
	if rating > 5 {
		rating = 5
	}
	if _, err := s.Get(phone); err != nil {
		return err
	}
	return s.db.Model(&models.Customer{}).Where("phone = ?", phone).
		Update("rating", rating).Error
}

// BumpRating moves the rating by delta, clamped to [1,5].
func (s *CustomerStore) BumpRating(phone string, delta int) error {
	return s.SetRating(phone, s.Rating(phone)+delta)
}

// IncrementEscalation bumps the escalation counter and returns the new count.
func (s *CustomerStore) IncrementEscalation(phone string) (int, error) {
	c, err := s.Get(phone)
	if err != nil {
		return 0, err
	}
	count := c.Escalations + 1
	err = s.db.Model(&models.Customer{}).Where("phone = ?", phone).
		Update("escalations", count).Error
	return count, err
}

// ResetEscalations zeroes the counter. Only a successfully closed order
// does this.
func (s *CustomerStore) ResetEscalations(phone string) error {
	return s.db.Model(&models.Customer{}).Where("phone = ?", phone).
		Update("escalations", 0).Error
}

// Pause disables the assistant for phone so the owner can take over.
func (s *CustomerStore) Pause(phone string) error {
	if _, err := s.Get(phone); err != nil {
		return err
	}
	return s.db.Model(&models.Customer{}).Where("phone = ?", phone).
		Update("bot_paused", true).Error
}

// Resume re-enables the assistant for phone.
func (s *CustomerStore) Resume(phone string) error {
	return s.db.Model(&models.Customer{}).Where("phone = ?", phone).
		Update("bot_paused", false).Error
}

// ResumeAll re-enables the assistant for every paused customer and returns
// how many were resumed.
func (s *CustomerStore) ResumeAll() (int, error) {
	res := s.db.Model(&models.Customer{}).Where("bot_paused = ?", true).
		Update("bot_paused", false)
	return int(res.RowsAffected), res.Error
}

// Active reports whether the assistant should answer phone.
func (s *CustomerStore) Active(phone string) bool {
	var c models.Customer
	if err := s.db.Where("phone = ?", phone).First(&c).Error; err != nil {
		return true // unknown customer: nothing paused yet
	}
	return !c.BotPaused
}

// Sanitize repairs a conversation window for use as generator context: the
// sequence must start with a customer turn and strictly alternate. Leading
// assistant turns are dropped, same-role runs are collapsed by dropping the
// offender, and a trailing unanswered customer turn is removed.
func Sanitize(turns []Turn) []Turn {
	for len(turns) > 0 && turns[0].Role != RoleCustomer {
		turns = turns[1:]
	}
	clean := make([]Turn, 0, len(turns))
	expected := RoleCustomer
	for _, t := range turns {
		if t.Role != expected || t.Text == "" {
			continue
		}
		clean = append(clean, t)
		if expected == RoleCustomer {
			expected = RoleAssistant
		} else {
			expected = RoleCustomer
		}
	}
	if len(clean) > 0 && clean[len(clean)-1].Role == RoleCustomer {
		clean = clean[:len(clean)-1]
	}
	return clean
}
