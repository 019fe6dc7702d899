// Package analytics aggregates the order ledger and customer book into
// the figures the owner sees in the daily report and the admin API.
package analytics

import (
	"time"

	"github.com/jezakh/patanabot/internal/database"
	"github.com/jezakh/patanabot/internal/models"
)

// Service runs read-only aggregate queries.
type Service struct {
	db *database.DB
}

func New(db *database.DB) *Service {
	return &Service{db: db}
}

// Summary is the sales picture for one period.
type Summary struct {
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	Orders       int64     `json:"orders"`
	Revenue      int64     `json:"revenue"`
	Missed       int64     `json:"missed"`
	NewCustomers int64     `json:"new_customers"`
}

// ProductCount is one row of a top-products ranking.
type ProductCount struct {
	Item    string `json:"item"`
	Count   int64  `json:"count"`
	Revenue int64  `json:"revenue"`
}

// Segment is a customer-rating bucket.
type Segment struct {
	Rating int    `json:"rating"`
	Label  string `json:"label"`
	Count  int64  `json:"count"`
}

// DailySummary covers today from local midnight.
func (s *Service) DailySummary() (Summary, error) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.summary(from, now)
}

// WeeklySummary covers the last seven days.
func (s *Service) WeeklySummary() (Summary, error) {
	now := time.Now()
	return s.summary(now.AddDate(0, 0, -7), now)
}

func (s *Service) summary(from, to time.Time) (Summary, error) {
	out := Summary{From: from, To: to}

	if err := s.db.Model(&models.Order{}).
		Where("created_at BETWEEN ? AND ?", from, to).
		Count(&out.Orders).Error; err != nil {
		return out, err
	}

	var revenue *int64
	if err := s.db.Model(&models.Order{}).
		Where("created_at BETWEEN ? AND ?", from, to).
		Select("SUM(agreed_price)").Scan(&revenue).Error; err != nil {
		return out, err
	}
	if revenue != nil {
		out.Revenue = *revenue
	}

	if err := s.db.Model(&models.MissedOpportunity{}).
		Where("created_at BETWEEN ? AND ?", from, to).
		Count(&out.Missed).Error; err != nil {
		return out, err
	}

	if err := s.db.Model(&models.Customer{}).
		Where("created_at BETWEEN ? AND ?", from, to).
		Count(&out.NewCustomers).Error; err != nil {
		return out, err
	}
	return out, nil
}

// TopProducts ranks sold items over the last `days` days.
func (s *Service) TopProducts(days, limit int) ([]ProductCount, error) {
	from := time.Now().AddDate(0, 0, -days)
	var rows []ProductCount
	err := s.db.Model(&models.Order{}).
		Select("item_sold AS item, COUNT(*) AS count, SUM(agreed_price) AS revenue").
		Where("created_at >= ?", from).
		Group("item_sold").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// TopMissed ranks items customers asked for but the shop did not have.
// This is the restock shopping list.
func (s *Service) TopMissed(days, limit int) ([]ProductCount, error) {
	from := time.Now().AddDate(0, 0, -days)
	var rows []ProductCount
	err := s.db.Model(&models.MissedOpportunity{}).
		Select("item_requested AS item, COUNT(*) AS count").
		Where("created_at >= ?", from).
		Group("item_requested").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// Segments buckets the customer book by rating.
func (s *Service) Segments() ([]Segment, error) {
	var rows []Segment
	if err := s.db.Model(&models.Customer{}).
		Select("rating, COUNT(*) AS count").
		Group("rating").
		Order("rating DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Label = models.RatingLabel(rows[i].Rating)
	}
	return rows, nil
}
