package models

import "time"

// Order is an append-only record of a closed sale. Rows are never updated
// or deleted; this table is the financial ledger.
type Order struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Phone            string    `gorm:"index" json:"phone"`
	ItemSold         string    `json:"item_sold"`
	AgreedPrice      int       `json:"agreed_price"`
	DeliveryLocation string    `json:"delivery_location"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName specifies the table name for Order model
func (Order) TableName() string {
	return "orders"
}

// MissedOpportunity logs an item a customer wanted but the shop could not
// supply. Append-only, feeds the restock report.
type MissedOpportunity struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ItemRequested string    `gorm:"index" json:"item_requested"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName specifies the table name for MissedOpportunity model
func (MissedOpportunity) TableName() string {
	return "missed_opportunities"
}
