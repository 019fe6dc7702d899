package models

import "time"

// PendingPaymentRec mirrors an in-flight payment reservation to disk so a
// restart does not silently drop it. At most one row per customer.
type PendingPaymentRec struct {
	Phone            string    `gorm:"primaryKey" json:"phone"`
	ItemID           string    `json:"item_id"`
	AgreedPrice      string    `json:"agreed_price"`
	DeliveryLocation string    `json:"delivery_location"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName specifies the table name for PendingPaymentRec model
func (PendingPaymentRec) TableName() string {
	return "pending_payments"
}

// StockCheckRec mirrors an outstanding owner stock question. Reminders are
// persisted so a restarted process resumes the reminder ladder where it
// left off instead of starting over.
type StockCheckRec struct {
	Phone     string    `gorm:"primaryKey" json:"phone"`
	ChatID    string    `json:"chat_id"`
	Item      string    `json:"item"`
	Reminders int       `gorm:"default:0" json:"reminders"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for StockCheckRec model
func (StockCheckRec) TableName() string {
	return "stock_checks"
}

// EscalationRec mirrors an open escalation awaiting owner guidance.
type EscalationRec struct {
	Phone     string    `gorm:"primaryKey" json:"phone"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for EscalationRec model
func (EscalationRec) TableName() string {
	return "escalations"
}
