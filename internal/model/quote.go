package model

import (
	"time"

	"gorm.io/datatypes"
)

// Quote is read-only from this server's point of view.
type Quote struct {
	ID       string `json:"id"     gorm:"primaryKey;type:uuid"`
	Quote    string `json:"quote"  gorm:"not null"`
	Author   string `json:"author" gorm:"not null"`
	IsActive bool   `json:"-"      gorm:"column:is_active;not null;index"`
}

func (Quote) TableName() string { return "quotes" }

// Delivery types recorded in the quote log.
const (
	DeliveryDailyQuote   = "daily_quote"
	DeliveryMoodReminder = "mood_reminder"
)

// QuoteLogEntry records one email delivery. UserID is nil for anonymous
// sends and QuoteID is nil for reminders. Entries are append-only.
//
// Metadata is a JSON column in both stores; datatypes.JSONMap implements
// sql.Scanner and driver.Valuer, so the SQLite store can use it as well.
type QuoteLogEntry struct {
	ID           string            `json:"id"            gorm:"primaryKey;type:uuid"`
	UserID       *string           `json:"user_id"       gorm:"column:user_id;type:uuid"`
	QuoteID      *string           `json:"quote_id"      gorm:"column:quote_id;type:uuid"`
	DeliveryType string            `json:"delivery_type" gorm:"column:delivery_type;not null"`
	Status       string            `json:"status"        gorm:"not null"`
	Metadata     datatypes.JSONMap `json:"metadata"`
	CreatedAt    time.Time         `json:"created_at"`
}

func (QuoteLogEntry) TableName() string { return "quote_log" }
