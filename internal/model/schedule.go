package model

// Schedule holds a user's reminder preferences. There is at most one schedule
// per user; saving again replaces the previous values.
type Schedule struct {
	ID           string `json:"id"            gorm:"primaryKey;type:uuid"`
	UserID       string `json:"-"             gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	ReminderTime string `json:"reminder_time" gorm:"column:reminder_time;not null"` // HH:MM
	Timezone     string `json:"timezone"      gorm:"not null"`
	EmailEnabled bool   `json:"email_enabled" gorm:"column:email_enabled;not null"`
	QuoteEnabled bool   `json:"quote_enabled" gorm:"column:quote_enabled;not null"`
}

func (Schedule) TableName() string { return "schedules" }
