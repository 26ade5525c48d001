package model

import "time"

// Checkin is one mood entry. Mood is always in [1, 10]; Note is nil when the
// user left it empty. Check-ins are immutable once written.
type Checkin struct {
	ID        string    `json:"id"         gorm:"primaryKey;type:uuid"`
	UserID    string    `json:"-"          gorm:"column:user_id;type:uuid;not null;index"`
	Mood      int       `json:"mood"       gorm:"not null"`
	Note      *string   `json:"note"`
	CheckinAt time.Time `json:"checkin_at" gorm:"column:checkin_at;not null;index"`
}

func (Checkin) TableName() string { return "checkins" }

// Report is the summary shown on the reports page.
type Report struct {
	Total         int     `json:"total"`
	AverageMood   float64 `json:"averageMood"`
	LastWeekCount int     `json:"lastWeekCount"`
}
