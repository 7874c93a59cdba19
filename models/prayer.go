package models

import "time"

// Prayer types, following the ACTS pattern.
const (
	PrayerAdoration    = "adoration"
	PrayerConfession   = "confession"
	PrayerThanksgiving = "thanksgiving"
	PrayerSupplication = "supplication"
)

// ValidPrayerType reports whether t is one of the four prayer types.
func ValidPrayerType(t string) bool {
	switch t {
	case PrayerAdoration, PrayerConfession, PrayerThanksgiving, PrayerSupplication:
		return true
	}
	return false
}

// Prayer is a journal entry in a user's prayer log.
type Prayer struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"index;not null" json:"user_id"`
	Type         string     `gorm:"size:16;not null" json:"type"`
	Content      string     `gorm:"type:text;not null" json:"content"`
	Answered     bool       `gorm:"not null;default:false" json:"answered"`
	AnsweredDate *time.Time `json:"answered_date"`
	AnsweredNote string     `gorm:"type:text" json:"answered_note"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
