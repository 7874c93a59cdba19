package models

import "time"

// Daily session phases.
const (
	PhaseWorship    = "worship"
	PhaseScripture  = "scripture"
	PhasePrayer     = "prayer"
	PhaseReflection = "reflection"
)

// Phases lists the four daily phases in the order the app presents them.
var Phases = []string{PhaseWorship, PhaseScripture, PhasePrayer, PhaseReflection}

// SessionRecord stores one user's devotional session for one calendar day.
// SessionDate holds the calendar date as midnight UTC; it carries no time of day.
// CompletedAt is set once, when all four phases are done, and never cleared.
type SessionRecord struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	UserID              uint       `gorm:"uniqueIndex:idx_session_user_date;not null" json:"user_id"`
	SessionDate         time.Time  `gorm:"uniqueIndex:idx_session_user_date;type:date;not null" json:"session_date"`
	WorshipCompleted    bool       `gorm:"not null;default:false" json:"worship_completed"`
	ScriptureCompleted  bool       `gorm:"not null;default:false" json:"scripture_completed"`
	PrayerCompleted     bool       `gorm:"not null;default:false" json:"prayer_completed"`
	ReflectionCompleted bool       `gorm:"not null;default:false" json:"reflection_completed"`
	DurationMinutes     int        `gorm:"not null;default:0" json:"duration_minutes"`
	VersesRead          int        `gorm:"not null;default:0" json:"verses_read"`
	CompletedAt         *time.Time `json:"completed_at"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// AllPhasesDone reports whether every phase flag is set.
func (s SessionRecord) AllPhasesDone() bool {
	return s.WorshipCompleted && s.ScriptureCompleted && s.PrayerCompleted && s.ReflectionCompleted
}

// PhaseDone reports the flag for a named phase.
func (s SessionRecord) PhaseDone(phase string) bool {
	switch phase {
	case PhaseWorship:
		return s.WorshipCompleted
	case PhaseScripture:
		return s.ScriptureCompleted
	case PhasePrayer:
		return s.PrayerCompleted
	case PhaseReflection:
		return s.ReflectionCompleted
	}
	return false
}

// UserProgress is the per-user rollup recomputed from the session log.
type UserProgress struct {
	UserID          uint       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	CurrentStreak   int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak   int        `gorm:"not null;default:0" json:"longest_streak"`
	TotalSessions   int        `gorm:"not null;default:0" json:"total_sessions"`
	TotalMinutes    int        `gorm:"not null;default:0" json:"total_minutes"`
	LastSessionDate *time.Time `gorm:"type:date" json:"last_session_date"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName keeps the rollup table name singular per user.
func (UserProgress) TableName() string { return "user_progress" }

// ChallengeProgress is a per-user counter bumped atomically by challenge-relevant actions.
type ChallengeProgress struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"uniqueIndex:idx_challenge_user_type;not null" json:"user_id"`
	ChallengeType string    `gorm:"uniqueIndex:idx_challenge_user_type;size:64;not null" json:"challenge_type"`
	Progress      int       `gorm:"not null;default:0" json:"progress"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName implements the GORM tabler interface.
func (ChallengeProgress) TableName() string { return "challenge_progress" }
