package models

import "time"

// Milestone requirement types.
const (
	RequirementConsecutiveDays = "consecutive_days"
	RequirementTotalSessions   = "total_sessions"
	RequirementTotalMinutes    = "total_minutes"
	RequirementTotalPrayers    = "total_prayers"
	RequirementAnsweredPrayers = "answered_prayers"
	RequirementTotalVerses     = "total_verses"
	RequirementLongestStreak   = "longest_streak"
)

// Milestone is a catalog entry: reaching RequirementValue of RequirementType unlocks it.
type Milestone struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Code             string    `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Name             string    `gorm:"size:128;not null" json:"name"`
	Description      string    `gorm:"size:512" json:"description"`
	Icon             string    `gorm:"size:32" json:"icon"`
	RequirementType  string    `gorm:"size:32;not null" json:"requirement_type"`
	RequirementValue int       `gorm:"not null" json:"requirement_value"`
	DisplayOrder     int       `gorm:"not null;default:0" json:"display_order"`
	IsActive         bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
}

// UserMilestone records that a user crossed a milestone threshold. It is never revoked.
type UserMilestone struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"uniqueIndex:idx_user_milestone;not null" json:"user_id"`
	MilestoneID uint      `gorm:"uniqueIndex:idx_user_milestone;not null" json:"milestone_id"`
	AchievedAt  time.Time `gorm:"not null" json:"achieved_at"`
	IsViewed    bool      `gorm:"not null;default:false" json:"is_viewed"`
	Milestone   Milestone `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"milestone"`
}
