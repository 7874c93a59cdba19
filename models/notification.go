package models

import "time"

// Notification types.
const (
	NotificationPrayedForPost = "prayed_for_post"
	NotificationComment       = "comment"
	NotificationMilestone     = "milestone"
)

// Notification is addressed to UserID about something ActorID did.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index:idx_notification_user_read,priority:1;not null" json:"user_id"`
	ActorID   uint      `json:"actor_id,omitempty"`
	Type      string    `gorm:"size:32;not null" json:"type"`
	PostID    *uint     `json:"post_id,omitempty"`
	Message   string    `gorm:"size:255" json:"message"`
	IsRead    bool      `gorm:"index:idx_notification_user_read,priority:2;not null;default:false" json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
