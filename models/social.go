package models

import "time"

// Follow is a directed edge: FollowerID follows FollowingID.
// Two opposite edges make the users friends.
type Follow struct {
	FollowerID  uint      `gorm:"primaryKey;autoIncrement:false" json:"follower_id"`
	FollowingID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Squad is a small accountability group.
type Squad struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:64;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	OwnerID     uint      `gorm:"index;not null" json:"owner_id"`
	InviteCode  string    `gorm:"size:16;uniqueIndex;not null" json:"invite_code"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Squad member roles.
const (
	SquadRoleOwner  = "owner"
	SquadRoleMember = "member"
)

// SquadMember joins users to squads.
type SquadMember struct {
	SquadID  uint      `gorm:"primaryKey;autoIncrement:false" json:"squad_id"`
	UserID   uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	Role     string    `gorm:"size:16;not null;default:'member'" json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}
