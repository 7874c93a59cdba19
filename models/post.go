package models

import (
	"time"

	"gorm.io/datatypes"
)

// Post types.
const (
	PostText          = "text"
	PostPrayerRequest = "prayer_request"
	PostImage         = "image"
	PostVideo         = "video"
	PostMusic         = "music"
	PostLink          = "link"
	PostPoll          = "poll"
	PostTestimony     = "testimony"
	PostQuestion      = "question"
	PostVerse         = "verse"
)

// Post visibility.
const (
	VisibilityPublic  = "public"
	VisibilitySquad   = "squad_only"
	VisibilityFriends = "friends_only"
)

// Reaction types.
const (
	ReactionHeart  = "heart"
	ReactionFire   = "fire"
	ReactionPray   = "pray"
	ReactionAmen   = "amen"
	ReactionPraise = "praise"
)

// ReactionTypes lists every known reaction; anything else is ignored when counting.
var ReactionTypes = []string{ReactionHeart, ReactionFire, ReactionPray, ReactionAmen, ReactionPraise}

// ValidReaction reports whether r is a known reaction type.
func ValidReaction(r string) bool {
	for _, t := range ReactionTypes {
		if t == r {
			return true
		}
	}
	return false
}

// CommunityPost is a feed entry. ContentData holds the payload for PostType;
// PollData is only set for polls. IsPrayerRequest is denormalised from the
// payload so the prayer_requests filter stays a plain column match.
type CommunityPost struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	UserID            uint           `gorm:"index;not null" json:"user_id"`
	PostType          string         `gorm:"size:32;index;not null" json:"post_type"`
	ContentData       datatypes.JSON `json:"content_data"`
	Visibility        string         `gorm:"size:16;not null;default:'public'" json:"visibility"`
	SquadID           *uint          `gorm:"index" json:"squad_id,omitempty"`
	IsPrayerRequest   bool           `gorm:"not null;default:false" json:"is_prayer_request"`
	PrayerUrgency     string         `gorm:"size:16" json:"prayer_urgency,omitempty"`
	IsAnswered        bool           `gorm:"not null;default:false" json:"is_answered"`
	AnsweredAt        *time.Time     `json:"answered_at,omitempty"`
	AnsweredTestimony string         `gorm:"type:text" json:"answered_testimony,omitempty"`
	PollData          datatypes.JSON `json:"poll_data,omitempty"`
	EngagementScore   int            `gorm:"not null;default:0;index" json:"engagement_score"`
	PrayerCount       int            `gorm:"not null;default:0" json:"prayer_count"`
	CommentCount      int            `gorm:"not null;default:0" json:"comment_count"`
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// PostReaction is a user's single reaction on a post.
type PostReaction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PostID       uint      `gorm:"uniqueIndex:idx_reaction_post_user;not null" json:"post_id"`
	UserID       uint      `gorm:"uniqueIndex:idx_reaction_post_user;not null" json:"user_id"`
	ReactionType string    `gorm:"size:16;not null" json:"reaction_type"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PostPrayer records that a user prayed for a post.
type PostPrayer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"uniqueIndex:idx_prayer_post_user;not null" json:"post_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_prayer_post_user;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PollVote records a user's single vote on a poll post.
type PollVote struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PostID      uint      `gorm:"uniqueIndex:idx_vote_post_user;not null" json:"post_id"`
	UserID      uint      `gorm:"uniqueIndex:idx_vote_post_user;not null" json:"user_id"`
	OptionIndex int       `gorm:"not null" json:"option_index"`
	CreatedAt   time.Time `json:"created_at"`
}
