package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/spiritfit/middleware"
	"github.com/cppla/spiritfit/models"
	"github.com/cppla/spiritfit/progress"
	"github.com/cppla/spiritfit/utils"
)

// StatsController provides community statistics such as counts and daily activity.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate statistics for the community.
func (s *StatsController) GetStats(ctx *gin.Context) {
	db := s.db.WithContext(ctx.Request.Context())
	var userCount, postCount, commentCount, sessionsToday, prayerCount, answeredCount int64

	if err := db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		userCount = 0
	}
	if err := db.Model(&models.CommunityPost{}).Count(&postCount).Error; err != nil {
		postCount = 0
	}
	if err := db.Model(&models.Comment{}).Count(&commentCount).Error; err != nil {
		commentCount = 0
	}

	today := progress.Day(time.Now(), middleware.Location(ctx))
	if err := db.Model(&models.SessionRecord{}).
		Where("session_date = ? AND completed_at IS NOT NULL", today).
		Count(&sessionsToday).Error; err != nil {
		sessionsToday = 0
	}
	if err := db.Model(&models.Prayer{}).Count(&prayerCount).Error; err != nil {
		prayerCount = 0
	}
	if err := db.Model(&models.Prayer{}).Where("answered = ?", true).Count(&answeredCount).Error; err != nil {
		answeredCount = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":            userCount,
		"post_count":            postCount,
		"comment_count":         commentCount,
		"sessions_today":        sessionsToday,
		"prayer_count":          prayerCount,
		"answered_prayer_count": answeredCount,
	})
}

// GetPostStats returns interaction counts for a given post id.
func (s *StatsController) GetPostStats(ctx *gin.Context) {
	id, ok := paramID(ctx, "id", codeStats)
	if !ok {
		return
	}
	db := s.db.WithContext(ctx.Request.Context())
	var reactions, prayers, comments, votes int64
	if err := db.Model(&models.PostReaction{}).Where("post_id = ?", id).Count(&reactions).Error; err != nil {
		reactions = 0
	}
	if err := db.Model(&models.PostPrayer{}).Where("post_id = ?", id).Count(&prayers).Error; err != nil {
		prayers = 0
	}
	if err := db.Model(&models.Comment{}).Where("post_id = ?", id).Count(&comments).Error; err != nil {
		comments = 0
	}
	if err := db.Model(&models.PollVote{}).Where("post_id = ?", id).Count(&votes).Error; err != nil {
		votes = 0
	}
	utils.Success(ctx, gin.H{
		"reactions_count": reactions,
		"prayers_count":   prayers,
		"comments_count":  comments,
		"votes_count":     votes,
	})
}
