package progress

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/spiritfit/apperr"
	"github.com/cppla/spiritfit/models"
)

// DefaultMilestones is the catalog seeded at boot.
var DefaultMilestones = []models.Milestone{
	{Code: "first_session", Name: "First Steps", Description: "Complete your first daily session", Icon: "🌱", RequirementType: models.RequirementTotalSessions, RequirementValue: 1, DisplayOrder: 10},
	{Code: "streak_3", Name: "Three-Fold Cord", Description: "Keep a 3 day streak", Icon: "🔥", RequirementType: models.RequirementConsecutiveDays, RequirementValue: 3, DisplayOrder: 20},
	{Code: "streak_7", Name: "Week of Faith", Description: "Keep a 7 day streak", Icon: "⭐", RequirementType: models.RequirementConsecutiveDays, RequirementValue: 7, DisplayOrder: 30},
	{Code: "streak_30", Name: "Month of Devotion", Description: "Keep a 30 day streak", Icon: "👑", RequirementType: models.RequirementConsecutiveDays, RequirementValue: 30, DisplayOrder: 40},
	{Code: "longest_40", Name: "Forty Days", Description: "Reach a 40 day longest streak", Icon: "⛰️", RequirementType: models.RequirementLongestStreak, RequirementValue: 40, DisplayOrder: 50},
	{Code: "sessions_10", Name: "Faithful Ten", Description: "Complete 10 sessions", Icon: "📿", RequirementType: models.RequirementTotalSessions, RequirementValue: 10, DisplayOrder: 60},
	{Code: "sessions_100", Name: "Centurion", Description: "Complete 100 sessions", Icon: "🛡️", RequirementType: models.RequirementTotalSessions, RequirementValue: 100, DisplayOrder: 70},
	{Code: "minutes_60", Name: "Hour of Power", Description: "Spend 60 minutes in devotion", Icon: "⏳", RequirementType: models.RequirementTotalMinutes, RequirementValue: 60, DisplayOrder: 80},
	{Code: "minutes_1000", Name: "Deep Waters", Description: "Spend 1000 minutes in devotion", Icon: "🌊", RequirementType: models.RequirementTotalMinutes, RequirementValue: 1000, DisplayOrder: 90},
	{Code: "prayers_1", Name: "First Prayer", Description: "Log your first prayer", Icon: "🙏", RequirementType: models.RequirementTotalPrayers, RequirementValue: 1, DisplayOrder: 100},
	{Code: "prayers_50", Name: "Prayer Warrior", Description: "Log 50 prayers", Icon: "⚔️", RequirementType: models.RequirementTotalPrayers, RequirementValue: 50, DisplayOrder: 110},
	{Code: "answered_1", Name: "Answered", Description: "Mark a prayer as answered", Icon: "✨", RequirementType: models.RequirementAnsweredPrayers, RequirementValue: 1, DisplayOrder: 120},
	{Code: "answered_10", Name: "Witness", Description: "See 10 answered prayers", Icon: "🕊️", RequirementType: models.RequirementAnsweredPrayers, RequirementValue: 10, DisplayOrder: 130},
	{Code: "verses_100", Name: "Word Seeker", Description: "Read 100 verses", Icon: "📖", RequirementType: models.RequirementTotalVerses, RequirementValue: 100, DisplayOrder: 140},
	{Code: "verses_1000", Name: "Scripture Scholar", Description: "Read 1000 verses", Icon: "📜", RequirementType: models.RequirementTotalVerses, RequirementValue: 1000, DisplayOrder: 150},
}

// SeedMilestones inserts catalog entries missing by code. Existing rows are left untouched.
func SeedMilestones(ctx context.Context, db *gorm.DB, catalog []models.Milestone) error {
	rows := make([]models.Milestone, len(catalog))
	for i, m := range catalog {
		m.IsActive = true
		rows[i] = m
	}
	if len(rows) == 0 {
		return nil
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(&rows).Error
	return apperr.Persistence("seed milestones", err)
}
