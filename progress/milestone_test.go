package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cppla/spiritfit/models"
)

func TestNewlyCrossed(t *testing.T) {
	catalog := []models.Milestone{
		{ID: 1, Code: "week", RequirementType: models.RequirementConsecutiveDays, RequirementValue: 7, DisplayOrder: 30, IsActive: true},
		{ID: 2, Code: "first", RequirementType: models.RequirementTotalSessions, RequirementValue: 1, DisplayOrder: 10, IsActive: true},
		{ID: 3, Code: "off", RequirementType: models.RequirementTotalSessions, RequirementValue: 1, DisplayOrder: 5, IsActive: false},
		{ID: 4, Code: "odd", RequirementType: "mystery", RequirementValue: 0, DisplayOrder: 1, IsActive: true},
		{ID: 5, Code: "verses", RequirementType: models.RequirementTotalVerses, RequirementValue: 100, DisplayOrder: 20, IsActive: true},
		{ID: 6, Code: "prayers", RequirementType: models.RequirementTotalPrayers, RequirementValue: 1, DisplayOrder: 40, IsActive: true},
	}
	agg := Aggregates{CurrentStreak: 7, LongestStreak: 7, TotalSessions: 7, TotalVerses: 99, TotalPrayers: 3}

	got := NewlyCrossed(catalog, map[uint]bool{6: true}, agg)
	codes := make([]string, 0, len(got))
	for _, m := range got {
		codes = append(codes, m.Code)
	}
	assert.Equal(t, []string{"first", "week"}, codes)

	all := map[uint]bool{1: true, 2: true, 6: true}
	assert.Empty(t, NewlyCrossed(catalog, all, agg))
}

func TestAggregatesValue(t *testing.T) {
	agg := Aggregates{1, 2, 3, 4, 5, 6, 7}
	want := map[string]int{
		models.RequirementConsecutiveDays: 1,
		models.RequirementLongestStreak:   2,
		models.RequirementTotalSessions:   3,
		models.RequirementTotalMinutes:    4,
		models.RequirementTotalPrayers:    5,
		models.RequirementAnsweredPrayers: 6,
		models.RequirementTotalVerses:     7,
	}
	for k, v := range want {
		got, ok := agg.Value(k)
		assert.True(t, ok, k)
		assert.Equal(t, v, got, k)
	}
	_, ok := agg.Value("nope")
	assert.False(t, ok)
}
