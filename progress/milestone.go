package progress

import (
	"sort"

	"github.com/cppla/spiritfit/models"
)

// Aggregates is the snapshot milestones are evaluated against.
type Aggregates struct {
	CurrentStreak   int `json:"current_streak"`
	LongestStreak   int `json:"longest_streak"`
	TotalSessions   int `json:"total_sessions"`
	TotalMinutes    int `json:"total_minutes"`
	TotalPrayers    int `json:"total_prayers"`
	AnsweredPrayers int `json:"answered_prayers"`
	TotalVerses     int `json:"total_verses"`
}

// Value returns the aggregate a requirement type measures.
func (a Aggregates) Value(requirementType string) (int, bool) {
	switch requirementType {
	case models.RequirementConsecutiveDays:
		return a.CurrentStreak, true
	case models.RequirementLongestStreak:
		return a.LongestStreak, true
	case models.RequirementTotalSessions:
		return a.TotalSessions, true
	case models.RequirementTotalMinutes:
		return a.TotalMinutes, true
	case models.RequirementTotalPrayers:
		return a.TotalPrayers, true
	case models.RequirementAnsweredPrayers:
		return a.AnsweredPrayers, true
	case models.RequirementTotalVerses:
		return a.TotalVerses, true
	}
	return 0, false
}

// NewlyCrossed returns the active catalog entries whose threshold agg meets
// and that are not in achieved, in display order.
func NewlyCrossed(catalog []models.Milestone, achieved map[uint]bool, agg Aggregates) []models.Milestone {
	ordered := make([]models.Milestone, len(catalog))
	copy(ordered, catalog)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].DisplayOrder != ordered[j].DisplayOrder {
			return ordered[i].DisplayOrder < ordered[j].DisplayOrder
		}
		return ordered[i].ID < ordered[j].ID
	})

	var out []models.Milestone
	for _, m := range ordered {
		if !m.IsActive || achieved[m.ID] {
			continue
		}
		v, ok := agg.Value(m.RequirementType)
		if !ok {
			continue
		}
		if v >= m.RequirementValue {
			out = append(out, m)
		}
	}
	return out
}
