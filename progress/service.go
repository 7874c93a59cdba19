// Package progress turns a user's session log into streaks, rollups and
// milestone unlocks. The calculators are pure; Service wires them to storage.
package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/spiritfit/apperr"
	"github.com/cppla/spiritfit/models"
	"github.com/cppla/spiritfit/points"
	"github.com/cppla/spiritfit/utils"
)

// Challenge counters bumped by session and prayer actions.
const (
	ChallengeDailySessions   = "daily_sessions"
	ChallengeDevotionMinutes = "devotion_minutes"
	ChallengeVersesRead      = "verses_read"
	ChallengePrayersLogged   = "prayers_logged"
)

// Service persists session progress and evaluates milestones.
type Service struct {
	db     *gorm.DB
	ledger points.Ledger
	now    func() time.Time
}

// NewService builds a Service. ledger may be nil, in which case no points are awarded.
func NewService(db *gorm.DB, ledger points.Ledger) *Service {
	return &Service{db: db, ledger: ledger, now: time.Now}
}

// WithClock replaces the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// PhaseInput describes one phase completion.
type PhaseInput struct {
	Phase   string `json:"phase"`
	Minutes int    `json:"minutes"`
	Verses  int    `json:"verses"`
}

// PhaseResult is what a phase completion produced.
type PhaseResult struct {
	Session          models.SessionRecord `json:"session"`
	Progress         models.UserProgress  `json:"progress"`
	SessionCompleted bool                 `json:"session_completed"`
	PointsEarned     int                  `json:"points_earned"`
	NewMilestones    []models.Milestone   `json:"new_milestones"`
}

// CheckResult is the outcome of a streak status check.
type CheckResult struct {
	Progress      models.UserProgress `json:"progress"`
	Aggregates    Aggregates          `json:"aggregates"`
	NewMilestones []models.Milestone  `json:"new_milestones"`
}

// CompletePhase marks a phase done on today's session, creating the record on
// first use. Minutes and verses accumulate even when the phase was already done,
// but phase points are only earned the first time.
func (s *Service) CompletePhase(ctx context.Context, userID uint, in PhaseInput, loc *time.Location) (PhaseResult, error) {
	if userID == 0 {
		return PhaseResult{}, apperr.ErrNotAuthenticated
	}
	if !validPhase(in.Phase) {
		return PhaseResult{}, apperr.Validation("unknown phase %q", in.Phase)
	}
	if in.Minutes < 0 || in.Verses < 0 {
		return PhaseResult{}, apperr.Validation("minutes and verses must be non-negative")
	}

	now := s.now()
	day := Day(now, loc)

	var (
		rec          models.SessionRecord
		alreadyDone  bool
		justFinished bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.SessionRecord{UserID: userID, SessionDate: day}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? AND session_date = ?", userID, day).First(&rec).Error; err != nil {
			return err
		}
		alreadyDone = rec.PhaseDone(in.Phase)

		patch := map[string]interface{}{
			in.Phase + "_completed": true,
			"duration_minutes":      gorm.Expr("duration_minutes + ?", in.Minutes),
			"verses_read":           gorm.Expr("verses_read + ?", in.Verses),
		}
		after := rec
		setPhase(&after, in.Phase)
		if rec.CompletedAt == nil && after.AllPhasesDone() {
			patch["completed_at"] = now
			justFinished = true
		}
		if err := tx.Model(&models.SessionRecord{}).Where("id = ?", rec.ID).Updates(patch).Error; err != nil {
			return err
		}
		return tx.First(&rec, rec.ID).Error
	})
	if err != nil {
		return PhaseResult{}, apperr.Persistence("complete phase", err)
	}

	res := PhaseResult{Session: rec, SessionCompleted: justFinished}
	if !alreadyDone {
		res.PointsEarned += points.Give(ctx, s.ledger, userID, points.ReasonPhaseComplete)
	}
	if justFinished {
		res.PointsEarned += points.Give(ctx, s.ledger, userID, points.ReasonSessionComplete)
		s.bump(ctx, userID, ChallengeDailySessions, 1)
	}
	if in.Verses > 0 {
		res.PointsEarned += points.GiveN(ctx, s.ledger, userID, in.Verses*points.Values[points.ReasonVerseRead], points.ReasonVerseRead)
		s.bump(ctx, userID, ChallengeVersesRead, in.Verses)
	}
	if in.Minutes > 0 {
		s.bump(ctx, userID, ChallengeDevotionMinutes, in.Minutes)
	}

	check, err := s.Check(ctx, userID, loc)
	if err != nil {
		return res, err
	}
	res.Progress = check.Progress
	res.NewMilestones = check.NewMilestones
	return res, nil
}

func validPhase(p string) bool {
	for _, ph := range models.Phases {
		if ph == p {
			return true
		}
	}
	return false
}

func setPhase(rec *models.SessionRecord, phase string) {
	switch phase {
	case models.PhaseWorship:
		rec.WorshipCompleted = true
	case models.PhaseScripture:
		rec.ScriptureCompleted = true
	case models.PhasePrayer:
		rec.PrayerCompleted = true
	case models.PhaseReflection:
		rec.ReflectionCompleted = true
	}
}

// Today returns the viewer's session for the current day. found is false when
// no phase has been completed yet.
func (s *Service) Today(ctx context.Context, userID uint, loc *time.Location) (rec models.SessionRecord, found bool, err error) {
	day := Day(s.now(), loc)
	err = s.db.WithContext(ctx).Where("user_id = ? AND session_date = ?", userID, day).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.SessionRecord{UserID: userID, SessionDate: day}, false, nil
	}
	if err != nil {
		return rec, false, apperr.Persistence("load today's session", err)
	}
	return rec, true, nil
}

// History lists a user's sessions, newest first. limit <= 0 returns all of them.
func (s *Service) History(ctx context.Context, userID uint, limit int) ([]models.SessionRecord, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("session_date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.SessionRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, apperr.Persistence("list sessions", err)
	}
	return rows, nil
}

// Recompute rebuilds the user's progress row from the full session log.
func (s *Service) Recompute(ctx context.Context, userID uint, loc *time.Location) (models.UserProgress, error) {
	sessions, err := s.History(ctx, userID, 0)
	if err != nil {
		return models.UserProgress{}, err
	}
	p := Rollup(userID, sessions, Day(s.now(), loc))
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, UpdateAll: true}).
		Create(&p).Error
	if err != nil {
		return models.UserProgress{}, apperr.Persistence("save progress", err)
	}
	return p, nil
}

// Snapshot recomputes progress and gathers every aggregate milestones measure.
func (s *Service) Snapshot(ctx context.Context, userID uint, loc *time.Location) (Aggregates, models.UserProgress, error) {
	p, err := s.Recompute(ctx, userID, loc)
	if err != nil {
		return Aggregates{}, p, err
	}
	agg := Aggregates{
		CurrentStreak: p.CurrentStreak,
		LongestStreak: p.LongestStreak,
		TotalSessions: p.TotalSessions,
		TotalMinutes:  p.TotalMinutes,
	}

	db := s.db.WithContext(ctx)
	var n int64
	if err := db.Model(&models.Prayer{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return agg, p, apperr.Persistence("count prayers", err)
	}
	agg.TotalPrayers = int(n)
	if err := db.Model(&models.Prayer{}).Where("user_id = ? AND answered = ?", userID, true).Count(&n).Error; err != nil {
		return agg, p, apperr.Persistence("count answered prayers", err)
	}
	agg.AnsweredPrayers = int(n)
	var verses int
	if err := db.Model(&models.SessionRecord{}).Where("user_id = ?", userID).
		Select("COALESCE(SUM(verses_read), 0)").Scan(&verses).Error; err != nil {
		return agg, p, apperr.Persistence("sum verses", err)
	}
	agg.TotalVerses = verses
	return agg, p, nil
}

// Check is the streak status check run on app load and after every activity:
// it recomputes progress and awards any milestone the new aggregates cross.
func (s *Service) Check(ctx context.Context, userID uint, loc *time.Location) (CheckResult, error) {
	if userID == 0 {
		return CheckResult{}, apperr.ErrNotAuthenticated
	}
	agg, p, err := s.Snapshot(ctx, userID, loc)
	if err != nil {
		return CheckResult{}, err
	}
	awarded, err := s.Evaluate(ctx, userID, agg)
	if err != nil {
		return CheckResult{}, err
	}
	return CheckResult{Progress: p, Aggregates: agg, NewMilestones: awarded}, nil
}

// Evaluate awards every active milestone agg crosses that the user lacks and
// returns the ones awarded now. A failed award is left out and retried on the
// next evaluation.
func (s *Service) Evaluate(ctx context.Context, userID uint, agg Aggregates) ([]models.Milestone, error) {
	var catalog []models.Milestone
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&catalog).Error; err != nil {
		return nil, apperr.Persistence("load milestones", err)
	}
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.UserMilestone{}).
		Where("user_id = ?", userID).Pluck("milestone_id", &ids).Error; err != nil {
		return nil, apperr.Persistence("load achieved milestones", err)
	}
	achieved := make(map[uint]bool, len(ids))
	for _, id := range ids {
		achieved[id] = true
	}

	awarded := []models.Milestone{}
	for _, m := range NewlyCrossed(catalog, achieved, agg) {
		err := s.Award(ctx, userID, m.ID)
		switch {
		case err == nil:
			awarded = append(awarded, m)
			s.notifyMilestone(ctx, userID, m)
		case errors.Is(err, apperr.ErrAlreadyDone):
		default:
			utils.Sugar.Warnw("milestone award failed", "user_id", userID, "milestone", m.Code, "err", err)
		}
	}
	return awarded, nil
}

// Award records a milestone for a user. A repeat reports apperr.ErrAlreadyDone.
func (s *Service) Award(ctx context.Context, userID, milestoneID uint) error {
	row := models.UserMilestone{UserID: userID, MilestoneID: milestoneID, AchievedAt: s.now()}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "milestone_id"}},
			DoNothing: true,
		}).
		Omit("Milestone").
		Create(&row)
	if res.Error != nil {
		return apperr.Persistence("award milestone", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.AlreadyDone("milestone %d already achieved", milestoneID)
	}
	return nil
}

func (s *Service) notifyMilestone(ctx context.Context, userID uint, m models.Milestone) {
	n := models.Notification{
		UserID:  userID,
		ActorID: userID,
		Type:    models.NotificationMilestone,
		Message: fmt.Sprintf("You unlocked %s", m.Name),
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		utils.Sugar.Warnw("milestone notification failed", "user_id", userID, "milestone", m.Code, "err", err)
	}
}

// MilestoneStatus is one catalog entry as seen by a user.
type MilestoneStatus struct {
	models.Milestone
	Achieved   bool       `json:"achieved"`
	AchievedAt *time.Time `json:"achieved_at,omitempty"`
	IsViewed   bool       `json:"is_viewed"`
	Current    int        `json:"current"`
}

// Milestones lists the active catalog with the user's achievement state and current value.
func (s *Service) Milestones(ctx context.Context, userID uint, loc *time.Location) ([]MilestoneStatus, error) {
	agg, _, err := s.Snapshot(ctx, userID, loc)
	if err != nil {
		return nil, err
	}
	var catalog []models.Milestone
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).
		Order("display_order ASC, id ASC").Find(&catalog).Error; err != nil {
		return nil, apperr.Persistence("load milestones", err)
	}
	var mine []models.UserMilestone
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&mine).Error; err != nil {
		return nil, apperr.Persistence("load achieved milestones", err)
	}
	byID := make(map[uint]models.UserMilestone, len(mine))
	for _, um := range mine {
		byID[um.MilestoneID] = um
	}

	out := make([]MilestoneStatus, 0, len(catalog))
	for _, m := range catalog {
		st := MilestoneStatus{Milestone: m}
		st.Current, _ = agg.Value(m.RequirementType)
		if um, ok := byID[m.ID]; ok {
			at := um.AchievedAt
			st.Achieved = true
			st.AchievedAt = &at
			st.IsViewed = um.IsViewed
		}
		out = append(out, st)
	}
	return out, nil
}

// MarkViewed flags achieved milestones as seen. No ids marks all of them.
func (s *Service) MarkViewed(ctx context.Context, userID uint, milestoneIDs []uint) error {
	q := s.db.WithContext(ctx).Model(&models.UserMilestone{}).Where("user_id = ?", userID)
	if len(milestoneIDs) > 0 {
		q = q.Where("milestone_id IN ?", milestoneIDs)
	}
	return apperr.Persistence("mark milestones viewed", q.Update("is_viewed", true).Error)
}

// BumpChallenge adds delta to a challenge counter, creating it on first use.
func (s *Service) BumpChallenge(ctx context.Context, userID uint, challengeType string, delta int) error {
	if challengeType == "" {
		return apperr.Validation("challenge type is required")
	}
	row := models.ChallengeProgress{UserID: userID, ChallengeType: challengeType, Progress: delta}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "challenge_type"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"progress":   gorm.Expr("challenge_progress.progress + ?", delta),
			"updated_at": s.now(),
		}),
	}).Create(&row).Error
	return apperr.Persistence("update challenge progress", err)
}

// Challenges lists a user's challenge counters.
func (s *Service) Challenges(ctx context.Context, userID uint) ([]models.ChallengeProgress, error) {
	var rows []models.ChallengeProgress
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("challenge_type").Find(&rows).Error; err != nil {
		return nil, apperr.Persistence("list challenges", err)
	}
	return rows, nil
}

// bump is BumpChallenge for call sites that must not fail the user action.
func (s *Service) bump(ctx context.Context, userID uint, challengeType string, delta int) {
	if err := s.BumpChallenge(ctx, userID, challengeType, delta); err != nil {
		utils.Sugar.Warnw("challenge progress failed", "user_id", userID, "challenge", challengeType, "err", err)
	}
}
