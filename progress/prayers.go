package progress

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/spiritfit/apperr"
	"github.com/cppla/spiritfit/models"
	"github.com/cppla/spiritfit/points"
	"github.com/cppla/spiritfit/utils"
)

const maxPrayerLen = 4000

// PrayerResult pairs a journal entry with milestones its change unlocked.
type PrayerResult struct {
	Prayer        models.Prayer      `json:"prayer"`
	PointsEarned  int                `json:"points_earned"`
	NewMilestones []models.Milestone `json:"new_milestones"`
}

// LogPrayer adds an entry to the user's prayer journal.
func (s *Service) LogPrayer(ctx context.Context, userID uint, prayerType, content string, loc *time.Location) (PrayerResult, error) {
	if userID == 0 {
		return PrayerResult{}, apperr.ErrNotAuthenticated
	}
	if !models.ValidPrayerType(prayerType) {
		return PrayerResult{}, apperr.Validation("unknown prayer type %q", prayerType)
	}
	content = utils.SanitizePlain(content)
	if content == "" {
		return PrayerResult{}, apperr.Validation("prayer content is required")
	}
	if len([]rune(content)) > maxPrayerLen {
		return PrayerResult{}, apperr.Validation("prayer content is too long")
	}

	p := models.Prayer{UserID: userID, Type: prayerType, Content: content}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return PrayerResult{}, apperr.Persistence("log prayer", err)
	}
	res := PrayerResult{Prayer: p}
	res.PointsEarned = points.Give(ctx, s.ledger, userID, points.ReasonPrayerLogged)
	s.bump(ctx, userID, ChallengePrayersLogged, 1)

	check, err := s.Check(ctx, userID, loc)
	if err != nil {
		return res, err
	}
	res.NewMilestones = check.NewMilestones
	return res, nil
}

// ListPrayers returns the user's journal, newest first. answered filters when non-nil.
func (s *Service) ListPrayers(ctx context.Context, userID uint, answered *bool) ([]models.Prayer, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if answered != nil {
		q = q.Where("answered = ?", *answered)
	}
	var rows []models.Prayer
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, apperr.Persistence("list prayers", err)
	}
	return rows, nil
}

// SetAnswered marks a prayer answered or reverts it. Answer points are earned
// once per prayer no matter how often it is toggled.
func (s *Service) SetAnswered(ctx context.Context, userID, prayerID uint, answered bool, note string, loc *time.Location) (PrayerResult, error) {
	if userID == 0 {
		return PrayerResult{}, apperr.ErrNotAuthenticated
	}
	p, err := s.ownPrayer(ctx, userID, prayerID)
	if err != nil {
		return PrayerResult{}, err
	}
	if p.Answered == answered {
		return PrayerResult{Prayer: p}, apperr.AlreadyDone("prayer %d already in that state", prayerID)
	}

	patch := map[string]interface{}{"answered": answered}
	if answered {
		now := s.now()
		patch["answered_date"] = now
		patch["answered_note"] = strings.TrimSpace(utils.SanitizePlain(note))
	} else {
		patch["answered_date"] = nil
		patch["answered_note"] = ""
	}
	if err := s.db.WithContext(ctx).Model(&models.Prayer{}).Where("id = ?", p.ID).Updates(patch).Error; err != nil {
		return PrayerResult{}, apperr.Persistence("update prayer", err)
	}
	if err := s.db.WithContext(ctx).First(&p, p.ID).Error; err != nil {
		return PrayerResult{}, apperr.Persistence("reload prayer", err)
	}

	res := PrayerResult{Prayer: p}
	if answered {
		res.PointsEarned = points.GiveOnce(ctx, s.ledger, userID, points.Values[points.ReasonPrayerAnswered],
			points.ReasonPrayerAnswered, points.Reference{Type: "prayer", ID: p.ID})
		check, err := s.Check(ctx, userID, loc)
		if err != nil {
			return res, err
		}
		res.NewMilestones = check.NewMilestones
	}
	return res, nil
}

// DeletePrayer removes one of the user's journal entries.
func (s *Service) DeletePrayer(ctx context.Context, userID, prayerID uint) error {
	if userID == 0 {
		return apperr.ErrNotAuthenticated
	}
	p, err := s.ownPrayer(ctx, userID, prayerID)
	if err != nil {
		return err
	}
	return apperr.Persistence("delete prayer", s.db.WithContext(ctx).Delete(&p).Error)
}

func (s *Service) ownPrayer(ctx context.Context, userID, prayerID uint) (models.Prayer, error) {
	var p models.Prayer
	err := s.db.WithContext(ctx).First(&p, prayerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, apperr.NotFound("prayer")
	}
	if err != nil {
		return p, apperr.Persistence("load prayer", err)
	}
	if p.UserID != userID {
		return p, apperr.Forbidden("prayer belongs to another user")
	}
	return p, nil
}
