package points

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/spiritfit/apperr"
	"github.com/cppla/spiritfit/models"
	"github.com/cppla/spiritfit/utils"
)

// Reference ties an award to the row that earned it.
type Reference struct {
	Type string
	ID   uint
}

// Ledger awards points and returns the user's new total.
type Ledger interface {
	Award(ctx context.Context, userID uint, points int, reason string) (int, error)
	// AwardOnce is a no-op reporting apperr.ErrAlreadyDone when the same
	// reason was already awarded for ref.
	AwardOnce(ctx context.Context, userID uint, points int, reason string, ref Reference) (int, error)
}

// GormLedger appends PointTransaction rows and increments users.points in the same transaction.
type GormLedger struct {
	db *gorm.DB
}

// NewLedger creates a ledger over db.
func NewLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

// Award implements Ledger.
func (l *GormLedger) Award(ctx context.Context, userID uint, points int, reason string) (int, error) {
	return l.award(ctx, userID, points, reason, nil)
}

// AwardOnce implements Ledger.
func (l *GormLedger) AwardOnce(ctx context.Context, userID uint, points int, reason string, ref Reference) (int, error) {
	return l.award(ctx, userID, points, reason, &ref)
}

func (l *GormLedger) award(ctx context.Context, userID uint, points int, reason string, ref *Reference) (int, error) {
	if userID == 0 {
		return 0, apperr.ErrNotAuthenticated
	}
	if points <= 0 {
		return 0, apperr.Validation("points must be positive, got %d", points)
	}
	if reason == "" {
		return 0, apperr.Validation("reason is required")
	}

	var total int
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.PointTransaction{UserID: userID, Points: points, Reason: reason}
		if ref != nil {
			typ, id := ref.Type, ref.ID
			row.ReferenceType = &typ
			row.ReferenceID = &id
		}
		ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if ins.Error != nil {
			return ins.Error
		}
		if ins.RowsAffected == 0 {
			if ref == nil {
				return errors.New("point transaction not inserted")
			}
			return apperr.AlreadyDone("%s already awarded for %s %d", reason, ref.Type, ref.ID)
		}
		res := tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumn("points", gorm.Expr("points + ?", points))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("user")
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).Select("points").Scan(&total).Error
	})
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return 0, err
		}
		return 0, apperr.Persistence("award points", err)
	}
	return total, nil
}

// Total returns the running total for a user.
func (l *GormLedger) Total(ctx context.Context, userID uint) (int, error) {
	var user models.User
	if err := l.db.WithContext(ctx).Select("id", "points").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.NotFound("user")
		}
		return 0, apperr.Persistence("load points", err)
	}
	return user.Points, nil
}

// Recent lists the newest ledger entries for a user.
func (l *GormLedger) Recent(ctx context.Context, userID uint, limit int) ([]models.PointTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []models.PointTransaction
	if err := l.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, apperr.Persistence("list point transactions", err)
	}
	return rows, nil
}

// Give awards Values[reason] without blocking the caller on failure.
func Give(ctx context.Context, l Ledger, userID uint, reason string) int {
	return GiveN(ctx, l, userID, Values[reason], reason)
}

// GiveN awards n points, logging instead of returning failures. It returns the points awarded.
func GiveN(ctx context.Context, l Ledger, userID uint, n int, reason string) int {
	if l == nil || n <= 0 {
		return 0
	}
	if _, err := l.Award(ctx, userID, n, reason); err != nil {
		utils.Sugar.Warnw("points award failed", "user_id", userID, "points", n, "reason", reason, "err", err)
		return 0
	}
	return n
}

// GiveOnce is GiveN for once-per-reference awards. Repeats are silently skipped.
func GiveOnce(ctx context.Context, l Ledger, userID uint, n int, reason string, ref Reference) int {
	if l == nil || n <= 0 {
		return 0
	}
	if _, err := l.AwardOnce(ctx, userID, n, reason, ref); err != nil {
		if !errors.Is(err, apperr.ErrAlreadyDone) {
			utils.Sugar.Warnw("points award failed", "user_id", userID, "points", n, "reason", reason, "ref", ref, "err", err)
		}
		return 0
	}
	return n
}
