package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/spiritfit/apperr"
	"github.com/cppla/spiritfit/models"
	"github.com/cppla/spiritfit/points"
	"github.com/cppla/spiritfit/utils"
)

const refPost = "post"

// ToggleReaction applies pressing reaction pressed to a post whose counts are
// counts and on which the viewer currently has current ("" for none). It
// returns fresh counts and the viewer's new reaction. counts is not modified.
//
// Pressing the current reaction removes it; pressing another swaps it.
// Counts never go below zero.
func ToggleReaction(counts map[string]int, current, pressed string) (map[string]int, string) {
	next := make(map[string]int, len(counts)+1)
	for k, v := range counts {
		next[k] = v
	}
	dec := func(k string) {
		if next[k] > 0 {
			next[k]--
		}
	}
	switch current {
	case pressed:
		dec(pressed)
		return next, ""
	case "":
		next[pressed]++
	default:
		dec(current)
		next[pressed]++
	}
	return next, pressed
}

// ReactionState is a post's reaction tally as the viewer sees it.
type ReactionState struct {
	PostID         uint           `json:"post_id"`
	ReactionCounts map[string]int `json:"reaction_counts"`
	UserReaction   string         `json:"user_reaction"`
	PointsEarned   int            `json:"points_earned"`
}

// React toggles the viewer's reaction on a post. The first reaction a user
// ever leaves on a post earns points; removing and re-adding does not.
func (s *Service) React(ctx context.Context, userID, postID uint, reaction string) (ReactionState, error) {
	if userID == 0 {
		return ReactionState{}, apperr.ErrNotAuthenticated
	}
	if !models.ValidReaction(reaction) {
		return ReactionState{}, apperr.Validation("unknown reaction %q", reaction)
	}
	if _, err := s.visiblePost(ctx, userID, postID); err != nil {
		return ReactionState{}, err
	}

	var (
		current string
		counts  map[string]int
		mine    string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.PostReaction
		err := tx.Where("post_id = ? AND user_id = ?", postID, userID).First(&existing).Error
		switch {
		case err == nil:
			current = existing.ReactionType
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}
		before, err := reactionCounts(tx, postID)
		if err != nil {
			return err
		}
		counts, mine = ToggleReaction(before, current, reaction)

		switch {
		case current == "":
			if err := tx.Create(&models.PostReaction{PostID: postID, UserID: userID, ReactionType: reaction}).Error; err != nil {
				return err
			}
			return bumpCounter(tx, postID, "engagement_score", 1)
		case mine == "":
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			return bumpCounter(tx, postID, "engagement_score", -1)
		default:
			return tx.Model(&existing).Update("reaction_type", reaction).Error
		}
	})
	if err != nil {
		return ReactionState{}, apperr.Persistence("react", err)
	}
	utils.InvalidateByPrefix(ctx, cachePrefix)

	st := ReactionState{PostID: postID, ReactionCounts: counts, UserReaction: mine}
	if current == "" {
		st.PointsEarned = points.GiveOnce(ctx, s.ledger, userID, points.Values[points.ReasonReactionGiven],
			points.ReasonReactionGiven, points.Reference{Type: refPost, ID: postID})
	}
	return st, nil
}

func reactionCounts(tx *gorm.DB, postID uint) (map[string]int, error) {
	var rows []reactionCount
	if err := tx.Model(&models.PostReaction{}).
		Select("post_id, reaction_type, COUNT(*) AS n").
		Where("post_id = ?", postID).
		Group("post_id, reaction_type").Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := emptyCounts()
	for _, r := range rows {
		if models.ValidReaction(r.ReactionType) {
			counts[r.ReactionType] = r.N
		}
	}
	return counts, nil
}

// bumpCounter adds delta to an integer column of a post, clamping at zero.
func bumpCounter(tx *gorm.DB, postID uint, column string, delta int) error {
	expr := gorm.Expr(fmt.Sprintf("%s + ?", column), delta)
	if delta < 0 {
		expr = gorm.Expr(fmt.Sprintf("CASE WHEN %[1]s + ? > 0 THEN %[1]s + ? ELSE 0 END", column), delta, delta)
	}
	return tx.Model(&models.CommunityPost{}).Where("id = ?", postID).UpdateColumn(column, expr).Error
}

// PrayerState is the result of a prayer toggle.
type PrayerState struct {
	PostID       uint `json:"post_id"`
	HasPrayed    bool `json:"has_prayed"`
	PrayerCount  int  `json:"prayer_count"`
	PointsEarned int  `json:"points_earned"`
}

// TogglePrayer records or withdraws the viewer's prayer for a prayer request.
// Praying notifies the author unless the author is praying for their own post.
func (s *Service) TogglePrayer(ctx context.Context, userID, postID uint) (PrayerState, error) {
	if userID == 0 {
		return PrayerState{}, apperr.ErrNotAuthenticated
	}
	post, err := s.visiblePost(ctx, userID, postID)
	if err != nil {
		return PrayerState{}, err
	}
	if !isPrayerPost(post) {
		return PrayerState{}, apperr.Validation("post is not a prayer request")
	}

	st := PrayerState{PostID: postID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostPrayer{})
		if res.Error != nil {
			return res.Error
		}
		delta := -1
		if res.RowsAffected == 0 {
			if err := tx.Create(&models.PostPrayer{PostID: postID, UserID: userID}).Error; err != nil {
				return err
			}
			delta = 1
			st.HasPrayed = true
		}
		if err := bumpCounter(tx, postID, "prayer_count", delta); err != nil {
			return err
		}
		if err := bumpCounter(tx, postID, "engagement_score", delta); err != nil {
			return err
		}
		return tx.Model(&models.CommunityPost{}).Where("id = ?", postID).
			Select("prayer_count").Scan(&st.PrayerCount).Error
	})
	if err != nil {
		return PrayerState{}, apperr.Persistence("toggle prayer", err)
	}
	utils.InvalidateByPrefix(ctx, cachePrefix)

	if st.HasPrayed {
		st.PointsEarned = points.GiveOnce(ctx, s.ledger, userID, points.Values[points.ReasonPrayedForPost],
			points.ReasonPrayedForPost, points.Reference{Type: refPost, ID: postID})
		if post.UserID != userID {
			s.notify(ctx, post.UserID, userID, models.NotificationPrayedForPost, postID, "is praying for your request")
		}
	}
	return st, nil
}

// PollState is a poll after a vote.
type PollState struct {
	PostID       uint     `json:"post_id"`
	Poll         PollData `json:"poll"`
	UserPollVote int      `json:"user_poll_vote"`
	PointsEarned int      `json:"points_earned"`
}

// Vote casts the viewer's single vote on a poll. A second vote reports
// apperr.ErrAlreadyDone and changes nothing.
func (s *Service) Vote(ctx context.Context, userID, postID uint, option int) (PollState, error) {
	if userID == 0 {
		return PollState{}, apperr.ErrNotAuthenticated
	}
	post, err := s.visiblePost(ctx, userID, postID)
	if err != nil {
		return PollState{}, err
	}
	pd, ok := decodePoll(post)
	if !ok {
		return PollState{}, apperr.Validation("post is not a poll")
	}
	if option < 0 || option >= len(pd.Options) {
		return PollState{}, apperr.Validation("option %d out of range", option)
	}
	if pd.Expired(s.now()) {
		return PollState{}, apperr.Validation("poll has closed")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.PollVote{PostID: postID, UserID: userID, OptionIndex: option})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.AlreadyDone("already voted")
		}

		var tallies []struct {
			OptionIndex int
			N           int
		}
		if err := tx.Model(&models.PollVote{}).Select("option_index, COUNT(*) AS n").
			Where("post_id = ?", postID).Group("option_index").Scan(&tallies).Error; err != nil {
			return err
		}
		for i := range pd.Options {
			pd.Options[i].Votes = 0
		}
		for _, t := range tallies {
			if t.OptionIndex >= 0 && t.OptionIndex < len(pd.Options) {
				pd.Options[t.OptionIndex].Votes = t.N
			}
		}
		raw, err := json.Marshal(pd)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.CommunityPost{}).Where("id = ?", postID).
			UpdateColumn("poll_data", datatypes.JSON(raw)).Error; err != nil {
			return err
		}
		return bumpCounter(tx, postID, "engagement_score", 1)
	})
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return PollState{}, err
		}
		return PollState{}, apperr.Persistence("vote", err)
	}
	utils.InvalidateByPrefix(ctx, cachePrefix)

	st := PollState{PostID: postID, Poll: pd, UserPollVote: option}
	st.PointsEarned = points.Give(ctx, s.ledger, userID, points.ReasonPollVoted)
	return st, nil
}

func (s *Service) notify(ctx context.Context, to, actor uint, typ string, postID uint, message string) {
	n := models.Notification{UserID: to, ActorID: actor, Type: typ, PostID: &postID, Message: message}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		utils.Sugar.Warnw("notification failed", "to", to, "type", typ, "post_id", postID, "err", err)
	}
}
