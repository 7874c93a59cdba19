package feed

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/spiritfit/apperr"
	"github.com/cppla/spiritfit/models"
	"github.com/cppla/spiritfit/points"
	"github.com/cppla/spiritfit/utils"
)

const maxCommentLen = 2000

// AddComment replies to a post the viewer can see.
func (s *Service) AddComment(ctx context.Context, userID, postID uint, content string) (models.Comment, int, error) {
	if userID == 0 {
		return models.Comment{}, 0, apperr.ErrNotAuthenticated
	}
	content = strings.TrimSpace(content)
	if utils.SanitizePlain(content) == "" {
		return models.Comment{}, 0, apperr.Validation("comment cannot be empty")
	}
	if len([]rune(content)) > maxCommentLen {
		return models.Comment{}, 0, apperr.Validation("comment exceeds %d characters", maxCommentLen)
	}
	post, err := s.visiblePost(ctx, userID, postID)
	if err != nil {
		return models.Comment{}, 0, err
	}

	c := models.Comment{PostID: postID, UserID: userID, Content: utils.SanitizePlain(content)}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User").Create(&c).Error; err != nil {
			return err
		}
		if err := bumpCounter(tx, postID, "comment_count", 1); err != nil {
			return err
		}
		return bumpCounter(tx, postID, "engagement_score", 1)
	})
	if err != nil {
		return models.Comment{}, 0, apperr.Persistence("add comment", err)
	}
	utils.InvalidateByPrefix(ctx, cachePrefix)
	if err := s.db.WithContext(ctx).Preload("User").First(&c, c.ID).Error; err != nil {
		return models.Comment{}, 0, apperr.Persistence("reload comment", err)
	}

	earned := points.Give(ctx, s.ledger, userID, points.ReasonCommentCreated)
	if post.UserID != userID {
		s.notify(ctx, post.UserID, userID, models.NotificationComment, postID, "commented on your post")
	}
	return c, earned, nil
}

// ListComments returns a post's comments oldest first.
func (s *Service) ListComments(ctx context.Context, viewerID, postID uint, page, pageSize int) ([]models.Comment, error) {
	if _, err := s.visiblePost(ctx, viewerID, postID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = s.pageSize
	}
	var out []models.Comment
	err := s.db.WithContext(ctx).Preload("User").Where("post_id = ?", postID).
		Order("created_at ASC").Order("id ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&out).Error
	if err != nil {
		return nil, apperr.Persistence("list comments", err)
	}
	return out, nil
}

// DeleteComment removes a comment. The comment's author and the post's author may delete it.
func (s *Service) DeleteComment(ctx context.Context, userID, commentID uint) error {
	if userID == 0 {
		return apperr.ErrNotAuthenticated
	}
	var c models.Comment
	err := s.db.WithContext(ctx).First(&c, commentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("comment")
	}
	if err != nil {
		return apperr.Persistence("load comment", err)
	}
	if c.UserID != userID {
		post, err := s.loadPost(ctx, c.PostID)
		if err != nil {
			return err
		}
		if post.UserID != userID {
			return apperr.Forbidden("cannot delete another user's comment")
		}
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Comment{}, c.ID).Error; err != nil {
			return err
		}
		if err := bumpCounter(tx, c.PostID, "comment_count", -1); err != nil {
			return err
		}
		return bumpCounter(tx, c.PostID, "engagement_score", -1)
	})
	if err != nil {
		return apperr.Persistence("delete comment", err)
	}
	utils.InvalidateByPrefix(ctx, cachePrefix)
	return nil
}
