// Package feed serves the community feed: posting, filtered and ranked pages,
// and the reaction, prayer, poll and comment interactions on posts.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cppla/spiritfit/apperr"
	"github.com/cppla/spiritfit/models"
	"github.com/cppla/spiritfit/points"
	"github.com/cppla/spiritfit/realtime"
	"github.com/cppla/spiritfit/social"
	"github.com/cppla/spiritfit/utils"
)

// Table is the realtime table name for posts.
const Table = "community_posts"

const cachePrefix = "cache:feed:"

// Options tune a Service. Zero values pick defaults.
type Options struct {
	PageSize  int
	CacheTTL  time.Duration
	Publisher realtime.Publisher
	Now       func() time.Time
}

// Service implements the feed on top of gorm.
type Service struct {
	db       *gorm.DB
	ledger   points.Ledger
	graph    *social.Graph
	pub      realtime.Publisher
	pageSize int
	cacheTTL time.Duration
	now      func() time.Time
}

// NewService builds a feed Service.
func NewService(db *gorm.DB, ledger points.Ledger, graph *social.Graph, opts Options) *Service {
	s := &Service{
		db:       db,
		ledger:   ledger,
		graph:    graph,
		pub:      opts.Publisher,
		pageSize: opts.PageSize,
		cacheTTL: opts.CacheTTL,
		now:      opts.Now,
	}
	if s.pageSize <= 0 {
		s.pageSize = 20
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = 30 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateInput is a new post. Content is decoded according to PostType.
type CreateInput struct {
	PostType        string          `json:"post_type"`
	Content         json.RawMessage `json:"content"`
	Visibility      string          `json:"visibility"`
	SquadID         *uint           `json:"squad_id"`
	IsPrayerRequest bool            `json:"is_prayer_request"`
}

// Created is a new post and the points it earned.
type Created struct {
	Post         Post `json:"post"`
	PointsEarned int  `json:"points_earned"`
}

// Create publishes a post for userID.
func (s *Service) Create(ctx context.Context, userID uint, in CreateInput) (Created, error) {
	if userID == 0 {
		return Created{}, apperr.ErrNotAuthenticated
	}
	content, err := DecodeContent(in.PostType, in.Content)
	if err != nil {
		return Created{}, err
	}

	post := models.CommunityPost{
		UserID:          userID,
		PostType:        in.PostType,
		Visibility:      in.Visibility,
		IsPrayerRequest: in.IsPrayerRequest || in.PostType == models.PostPrayerRequest,
	}
	switch post.Visibility {
	case "":
		post.Visibility = models.VisibilityPublic
	case models.VisibilityPublic, models.VisibilityFriends:
	case models.VisibilitySquad:
		if in.SquadID == nil {
			return Created{}, apperr.Validation("squad_id is required for squad posts")
		}
		ok, err := s.graph.IsMember(ctx, userID, *in.SquadID)
		if err != nil {
			return Created{}, err
		}
		if !ok {
			return Created{}, apperr.Forbidden("not a member of squad %d", *in.SquadID)
		}
		post.SquadID = in.SquadID
	default:
		return Created{}, apperr.Validation("unknown visibility %q", in.Visibility)
	}

	switch c := content.(type) {
	case *PrayerRequestContent:
		post.PrayerUrgency = c.Urgency
	case *PollContent:
		pd, err := json.Marshal(c.pollData(s.now()))
		if err != nil {
			return Created{}, apperr.Validation("invalid poll")
		}
		post.PollData = datatypes.JSON(pd)
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return Created{}, apperr.Validation("invalid content")
	}
	post.ContentData = datatypes.JSON(raw)

	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return Created{}, apperr.Persistence("create post", err)
	}
	earned := points.GiveN(ctx, s.ledger, userID, points.ForPost(post.PostType), points.ReasonPostCreated)

	utils.InvalidateByPrefix(ctx, cachePrefix)
	s.publish(ctx, realtime.EventInsert, post)

	hydrated, err := s.hydrate(ctx, userID, []models.CommunityPost{post})
	if err != nil {
		return Created{}, err
	}
	return Created{Post: hydrated[0], PointsEarned: earned}, nil
}

// Get loads one post as viewerID sees it.
func (s *Service) Get(ctx context.Context, viewerID, postID uint) (Post, error) {
	post, err := s.visiblePost(ctx, viewerID, postID)
	if err != nil {
		return Post{}, err
	}
	out, err := s.hydrate(ctx, viewerID, []models.CommunityPost{post})
	if err != nil {
		return Post{}, err
	}
	return out[0], nil
}

// Delete removes a post and everything hanging off it. Only the author may delete.
func (s *Service) Delete(ctx context.Context, userID, postID uint) error {
	if userID == 0 {
		return apperr.ErrNotAuthenticated
	}
	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return apperr.Forbidden("only the author can delete a post")
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{&models.PostReaction{}, &models.PostPrayer{}, &models.PollVote{}, &models.Comment{}} {
			if err := tx.Where("post_id = ?", postID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.CommunityPost{}, postID).Error
	})
	if err != nil {
		return apperr.Persistence("delete post", err)
	}
	utils.InvalidateByPrefix(ctx, cachePrefix)
	s.publish(ctx, realtime.EventDelete, post)
	return nil
}

// MarkAnswered closes the author's prayer request with an optional testimony.
func (s *Service) MarkAnswered(ctx context.Context, userID, postID uint, testimony string) (Post, error) {
	if userID == 0 {
		return Post{}, apperr.ErrNotAuthenticated
	}
	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return Post{}, err
	}
	if post.UserID != userID {
		return Post{}, apperr.Forbidden("only the author can mark a prayer answered")
	}
	if !isPrayerPost(post) {
		return Post{}, apperr.Validation("post is not a prayer request")
	}
	if post.IsAnswered {
		return Post{}, apperr.AlreadyDone("prayer already marked answered")
	}
	now := s.now()
	patch := map[string]interface{}{
		"is_answered":        true,
		"answered_at":        now,
		"answered_testimony": utils.Sanitize(testimony),
	}
	if err := s.db.WithContext(ctx).Model(&models.CommunityPost{}).Where("id = ?", postID).Updates(patch).Error; err != nil {
		return Post{}, apperr.Persistence("mark answered", err)
	}
	utils.InvalidateByPrefix(ctx, cachePrefix)
	return s.Get(ctx, userID, postID)
}

// Visible returns a realtime filter admitting only events viewerID may see.
// The viewer's friends and squads are resolved once, at subscription time.
func (s *Service) Visible(ctx context.Context, viewerID uint) (func(realtime.Event) bool, error) {
	v, err := s.resolveViewer(ctx, viewerID, false)
	if err != nil {
		return nil, err
	}
	return func(ev realtime.Event) bool {
		if ev.Type == realtime.EventDelete {
			return true
		}
		p := models.CommunityPost{UserID: ev.UserID, Visibility: ev.Scope}
		if ev.ScopeID != 0 {
			id := ev.ScopeID
			p.SquadID = &id
		}
		return v.canSee(p)
	}, nil
}

func (s *Service) publish(ctx context.Context, typ string, post models.CommunityPost) {
	if s.pub == nil {
		return
	}
	ev := realtime.Event{Table: Table, Type: typ, ID: post.ID, UserID: post.UserID, Scope: post.Visibility}
	if post.SquadID != nil {
		ev.ScopeID = *post.SquadID
	}
	if typ != realtime.EventDelete {
		ev.Data = post
	}
	if err := s.pub.Publish(ctx, ev); err != nil {
		utils.Sugar.Warnw("realtime publish failed", "post_id", post.ID, "type", typ, "err", err)
	}
}

func (s *Service) loadPost(ctx context.Context, postID uint) (models.CommunityPost, error) {
	var post models.CommunityPost
	err := s.db.WithContext(ctx).First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return post, apperr.NotFound("post")
	}
	if err != nil {
		return post, apperr.Persistence("load post", err)
	}
	return post, nil
}

// visiblePost loads a post and hides it as not found when viewerID may not see it.
func (s *Service) visiblePost(ctx context.Context, viewerID, postID uint) (models.CommunityPost, error) {
	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return post, err
	}
	if post.Visibility == models.VisibilityPublic || (viewerID != 0 && post.UserID == viewerID) {
		return post, nil
	}
	v, err := s.resolveViewer(ctx, viewerID, false)
	if err != nil {
		return post, err
	}
	if !v.canSee(post) {
		return post, apperr.NotFound("post")
	}
	return post, nil
}

func isPrayerPost(p models.CommunityPost) bool {
	return p.PostType == models.PostPrayerRequest || p.IsPrayerRequest
}

func decodePoll(p models.CommunityPost) (PollData, bool) {
	var pd PollData
	if p.PostType != models.PostPoll || len(p.PollData) == 0 {
		return pd, false
	}
	if err := json.Unmarshal(p.PollData, &pd); err != nil {
		return pd, false
	}
	return pd, true
}
