package feed

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/cppla/spiritfit/apperr"
	"github.com/cppla/spiritfit/models"
	"github.com/cppla/spiritfit/progress"
	"github.com/cppla/spiritfit/utils"
)

// Filter selects which posts a page draws from.
type Filter string

const (
	FilterAll            Filter = "all"
	FilterPrayerRequests Filter = "prayer_requests"
	FilterTestimonies    Filter = "testimonies"
	FilterQuestions      Filter = "questions"
	FilterPolls          Filter = "polls"
	FilterMusic          Filter = "music"
	FilterFollowing      Filter = "following"
	FilterMyPosts        Filter = "my_posts"
	FilterSquad          Filter = "squad"
	FilterFriends        Filter = "friends"
)

// Sort orders a page.
type Sort string

const (
	SortRecent     Sort = "recent"
	SortTop        Sort = "top"
	SortTrending   Sort = "trending"
	SortUnanswered Sort = "unanswered"
)

var typeFilters = map[Filter]string{
	FilterTestimonies: models.PostTestimony,
	FilterQuestions:   models.PostQuestion,
	FilterPolls:       models.PostPoll,
	FilterMusic:       models.PostMusic,
}

const (
	maxPageSize    = 50
	trendingWindow = 24 * time.Hour
)

// Query is one feed page request. Page is 1-based.
type Query struct {
	Filter   Filter `form:"filter"`
	Sort     Sort   `form:"sort"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	SquadID  uint   `form:"squad_id"`
}

func (q *Query) normalize(defaultSize int) error {
	if q.Filter == "" {
		q.Filter = FilterAll
	}
	if q.Sort == "" {
		q.Sort = SortRecent
	}
	switch q.Filter {
	case FilterAll, FilterPrayerRequests, FilterTestimonies, FilterQuestions, FilterPolls,
		FilterMusic, FilterFollowing, FilterMyPosts, FilterSquad, FilterFriends:
	default:
		return apperr.Validation("unknown filter %q", q.Filter)
	}
	switch q.Sort {
	case SortRecent, SortTop, SortTrending, SortUnanswered:
	default:
		return apperr.Validation("unknown sort %q", q.Sort)
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = defaultSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	return nil
}

// Page is a slice of the feed. HasMore drives "load more".
type Page struct {
	Posts    []Post `json:"posts"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	HasMore  bool   `json:"has_more"`
}

// viewer is the id sets visibility and the social filters depend on.
type viewer struct {
	id        uint
	following []uint
	friends   []uint
	squads    []uint
}

func (s *Service) resolveViewer(ctx context.Context, viewerID uint, withFollowing bool) (viewer, error) {
	v := viewer{id: viewerID}
	if viewerID == 0 {
		return v, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		v.friends, err = s.graph.FriendIDs(gctx, viewerID)
		return err
	})
	g.Go(func() (err error) {
		v.squads, err = s.graph.SquadIDs(gctx, viewerID)
		return err
	})
	if withFollowing {
		g.Go(func() (err error) {
			v.following, err = s.graph.FollowingIDs(gctx, viewerID)
			return err
		})
	}
	return v, g.Wait()
}

// scope restricts posts to what v may see: public posts, v's own posts,
// friends-only posts from mutual follows and squad posts from v's squads.
func (v viewer) scope(db *gorm.DB) *gorm.DB {
	cond := db.Where("visibility = ?", models.VisibilityPublic)
	if v.id != 0 {
		cond = cond.Or("user_id = ?", v.id)
	}
	if len(v.friends) > 0 {
		cond = cond.Or("visibility = ? AND user_id IN ?", models.VisibilityFriends, v.friends)
	}
	if len(v.squads) > 0 {
		cond = cond.Or("visibility = ? AND squad_id IN ?", models.VisibilitySquad, v.squads)
	}
	return cond
}

func (v viewer) canSee(p models.CommunityPost) bool {
	switch {
	case p.Visibility == models.VisibilityPublic, p.UserID == v.id && v.id != 0:
		return true
	case p.Visibility == models.VisibilityFriends:
		return containsID(v.friends, p.UserID)
	case p.Visibility == models.VisibilitySquad:
		return p.SquadID != nil && containsID(v.squads, *p.SquadID)
	}
	return false
}

func containsID(ids []uint, id uint) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// List returns one page of the feed for viewerID (0 for anonymous viewers).
func (s *Service) List(ctx context.Context, viewerID uint, q Query) (Page, error) {
	if err := q.normalize(s.pageSize); err != nil {
		return Page{}, err
	}
	empty := Page{Posts: []Post{}, Page: q.Page, PageSize: q.PageSize}

	switch q.Filter {
	case FilterFollowing, FilterMyPosts, FilterSquad, FilterFriends:
		if viewerID == 0 {
			return Page{}, apperr.ErrNotAuthenticated
		}
	}

	v, err := s.resolveViewer(ctx, viewerID, q.Filter == FilterFollowing)
	if err != nil {
		return Page{}, err
	}

	var rows []models.CommunityPost
	cacheKey := ""
	if viewerID == 0 {
		cacheKey = fmt.Sprintf("%sanon:f=%s:s=%s:p=%d:n=%d", cachePrefix, q.Filter, q.Sort, q.Page, q.PageSize)
	}
	if cacheKey == "" || !utils.CacheGetJSON(ctx, cacheKey, &rows) {
		tx := s.db.WithContext(ctx).Model(&models.CommunityPost{}).Where(v.scope(s.db))
		tx, ok, err := s.applyFilter(ctx, tx, v, q)
		if err != nil {
			return Page{}, err
		}
		if !ok {
			return empty, nil
		}
		tx = s.applySort(tx, q.Sort)
		offset := (q.Page - 1) * q.PageSize
		if err := tx.Offset(offset).Limit(q.PageSize + 1).Find(&rows).Error; err != nil {
			return Page{}, apperr.Persistence("list posts", err)
		}
		if cacheKey != "" {
			utils.CacheSetJSON(ctx, cacheKey, rows, s.cacheTTL)
		}
	}

	page := empty
	if len(rows) > q.PageSize {
		page.HasMore = true
		rows = rows[:q.PageSize]
	}
	posts, err := s.hydrate(ctx, viewerID, rows)
	if err != nil {
		return Page{}, err
	}
	page.Posts = posts
	return page, nil
}

// applyFilter narrows tx. ok is false when the filter cannot match anything,
// in which case no query should run.
func (s *Service) applyFilter(ctx context.Context, tx *gorm.DB, v viewer, q Query) (*gorm.DB, bool, error) {
	switch q.Filter {
	case FilterAll:
	case FilterPrayerRequests:
		tx = tx.Where(s.db.Where("post_type = ?", models.PostPrayerRequest).Or("is_prayer_request = ?", true))
	case FilterTestimonies, FilterQuestions, FilterPolls, FilterMusic:
		tx = tx.Where("post_type = ?", typeFilters[q.Filter])
	case FilterFollowing:
		if len(v.following) == 0 {
			return tx, false, nil
		}
		tx = tx.Where("user_id IN ?", v.following)
	case FilterMyPosts:
		tx = tx.Where("user_id = ?", v.id)
	case FilterFriends:
		if len(v.friends) == 0 {
			return tx, false, nil
		}
		tx = tx.Where("user_id IN ?", v.friends)
	case FilterSquad:
		if q.SquadID != 0 {
			if !containsID(v.squads, q.SquadID) {
				return tx, false, apperr.Forbidden("not a member of squad %d", q.SquadID)
			}
			tx = tx.Where("squad_id = ?", q.SquadID)
			break
		}
		if len(v.squads) == 0 {
			return tx, false, nil
		}
		tx = tx.Where("squad_id IN ?", v.squads)
	}
	return tx, true, nil
}

func (s *Service) applySort(tx *gorm.DB, sort Sort) *gorm.DB {
	switch sort {
	case SortTop:
		return tx.Order("engagement_score DESC").Order("created_at DESC").Order("id DESC")
	case SortTrending:
		return tx.Where("created_at >= ?", s.now().Add(-trendingWindow)).
			Order("engagement_score DESC").Order("created_at DESC").Order("id DESC")
	case SortUnanswered:
		return tx.Where(s.db.Where("post_type = ?", models.PostPrayerRequest).Or("is_prayer_request = ?", true)).
			Where("is_answered = ?", false).
			Order("prayer_count ASC").Order("created_at DESC").Order("id DESC")
	default:
		return tx.Order("created_at DESC").Order("id DESC")
	}
}

// Author is the post author's public card.
type Author struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Level     int    `json:"level"`
	Streak    int    `json:"streak"`
}

// Post is a feed entry with the viewer's own interaction state merged in.
type Post struct {
	models.CommunityPost
	Author         Author         `json:"author"`
	ReactionCounts map[string]int `json:"reaction_counts"`
	UserReaction   string         `json:"user_reaction,omitempty"`
	HasPrayed      bool           `json:"has_prayed"`
	UserPollVote   *int           `json:"user_poll_vote,omitempty"`
	Poll           *PollData      `json:"poll,omitempty"`
}

type reactionCount struct {
	PostID       uint
	ReactionType string
	N            int
}

// hydrate merges authors and the viewer's interactions into rows. The lookups
// run concurrently; any failure fails the whole page.
func (s *Service) hydrate(ctx context.Context, viewerID uint, rows []models.CommunityPost) ([]Post, error) {
	out := make([]Post, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	postIDs := make([]uint, 0, len(rows))
	authorIDs := make([]uint, 0, len(rows))
	for _, r := range rows {
		postIDs = append(postIDs, r.ID)
		authorIDs = append(authorIDs, r.UserID)
	}
	authorIDs = utils.UniqueUint(authorIDs)

	var (
		users        []models.User
		progressRows []models.UserProgress
		mine         []models.PostReaction
		counts       []reactionCount
		prayed       []uint
		pollVotes    []models.PollVote
	)
	g, gctx := errgroup.WithContext(ctx)
	db := func() *gorm.DB { return s.db.WithContext(gctx) }

	g.Go(func() error {
		return db().Select("id", "username", "display_name", "avatar_url", "points").
			Where("id IN ?", authorIDs).Find(&users).Error
	})
	g.Go(func() error {
		return db().Where("user_id IN ?", authorIDs).Find(&progressRows).Error
	})
	g.Go(func() error {
		return db().Model(&models.PostReaction{}).
			Select("post_id, reaction_type, COUNT(*) AS n").
			Where("post_id IN ?", postIDs).
			Group("post_id, reaction_type").Scan(&counts).Error
	})
	if viewerID != 0 {
		g.Go(func() error {
			return db().Where("user_id = ? AND post_id IN ?", viewerID, postIDs).Find(&mine).Error
		})
		g.Go(func() error {
			return db().Model(&models.PostPrayer{}).
				Where("user_id = ? AND post_id IN ?", viewerID, postIDs).Pluck("post_id", &prayed).Error
		})
		g.Go(func() error {
			return db().Where("user_id = ? AND post_id IN ?", viewerID, postIDs).Find(&pollVotes).Error
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperr.Persistence("load feed details", err)
	}

	userByID := make(map[uint]models.User, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}
	today := progress.Day(s.now(), progress.LocationFrom(ctx))
	streakByID := make(map[uint]int, len(progressRows))
	for _, p := range progressRows {
		streakByID[p.UserID] = progress.ActiveStreak(p, today)
	}
	countsByPost := make(map[uint]map[string]int, len(rows))
	for _, c := range counts {
		if !models.ValidReaction(c.ReactionType) {
			continue
		}
		if countsByPost[c.PostID] == nil {
			countsByPost[c.PostID] = map[string]int{}
		}
		countsByPost[c.PostID][c.ReactionType] += c.N
	}
	mineByPost := make(map[uint]string, len(mine))
	for _, r := range mine {
		mineByPost[r.PostID] = r.ReactionType
	}
	prayedSet := make(map[uint]bool, len(prayed))
	for _, id := range prayed {
		prayedSet[id] = true
	}
	voteByPost := make(map[uint]int, len(pollVotes))
	for _, v := range pollVotes {
		voteByPost[v.PostID] = v.OptionIndex
	}

	for _, r := range rows {
		p := Post{CommunityPost: r, ReactionCounts: emptyCounts()}
		for k, n := range countsByPost[r.ID] {
			p.ReactionCounts[k] = n
		}
		p.Author = Author{ID: r.UserID, Name: "deleted user", Level: 1}
		if u, ok := userByID[r.UserID]; ok {
			p.Author = Author{ID: u.ID, Name: u.Name(), AvatarURL: u.AvatarURL, Level: models.Level(u.Points), Streak: streakByID[u.ID]}
		}
		p.UserReaction = mineByPost[r.ID]
		p.HasPrayed = prayedSet[r.ID]
		if idx, ok := voteByPost[r.ID]; ok {
			idx := idx
			p.UserPollVote = &idx
		}
		if pd, ok := decodePoll(r); ok {
			p.Poll = &pd
		}
		out = append(out, p)
	}
	return out, nil
}

func emptyCounts() map[string]int {
	m := make(map[string]int, len(models.ReactionTypes))
	for _, t := range models.ReactionTypes {
		m[t] = 0
	}
	return m
}
