// Package social manages follows and squads, and resolves the id sets the
// feed needs for visibility checks.
package social

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/spiritfit/apperr"
	"github.com/cppla/spiritfit/models"
	"github.com/cppla/spiritfit/utils"
)

const (
	inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	inviteLen      = 8
	maxSquadName   = 64
)

// Graph reads and writes the follow graph and squad membership.
type Graph struct {
	db *gorm.DB
}

// NewGraph creates a Graph over db.
func NewGraph(db *gorm.DB) *Graph {
	return &Graph{db: db}
}

// Follow makes followerID follow followingID. Following twice reports apperr.ErrAlreadyDone.
func (g *Graph) Follow(ctx context.Context, followerID, followingID uint) error {
	if followerID == 0 {
		return apperr.ErrNotAuthenticated
	}
	if followerID == followingID {
		return apperr.Validation("cannot follow yourself")
	}
	var n int64
	if err := g.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", followingID).Count(&n).Error; err != nil {
		return apperr.Persistence("load user", err)
	}
	if n == 0 {
		return apperr.NotFound("user")
	}
	res := g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: followerID, FollowingID: followingID})
	if res.Error != nil {
		return apperr.Persistence("follow", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.AlreadyDone("already following")
	}
	return nil
}

// Unfollow removes the edge. Removing a missing edge reports apperr.ErrAlreadyDone.
func (g *Graph) Unfollow(ctx context.Context, followerID, followingID uint) error {
	if followerID == 0 {
		return apperr.ErrNotAuthenticated
	}
	res := g.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return apperr.Persistence("unfollow", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.AlreadyDone("not following")
	}
	return nil
}

// FollowingIDs lists the users userID follows.
func (g *Graph) FollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := g.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).Pluck("following_id", &ids).Error
	return ids, apperr.Persistence("list following", err)
}

// FollowerIDs lists the users following userID.
func (g *Graph) FollowerIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := g.db.WithContext(ctx).Model(&models.Follow{}).
		Where("following_id = ?", userID).Pluck("follower_id", &ids).Error
	return ids, apperr.Persistence("list followers", err)
}

// FriendIDs lists mutual follows.
func (g *Graph) FriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := g.db.WithContext(ctx).Table("follows AS a").
		Joins("JOIN follows AS b ON b.follower_id = a.following_id AND b.following_id = a.follower_id").
		Where("a.follower_id = ?", userID).
		Pluck("a.following_id", &ids).Error
	return ids, apperr.Persistence("list friends", err)
}

// Profile is the public card for a user.
type Profile struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Level     int    `json:"level"`
}

// Profiles loads public cards for ids, preserving order.
func (g *Graph) Profiles(ctx context.Context, ids []uint) ([]Profile, error) {
	ids = utils.UniqueUint(ids)
	if len(ids) == 0 {
		return []Profile{}, nil
	}
	var users []models.User
	if err := g.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, apperr.Persistence("load users", err)
	}
	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]Profile, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, Profile{ID: u.ID, Username: u.Username, Name: u.Name(), AvatarURL: u.AvatarURL, Level: models.Level(u.Points)})
		}
	}
	return out, nil
}

// CreateSquad creates a squad owned by ownerID and adds the owner as a member.
func (g *Graph) CreateSquad(ctx context.Context, ownerID uint, name, description string) (models.Squad, error) {
	if ownerID == 0 {
		return models.Squad{}, apperr.ErrNotAuthenticated
	}
	name = utils.SanitizePlain(name)
	if name == "" || len([]rune(name)) > maxSquadName {
		return models.Squad{}, apperr.Validation("squad name must be 1-%d characters", maxSquadName)
	}
	code, err := inviteCode()
	if err != nil {
		return models.Squad{}, apperr.Persistence("generate invite code", err)
	}
	sq := models.Squad{Name: name, Description: utils.SanitizePlain(description), OwnerID: ownerID, InviteCode: code}
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sq).Error; err != nil {
			return err
		}
		return tx.Create(&models.SquadMember{SquadID: sq.ID, UserID: ownerID, Role: models.SquadRoleOwner, JoinedAt: time.Now()}).Error
	})
	if err != nil {
		return models.Squad{}, apperr.Persistence("create squad", err)
	}
	return sq, nil
}

// JoinSquad adds userID to the squad with the given invite code.
func (g *Graph) JoinSquad(ctx context.Context, userID uint, code string) (models.Squad, error) {
	if userID == 0 {
		return models.Squad{}, apperr.ErrNotAuthenticated
	}
	var sq models.Squad
	err := g.db.WithContext(ctx).Where("invite_code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&sq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sq, apperr.NotFound("squad")
	}
	if err != nil {
		return sq, apperr.Persistence("load squad", err)
	}
	res := g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.SquadMember{SquadID: sq.ID, UserID: userID, Role: models.SquadRoleMember, JoinedAt: time.Now()})
	if res.Error != nil {
		return sq, apperr.Persistence("join squad", res.Error)
	}
	if res.RowsAffected == 0 {
		return sq, apperr.AlreadyDone("already a member")
	}
	return sq, nil
}

// LeaveSquad removes userID from a squad. Owners cannot leave their own squad.
func (g *Graph) LeaveSquad(ctx context.Context, userID, squadID uint) error {
	if userID == 0 {
		return apperr.ErrNotAuthenticated
	}
	var m models.SquadMember
	err := g.db.WithContext(ctx).Where("squad_id = ? AND user_id = ?", squadID, userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("membership")
	}
	if err != nil {
		return apperr.Persistence("load membership", err)
	}
	if m.Role == models.SquadRoleOwner {
		return apperr.Forbidden("owner cannot leave the squad")
	}
	return apperr.Persistence("leave squad", g.db.WithContext(ctx).
		Where("squad_id = ? AND user_id = ?", squadID, userID).Delete(&models.SquadMember{}).Error)
}

// SquadIDs lists the squads userID belongs to.
func (g *Graph) SquadIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := g.db.WithContext(ctx).Model(&models.SquadMember{}).
		Where("user_id = ?", userID).Pluck("squad_id", &ids).Error
	return ids, apperr.Persistence("list squads", err)
}

// IsMember reports whether userID belongs to squadID.
func (g *Graph) IsMember(ctx context.Context, userID, squadID uint) (bool, error) {
	var n int64
	err := g.db.WithContext(ctx).Model(&models.SquadMember{}).
		Where("squad_id = ? AND user_id = ?", squadID, userID).Count(&n).Error
	return n > 0, apperr.Persistence("check membership", err)
}

// Squads lists the squads userID belongs to.
func (g *Graph) Squads(ctx context.Context, userID uint) ([]models.Squad, error) {
	ids, err := g.SquadIDs(ctx, userID)
	if err != nil || len(ids) == 0 {
		return []models.Squad{}, err
	}
	var out []models.Squad
	err = g.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&out).Error
	return out, apperr.Persistence("load squads", err)
}

// Members lists a squad's members. Only members may list them.
func (g *Graph) Members(ctx context.Context, userID, squadID uint) ([]Profile, error) {
	ok, err := g.IsMember(ctx, userID, squadID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("not a squad member")
	}
	var ids []uint
	if err := g.db.WithContext(ctx).Model(&models.SquadMember{}).
		Where("squad_id = ?", squadID).Order("joined_at").Pluck("user_id", &ids).Error; err != nil {
		return nil, apperr.Persistence("list members", err)
	}
	return g.Profiles(ctx, ids)
}

func inviteCode() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(inviteAlphabet)))
	for i := 0; i < inviteLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(inviteAlphabet[n.Int64()])
	}
	return b.String(), nil
}
