package controllers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/cppla/spiritfit/social"
	"github.com/cppla/spiritfit/utils"
)

// SocialController manages follows and squads.
type SocialController struct {
	graph *social.Graph
}

func NewSocialController(graph *social.Graph) *SocialController {
	return &SocialController{graph: graph}
}

// Follow makes the caller follow the user in the path.
func (s *SocialController) Follow(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeSocial)
	if !ok {
		return
	}
	target, ok := paramID(ctx, "id", codeSocial)
	if !ok {
		return
	}
	if err := s.graph.Follow(ctx.Request.Context(), userID, target); err != nil {
		utils.Fail(ctx, codeSocial, err)
		return
	}
	utils.Success(ctx, gin.H{"following": true})
}

func (s *SocialController) Unfollow(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeSocial)
	if !ok {
		return
	}
	target, ok := paramID(ctx, "id", codeSocial)
	if !ok {
		return
	}
	if err := s.graph.Unfollow(ctx.Request.Context(), userID, target); err != nil {
		utils.Fail(ctx, codeSocial, err)
		return
	}
	utils.Success(ctx, gin.H{"following": false})
}

// Following lists who the user in the path follows.
func (s *SocialController) Following(ctx *gin.Context) {
	s.listProfiles(ctx, s.graph.FollowingIDs)
}

// Followers lists who follows the user in the path.
func (s *SocialController) Followers(ctx *gin.Context) {
	s.listProfiles(ctx, s.graph.FollowerIDs)
}

// Friends lists the caller's mutual follows.
func (s *SocialController) Friends(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeSocial)
	if !ok {
		return
	}
	s.writeProfiles(ctx, userID, s.graph.FriendIDs)
}

func (s *SocialController) listProfiles(ctx *gin.Context, ids func(context.Context, uint) ([]uint, error)) {
	userID, ok := paramID(ctx, "id", codeSocial)
	if !ok {
		return
	}
	s.writeProfiles(ctx, userID, ids)
}

func (s *SocialController) writeProfiles(ctx *gin.Context, userID uint, ids func(context.Context, uint) ([]uint, error)) {
	list, err := ids(ctx.Request.Context(), userID)
	if err != nil {
		utils.Fail(ctx, codeSocial, err)
		return
	}
	profiles, err := s.graph.Profiles(ctx.Request.Context(), list)
	if err != nil {
		utils.Fail(ctx, codeSocial, err)
		return
	}
	utils.Success(ctx, gin.H{"users": profiles, "count": len(profiles)})
}

// CreateSquad creates a squad owned by the caller.
func (s *SocialController) CreateSquad(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeSocial)
	if !ok {
		return
	}
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if !bind(ctx, codeSocial, &req) {
		return
	}
	squad, err := s.graph.CreateSquad(ctx.Request.Context(), userID, req.Name, req.Description)
	if err != nil {
		utils.Fail(ctx, codeSocial, err)
		return
	}
	utils.Success(ctx, squad)
}

// JoinSquad joins by invite code.
func (s *SocialController) JoinSquad(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeSocial)
	if !ok {
		return
	}
	var req struct {
		InviteCode string `json:"invite_code" binding:"required"`
	}
	if !bind(ctx, codeSocial, &req) {
		return
	}
	squad, err := s.graph.JoinSquad(ctx.Request.Context(), userID, req.InviteCode)
	if err != nil {
		utils.Fail(ctx, codeSocial, err)
		return
	}
	utils.Success(ctx, squad)
}

func (s *SocialController) LeaveSquad(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeSocial)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id", codeSocial)
	if !ok {
		return
	}
	if err := s.graph.LeaveSquad(ctx.Request.Context(), userID, id); err != nil {
		utils.Fail(ctx, codeSocial, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "left"})
}

// MySquads lists the caller's squads.
func (s *SocialController) MySquads(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeSocial)
	if !ok {
		return
	}
	squads, err := s.graph.Squads(ctx.Request.Context(), userID)
	if err != nil {
		utils.Fail(ctx, codeSocial, err)
		return
	}
	utils.Success(ctx, gin.H{"squads": squads})
}

// Members lists a squad's members; only members may look.
func (s *SocialController) Members(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeSocial)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id", codeSocial)
	if !ok {
		return
	}
	members, err := s.graph.Members(ctx.Request.Context(), userID, id)
	if err != nil {
		utils.Fail(ctx, codeSocial, err)
		return
	}
	utils.Success(ctx, gin.H{"members": members})
}
