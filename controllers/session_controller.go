package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cppla/spiritfit/middleware"
	"github.com/cppla/spiritfit/progress"
	"github.com/cppla/spiritfit/utils"
)

// SessionController exposes the daily training session, streak status and challenges.
type SessionController struct {
	svc *progress.Service
}

// NewSessionController creates a new controller instance.
func NewSessionController(svc *progress.Service) *SessionController {
	return &SessionController{svc: svc}
}

// CompletePhase marks one phase of today's session done and reports what it earned.
func (s *SessionController) CompletePhase(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeSession)
	if !ok {
		return
	}
	var in progress.PhaseInput
	if !bind(ctx, codeSession, &in) {
		return
	}
	res, err := s.svc.CompletePhase(ctx.Request.Context(), userID, in, middleware.Location(ctx))
	if err != nil {
		utils.Fail(ctx, codeSession, err)
		return
	}
	utils.Success(ctx, res)
}

// Today returns today's session record in the viewer's time zone.
func (s *SessionController) Today(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeSession)
	if !ok {
		return
	}
	rec, found, err := s.svc.Today(ctx.Request.Context(), userID, middleware.Location(ctx))
	if err != nil {
		utils.Fail(ctx, codeSession, err)
		return
	}
	if !found {
		utils.Success(ctx, gin.H{"session": nil, "completed": false})
		return
	}
	utils.Success(ctx, gin.H{"session": rec, "completed": rec.AllPhasesDone()})
}

// History lists the most recent session records.
func (s *SessionController) History(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeSession)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "30"))
	if err != nil || limit <= 0 || limit > 365 {
		limit = 30
	}
	records, err := s.svc.History(ctx.Request.Context(), userID, limit)
	if err != nil {
		utils.Fail(ctx, codeSession, err)
		return
	}
	utils.Success(ctx, gin.H{"sessions": records})
}

// Check recomputes the streak and awards any milestones it now qualifies for.
func (s *SessionController) Check(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeSession)
	if !ok {
		return
	}
	res, err := s.svc.Check(ctx.Request.Context(), userID, middleware.Location(ctx))
	if err != nil {
		utils.Fail(ctx, codeSession, err)
		return
	}
	utils.Success(ctx, res)
}

// Challenges lists running challenge counters.
func (s *SessionController) Challenges(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeSession)
	if !ok {
		return
	}
	list, err := s.svc.Challenges(ctx.Request.Context(), userID)
	if err != nil {
		utils.Fail(ctx, codeSession, err)
		return
	}
	utils.Success(ctx, gin.H{"challenges": list})
}
