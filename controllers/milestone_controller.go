package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/spiritfit/middleware"
	"github.com/cppla/spiritfit/progress"
	"github.com/cppla/spiritfit/utils"
)

// MilestoneController lists achievements and acknowledges them.
type MilestoneController struct {
	svc *progress.Service
}

func NewMilestoneController(svc *progress.Service) *MilestoneController {
	return &MilestoneController{svc: svc}
}

// List returns the catalog with the caller's achievement state.
func (m *MilestoneController) List(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeMilestone)
	if !ok {
		return
	}
	list, err := m.svc.Milestones(ctx.Request.Context(), userID, middleware.Location(ctx))
	if err != nil {
		utils.Fail(ctx, codeMilestone, err)
		return
	}
	unviewed := 0
	for _, st := range list {
		if st.Achieved && !st.IsViewed {
			unviewed++
		}
	}
	utils.Success(ctx, gin.H{"milestones": list, "unviewed": unviewed})
}

// MarkViewed acknowledges the given milestones, or all of them when none are named.
func (m *MilestoneController) MarkViewed(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeMilestone)
	if !ok {
		return
	}
	var req struct {
		MilestoneIDs []uint `json:"milestone_ids"`
	}
	if ctx.Request.ContentLength > 0 && !bind(ctx, codeMilestone, &req) {
		return
	}
	if err := m.svc.MarkViewed(ctx.Request.Context(), userID, utils.UniqueUint(req.MilestoneIDs)); err != nil {
		utils.Fail(ctx, codeMilestone, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "ok"})
}
