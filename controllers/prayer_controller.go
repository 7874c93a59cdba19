package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cppla/spiritfit/middleware"
	"github.com/cppla/spiritfit/progress"
	"github.com/cppla/spiritfit/utils"
)

// PrayerController manages the private prayer journal.
type PrayerController struct {
	svc *progress.Service
}

func NewPrayerController(svc *progress.Service) *PrayerController {
	return &PrayerController{svc: svc}
}

// Log records a prayer.
func (p *PrayerController) Log(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codePrayer)
	if !ok {
		return
	}
	var req struct {
		PrayerType string `json:"prayer_type"`
		Content    string `json:"content"`
	}
	if !bind(ctx, codePrayer, &req) {
		return
	}
	res, err := p.svc.LogPrayer(ctx.Request.Context(), userID, req.PrayerType, req.Content, middleware.Location(ctx))
	if err != nil {
		utils.Fail(ctx, codePrayer, err)
		return
	}
	utils.Success(ctx, res)
}

// List returns the journal, optionally narrowed by ?answered=true|false.
func (p *PrayerController) List(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codePrayer)
	if !ok {
		return
	}
	var answered *bool
	if raw := ctx.Query("answered"); raw != "" {
		if b, err := strconv.ParseBool(raw); err == nil {
			answered = &b
		}
	}
	list, err := p.svc.ListPrayers(ctx.Request.Context(), userID, answered)
	if err != nil {
		utils.Fail(ctx, codePrayer, err)
		return
	}
	utils.Success(ctx, gin.H{"prayers": list})
}

// SetAnswered marks a prayer answered or reverts it.
func (p *PrayerController) SetAnswered(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codePrayer)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id", codePrayer)
	if !ok {
		return
	}
	req := struct {
		Answered *bool  `json:"answered"`
		Note     string `json:"note"`
	}{}
	if !bind(ctx, codePrayer, &req) {
		return
	}
	answered := true
	if req.Answered != nil {
		answered = *req.Answered
	}
	res, err := p.svc.SetAnswered(ctx.Request.Context(), userID, id, answered, req.Note, middleware.Location(ctx))
	if err != nil {
		utils.Fail(ctx, codePrayer, err)
		return
	}
	utils.Success(ctx, res)
}

func (p *PrayerController) Delete(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codePrayer)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id", codePrayer)
	if !ok {
		return
	}
	if err := p.svc.DeletePrayer(ctx.Request.Context(), userID, id); err != nil {
		utils.Fail(ctx, codePrayer, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "deleted"})
}
