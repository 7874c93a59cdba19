package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cppla/spiritfit/models"
	"github.com/cppla/spiritfit/points"
	"github.com/cppla/spiritfit/utils"
)

// PointsController reports the caller's points balance and history.
type PointsController struct {
	ledger *points.GormLedger
}

func NewPointsController(ledger *points.GormLedger) *PointsController {
	return &PointsController{ledger: ledger}
}

// Summary returns the running total, the derived level and recent transactions.
func (p *PointsController) Summary(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codePoints)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	total, err := p.ledger.Total(ctx.Request.Context(), userID)
	if err != nil {
		utils.Fail(ctx, codePoints, err)
		return
	}
	recent, err := p.ledger.Recent(ctx.Request.Context(), userID, limit)
	if err != nil {
		utils.Fail(ctx, codePoints, err)
		return
	}
	utils.Success(ctx, gin.H{
		"total":        total,
		"level":        models.Level(total),
		"transactions": recent,
	})
}
