package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/spiritfit/models"
	"github.com/cppla/spiritfit/utils"
)

// NotificationController lists and acknowledges the caller's notifications.
type NotificationController struct {
	db *gorm.DB
}

func NewNotificationController(db *gorm.DB) *NotificationController {
	return &NotificationController{db: db}
}

// List returns notifications newest first; ?unread=1 narrows to unread ones.
func (n *NotificationController) List(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeNotification)
	if !ok {
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	q := n.db.WithContext(ctx.Request.Context()).Model(&models.Notification{}).Where("user_id = ?", userID)
	if ctx.Query("unread") == "1" {
		q = q.Where("is_read = ?", false)
	}
	var items []models.Notification
	if err := q.Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&items).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50000+codeNotification, "failed to fetch notifications")
		return
	}

	var unread int64
	n.db.WithContext(ctx.Request.Context()).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Count(&unread)

	utils.Success(ctx, gin.H{
		"notifications": items,
		"unread":        unread,
		"page":          page,
		"page_size":     pageSize,
	})
}

// MarkRead marks the listed notifications read, or all of them when ids is empty.
func (n *NotificationController) MarkRead(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeNotification)
	if !ok {
		return
	}
	var req struct {
		IDs []uint `json:"ids"`
	}
	if ctx.Request.ContentLength > 0 && !bind(ctx, codeNotification, &req) {
		return
	}
	q := n.db.WithContext(ctx.Request.Context()).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false)
	if ids := utils.UniqueUint(req.IDs); len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	res := q.Update("is_read", true)
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001+codeNotification, "failed to update notifications")
		return
	}
	utils.Success(ctx, gin.H{"updated": res.RowsAffected})
}
