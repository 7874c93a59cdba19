package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/spiritfit/apperr"
	"github.com/cppla/spiritfit/feed"
	"github.com/cppla/spiritfit/middleware"
	"github.com/cppla/spiritfit/realtime"
	"github.com/cppla/spiritfit/utils"
)

// FeedController serves community posts and their interactions.
type FeedController struct {
	svc *feed.Service
	hub *realtime.Hub
}

// NewFeedController creates a new FeedController instance.
func NewFeedController(svc *feed.Service, hub *realtime.Hub) *FeedController {
	return &FeedController{svc: svc, hub: hub}
}

// List returns one filtered, sorted page of the feed. Anonymous viewers see public posts.
func (f *FeedController) List(ctx *gin.Context) {
	var q feed.Query
	if err := ctx.ShouldBindQuery(&q); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40000+codeFeed, "invalid query")
		return
	}
	page, err := f.svc.List(ctx.Request.Context(), middleware.UserID(ctx), q)
	if err != nil {
		utils.Fail(ctx, codeFeed, err)
		return
	}
	utils.Success(ctx, page)
}

// Create publishes a new post.
func (f *FeedController) Create(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeFeed)
	if !ok {
		return
	}
	var in feed.CreateInput
	if !bind(ctx, codeFeed, &in) {
		return
	}
	res, err := f.svc.Create(ctx.Request.Context(), userID, in)
	if err != nil {
		utils.Fail(ctx, codeFeed, err)
		return
	}
	utils.Success(ctx, res)
}

// Get returns one post if the viewer may see it.
func (f *FeedController) Get(ctx *gin.Context) {
	id, ok := paramID(ctx, "id", codeFeed)
	if !ok {
		return
	}
	post, err := f.svc.Get(ctx.Request.Context(), middleware.UserID(ctx), id)
	if err != nil {
		utils.Fail(ctx, codeFeed, err)
		return
	}
	utils.Success(ctx, post)
}

// Delete removes the caller's own post with everything attached to it.
func (f *FeedController) Delete(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeFeed)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id", codeFeed)
	if !ok {
		return
	}
	if err := f.svc.Delete(ctx.Request.Context(), userID, id); err != nil {
		utils.Fail(ctx, codeFeed, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "deleted"})
}

// React toggles the caller's reaction on a post.
func (f *FeedController) React(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeFeed)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id", codeFeed)
	if !ok {
		return
	}
	var req struct {
		Reaction string `json:"reaction" binding:"required"`
	}
	if !bind(ctx, codeFeed, &req) {
		return
	}
	state, err := f.svc.React(ctx.Request.Context(), userID, id, req.Reaction)
	if err != nil {
		utils.Fail(ctx, codeFeed, err)
		return
	}
	utils.Success(ctx, state)
}

// Pray toggles "I prayed for this" on a prayer request.
func (f *FeedController) Pray(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeFeed)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id", codeFeed)
	if !ok {
		return
	}
	state, err := f.svc.TogglePrayer(ctx.Request.Context(), userID, id)
	if err != nil {
		utils.Fail(ctx, codeFeed, err)
		return
	}
	utils.Success(ctx, state)
}

// Vote casts the caller's single vote on a poll.
func (f *FeedController) Vote(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeFeed)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id", codeFeed)
	if !ok {
		return
	}
	var req struct {
		Option *int `json:"option" binding:"required"`
	}
	if !bind(ctx, codeFeed, &req) {
		return
	}
	state, err := f.svc.Vote(ctx.Request.Context(), userID, id, *req.Option)
	if errors.Is(err, apperr.ErrAlreadyDone) {
		// one vote per user; a second one is refused rather than ignored
		utils.Conflict(ctx, codeFeed, err)
		return
	}
	if err != nil {
		utils.Fail(ctx, codeFeed, err)
		return
	}
	utils.Success(ctx, state)
}

// MarkAnswered lets the author of a prayer request record that it was answered.
func (f *FeedController) MarkAnswered(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeFeed)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id", codeFeed)
	if !ok {
		return
	}
	var req struct {
		Testimony string `json:"testimony"`
	}
	if ctx.Request.ContentLength > 0 && !bind(ctx, codeFeed, &req) {
		return
	}
	post, err := f.svc.MarkAnswered(ctx.Request.Context(), userID, id, req.Testimony)
	if err != nil {
		utils.Fail(ctx, codeFeed, err)
		return
	}
	utils.Success(ctx, post)
}

// CreateComment adds a comment to a visible post.
func (f *FeedController) CreateComment(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeComment)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id", codeComment)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if !bind(ctx, codeComment, &req) {
		return
	}
	comment, earned, err := f.svc.AddComment(ctx.Request.Context(), userID, id, req.Content)
	if err != nil {
		utils.Fail(ctx, codeComment, err)
		return
	}
	utils.Success(ctx, gin.H{"comment": comment, "points_earned": earned})
}

// ListComments pages through a post's comments, oldest first.
func (f *FeedController) ListComments(ctx *gin.Context) {
	id, ok := paramID(ctx, "id", codeComment)
	if !ok {
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	comments, err := f.svc.ListComments(ctx.Request.Context(), middleware.UserID(ctx), id, page, pageSize)
	if err != nil {
		utils.Fail(ctx, codeComment, err)
		return
	}
	utils.Success(ctx, gin.H{"comments": comments, "page": page, "page_size": pageSize})
}

// DeleteComment removes a comment; allowed for its author or the post's author.
func (f *FeedController) DeleteComment(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeComment)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "comment_id", codeComment)
	if !ok {
		return
	}
	if err := f.svc.DeleteComment(ctx.Request.Context(), userID, id); err != nil {
		utils.Fail(ctx, codeComment, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "deleted"})
}

// Stream pushes post insert and delete events the viewer is allowed to see.
func (f *FeedController) Stream(ctx *gin.Context) {
	filter, err := f.svc.Visible(ctx.Request.Context(), middleware.UserID(ctx))
	if err != nil {
		utils.Fail(ctx, codeFeed, err)
		return
	}
	f.hub.Stream(ctx, feed.Table, filter)
}
