package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/spiritfit/config"
	"github.com/cppla/spiritfit/middleware"
	"github.com/cppla/spiritfit/models"
	"github.com/cppla/spiritfit/progress"
	"github.com/cppla/spiritfit/utils"
)

// AuthController handles local accounts and JWT sessions.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Register creates a local account with a bcrypt password hash and signs it in.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username    string `json:"username" binding:"required"`
		DisplayName string `json:"display_name"`
		Email       string `json:"email"`
		Password    string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if l := len(req.Username); l < 3 || l > 32 || !validUsername(req.Username) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username must be 3-32 letters, digits, '-' or '_'")
		return
	}
	if len(req.Password) < 8 {
		utils.Error(ctx, http.StatusBadRequest, 40003, "password must be at least 8 characters")
		return
	}
	displayName := utils.SanitizePlain(req.DisplayName)
	if len([]rune(displayName)) > 64 {
		utils.Error(ctx, http.StatusBadRequest, 40004, "display name is too long")
		return
	}

	var existing int64
	if err := a.db.Model(&models.User{}).Where("username = ?", req.Username).Count(&existing).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to check username")
		return
	}
	if existing > 0 {
		utils.Error(ctx, http.StatusConflict, 40901, "username already exists")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		utils.Error(ctx, http.StatusBadRequest, 40003, "password must be at most 72 bytes")
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to hash password")
		return
	}

	user := models.User{
		Username:     req.Username,
		DisplayName:  displayName,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
	}
	if err := a.db.Create(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to create user")
		return
	}
	a.issueToken(ctx, user)
}

func validUsername(s string) bool {
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '-' || r == '_' {
			continue
		}
		return false
	}
	return true
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40005, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}
	a.issueToken(ctx, user)
}

func (a *AuthController) issueToken(ctx *gin.Context, user models.User) {
	cfg := config.Get()
	token, err := utils.GenerateToken(cfg.JWTSecret, user.ID, user.Username, cfg.TokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Success(ctx, gin.H{
		"token": token,
		"user":  a.userResponse(ctx, user, true),
	})
}

// Logout revokes the presented token until it would have expired anyway.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if token == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid authorization header")
		return
	}
	expiresAt := time.Now().Add(config.Get().TokenTTL)
	if v, ok := ctx.Get(middleware.ContextTokenExpKey); ok {
		if t, ok := v.(time.Time); ok {
			expiresAt = t
		}
	}
	utils.BlacklistToken(ctx.Request.Context(), token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeAuth)
	if !ok {
		return
	}
	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	utils.Success(ctx, a.userResponse(ctx, user, true))
}

// UpdateProfile lets the authenticated user change display fields.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeAuth)
	if !ok {
		return
	}
	var req struct {
		DisplayName *string `json:"display_name"`
		Email       *string `json:"email"`
		Bio         *string `json:"bio"`
		AvatarURL   *string `json:"avatar_url"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	if req.DisplayName != nil {
		user.DisplayName = truncate(utils.SanitizePlain(*req.DisplayName), 64)
	}
	if req.Email != nil {
		user.Email = strings.TrimSpace(*req.Email)
	}
	if req.Bio != nil {
		user.Bio = truncate(utils.SanitizePlain(*req.Bio), 255)
	}
	if req.AvatarURL != nil {
		user.AvatarURL = truncate(strings.TrimSpace(*req.AvatarURL), 512)
	}
	if err := a.db.Save(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to update profile")
		return
	}
	utils.InvalidateByPrefix(ctx.Request.Context(), "cache:user:public:"+strconv.Itoa(int(user.ID))+":")
	utils.Success(ctx, a.userResponse(ctx, user, true))
}

// GetUserPublic returns public user info by ID.
func (a *AuthController) GetUserPublic(ctx *gin.Context) {
	id, ok := paramID(ctx, "id", codeAuth)
	if !ok {
		return
	}
	key := "cache:user:public:" + strconv.Itoa(int(id)) + ":" + middleware.Location(ctx).String()
	var cached gin.H
	if utils.CacheGetJSON(ctx.Request.Context(), key, &cached) {
		utils.Success(ctx, cached)
		return
	}
	var user models.User
	if err := a.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to get user")
		return
	}
	payload := a.userResponse(ctx, user, false)
	utils.CacheSetJSON(ctx.Request.Context(), key, payload, time.Minute)
	utils.Success(ctx, payload)
}

func (a *AuthController) userResponse(ctx *gin.Context, user models.User, private bool) gin.H {
	var row models.UserProgress
	a.db.WithContext(ctx.Request.Context()).Where("user_id = ?", user.ID).Limit(1).Find(&row)
	today := progress.Day(time.Now(), middleware.Location(ctx))
	m := gin.H{
		"id":             user.ID,
		"username":       user.Username,
		"display_name":   user.Name(),
		"avatar_url":     user.AvatarURL,
		"bio":            user.Bio,
		"points":         user.Points,
		"level":          models.Level(user.Points),
		"current_streak": progress.ActiveStreak(row, today),
		"longest_streak": row.LongestStreak,
		"created_at":     user.CreatedAt,
	}
	if private {
		m["email"] = user.Email
		m["is_admin"] = isAdminUsername(user.Username)
	}
	return m
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
