package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/spiritfit/apperr"
	"github.com/cppla/spiritfit/config"
	"github.com/cppla/spiritfit/middleware"
	"github.com/cppla/spiritfit/utils"
)

// Error code suffixes per controller, combined with the HTTP class by utils.Fail.
const (
	codeAuth         = 10
	codeSession      = 20
	codeMilestone    = 25
	codePrayer       = 30
	codePoints       = 35
	codeFeed         = 40
	codeComment      = 45
	codeSocial       = 50
	codeNotification = 60
	codeUpload       = 70
	codeStats        = 80
)

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 20
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

// paramID reads a positive numeric path parameter, answering 400 when it is malformed.
func paramID(ctx *gin.Context, name string, base int) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || n == 0 {
		utils.Fail(ctx, base, apperr.Validation("invalid %s", name))
		return 0, false
	}
	return uint(n), true
}

// requireUser returns the authenticated user id or answers 401.
func requireUser(ctx *gin.Context, base int) (uint, bool) {
	id := middleware.UserID(ctx)
	if id == 0 {
		utils.Error(ctx, http.StatusUnauthorized, 40100+base, "unauthorized")
		return 0, false
	}
	return id, true
}

// bind decodes the JSON body, answering 400 on malformed input.
func bind(ctx *gin.Context, base int, dst interface{}) bool {
	if err := ctx.ShouldBindJSON(dst); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40000+base, "invalid request payload")
		return false
	}
	return true
}

func isAdminUsername(username string) bool {
	uname := strings.TrimSpace(username)
	if uname == "" {
		return false
	}
	for _, u := range config.Get().AdminUsernames {
		if strings.EqualFold(strings.TrimSpace(u), uname) {
			return true
		}
	}
	return false
}
