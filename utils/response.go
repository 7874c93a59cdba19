package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/spiritfit/apperr"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// AlreadyDone answers an idempotent no-op: success with no effect.
func AlreadyDone(ctx *gin.Context, message string) {
	Respond(ctx, http.StatusOK, 0, message, gin.H{"already_done": true})
}

// Conflict answers a repeat the endpoint refuses, such as a second poll vote.
func Conflict(ctx *gin.Context, base int, err error) {
	Error(ctx, http.StatusConflict, 40900+base, apperr.Message(err))
}

// Fail maps an apperr kind onto status and code. base is the endpoint's
// two digit code suffix so every endpoint keeps distinct error codes.
// apperr.ErrAlreadyDone is not a failure and answers 200 via AlreadyDone.
func Fail(ctx *gin.Context, base int, err error) {
	msg := apperr.Message(err)
	switch {
	case errors.Is(err, apperr.ErrNotAuthenticated):
		Error(ctx, http.StatusUnauthorized, 40100+base, msg)
	case errors.Is(err, apperr.ErrValidation):
		Error(ctx, http.StatusBadRequest, 40000+base, msg)
	case errors.Is(err, apperr.ErrAlreadyDone):
		AlreadyDone(ctx, msg)
	case errors.Is(err, apperr.ErrNotFound):
		Error(ctx, http.StatusNotFound, 40400+base, msg)
	case errors.Is(err, apperr.ErrForbidden):
		Error(ctx, http.StatusForbidden, 40300+base, msg)
	default:
		Sugar.Errorw("request failed", "path", ctx.FullPath(), "err", err)
		Error(ctx, http.StatusInternalServerError, 50000+base, msg)
	}
}
