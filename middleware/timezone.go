package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/spiritfit/progress"
)

const (
	// TimezoneHeader carries the viewer's IANA zone, e.g. "America/Chicago".
	TimezoneHeader = "X-Timezone"
	contextLocKey  = "location"
)

// Timezone resolves the viewer's day boundary from the X-Timezone header,
// falling back to fallback for missing or unknown zones. The zone is also
// put on the request context for services.
func Timezone(fallback *time.Location) gin.HandlerFunc {
	if fallback == nil {
		fallback = time.UTC
	}
	return func(ctx *gin.Context) {
		loc := fallback
		if name := ctx.GetHeader(TimezoneHeader); name != "" {
			if l, err := time.LoadLocation(name); err == nil {
				loc = l
			}
		}
		ctx.Set(contextLocKey, loc)
		ctx.Request = ctx.Request.WithContext(progress.WithLocation(ctx.Request.Context(), loc))
		ctx.Next()
	}
}

// Location returns the zone Timezone stored, or UTC.
func Location(ctx *gin.Context) *time.Location {
	if v, ok := ctx.Get(contextLocKey); ok {
		if loc, ok := v.(*time.Location); ok {
			return loc
		}
	}
	return time.UTC
}
