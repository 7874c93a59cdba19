package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/spiritfit/utils"
)

const secret = "test-secret"

func router(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c), "tz": Location(c).String()})
	})
	return r
}

func get(r http.Handler, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	r := router(AuthRequired(secret))

	assert.Equal(t, http.StatusUnauthorized, get(r, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, map[string]string{"Authorization": "Token abc"}).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, map[string]string{"Authorization": "Bearer nope"}).Code)

	tok, err := utils.GenerateToken(secret, 42, "enoch", time.Hour)
	require.NoError(t, err)
	w := get(r, map[string]string{"Authorization": "Bearer " + tok})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":42`)

	utils.BlacklistToken(context.Background(), tok, time.Now().Add(time.Hour))
	assert.Equal(t, http.StatusUnauthorized, get(r, map[string]string{"Authorization": "Bearer " + tok}).Code)
}

func TestOptionalAuth(t *testing.T) {
	r := router(OptionalAuth(secret))
	w := get(r, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":0`)

	assert.Equal(t, http.StatusUnauthorized, get(r, map[string]string{"Authorization": "Bearer junk"}).Code)
}

func TestTimezone(t *testing.T) {
	r := router(Timezone(time.UTC))
	assert.Contains(t, get(r, nil).Body.String(), `"tz":"UTC"`)
	assert.Contains(t, get(r, map[string]string{TimezoneHeader: "Not/AZone"}).Body.String(), `"tz":"UTC"`)
	if _, err := time.LoadLocation("America/Chicago"); err == nil {
		assert.Contains(t, get(r, map[string]string{TimezoneHeader: "America/Chicago"}).Body.String(), `"tz":"America/Chicago"`)
	}
}

func TestRateLimit(t *testing.T) {
	r := router(RateLimitMiddleware(2))
	assert.Equal(t, http.StatusOK, get(r, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, nil).Code)
}
