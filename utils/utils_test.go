package utils

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/spiritfit/apperr"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken("s3cret", 42, "ruth", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken("s3cret", tok)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "ruth", claims.Username)

	_, err = ParseToken("other", tok)
	assert.Error(t, err)
}

func TestBlacklistFallsBackToMemory(t *testing.T) {
	SetRedis(nil)
	ctx := context.Background()
	BlacklistToken(ctx, "tok-a", time.Now().Add(time.Minute))
	BlacklistToken(ctx, "tok-expired", time.Now().Add(-time.Minute))

	assert.True(t, IsTokenBlacklisted(ctx, "tok-a"))
	assert.False(t, IsTokenBlacklisted(ctx, "tok-expired"))
	assert.False(t, IsTokenBlacklisted(ctx, "tok-unknown"))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("grace-123")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "grace-123"))
	assert.False(t, CheckPassword(hash, "grace-124"))

	_, err = HashPassword(string(make([]byte, 73)))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "hello", Sanitize(`hello<script>alert(1)</script>`))
	assert.Equal(t, "bold", SanitizePlain("  <b>bold</b> "))
}

func TestUniqueUint(t *testing.T) {
	assert.Equal(t, []uint{3, 1, 2}, UniqueUint([]uint{3, 1, 3, 2, 1}))
	assert.Empty(t, UniqueUint(nil))
}

func TestFailTreatsAlreadyDoneAsSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Fail(c, 7, apperr.AlreadyDone("already following"))

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			AlreadyDone bool `json:"already_done"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 0, body.Code)
	assert.Equal(t, "already following", body.Message)
	assert.True(t, body.Data.AlreadyDone)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	Conflict(c, 7, apperr.AlreadyDone("already voted"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"code":40907`)
}

func TestFailMapsKinds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		code   int
	}{
		{apperr.Validation("bad"), http.StatusBadRequest, 40007},
		{apperr.NotFound("post"), http.StatusNotFound, 40407},
		{apperr.Forbidden("nope"), http.StatusForbidden, 40307},
		{apperr.ErrNotAuthenticated, http.StatusUnauthorized, 40107},
		{apperr.Persistence("save", errors.New("boom")), http.StatusInternalServerError, 50007},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		Fail(c, 7, tc.err)

		assert.Equal(t, tc.status, w.Code)
		var body JSONResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tc.code, body.Code)
	}
}
