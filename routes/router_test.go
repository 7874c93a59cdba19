package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/spiritfit/config"
	"github.com/cppla/spiritfit/dbtest"
	"github.com/cppla/spiritfit/models"
	"github.com/cppla/spiritfit/progress"
	"github.com/cppla/spiritfit/realtime"
	"github.com/cppla/spiritfit/storage"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	t *testing.T
	h http.Handler
}

func (c client) do(method, path, token string, body interface{}) (int, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Timezone", "America/Chicago")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (c client) register(username string) (string, uint) {
	c.t.Helper()
	code, env := c.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": username, "password": "correct horse"})
	require.Equal(c.t, http.StatusOK, code, env.Message)
	var out struct {
		Token string `json:"token"`
		User  struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	require.NoError(c.t, json.Unmarshal(env.Data, &out))
	return out.Token, out.User.ID
}

func newClient(t *testing.T) client {
	t.Helper()
	config.Set(config.AppConfig{
		JWTSecret:          "router-test-secret",
		TokenTTL:           time.Hour,
		RateLimitPerMinute: 10000,
		AllowedOrigins:     []string{"*"},
		GinMode:            "test",
		FeedPageSize:       20,
		FeedCacheTTL:       time.Second,
	})
	db := dbtest.Open(t)
	require.NoError(t, progress.SeedMilestones(context.Background(), db, progress.DefaultMilestones))
	hub := realtime.NewHub(8)
	store := storage.NewLocalStore(t.TempDir(), "/static/uploads")
	return client{t: t, h: SetupRouter(NewDeps(db, hub, hub, store))}
}

func TestHealthAndNotFound(t *testing.T) {
	c := newClient(t)
	code, env := c.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, env.Code)

	code, env = c.do(http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, 40400, env.Code)
}

func TestRegisterLoginLogout(t *testing.T) {
	c := newClient(t)
	token, id := c.register("miriam")
	assert.NotZero(t, id)

	code, _ := c.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "miriam", "password": "another pass"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = c.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "x!", "password": "correct horse"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = c.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "miriam", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := c.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "miriam", "password": "correct horse"})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"token"`)

	code, env = c.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"username":"miriam"`)

	code, _ = c.do(http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = c.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestSessionFlowAwardsFirstMilestone(t *testing.T) {
	c := newClient(t)
	token, _ := c.register("samuel")

	code, _ := c.do(http.MethodPost, "/api/v1/sessions/phase", "", gin.H{"phase": models.PhaseWorship})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := c.do(http.MethodPost, "/api/v1/sessions/phase", token, gin.H{"phase": "stretching"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 40020, env.Code)

	var last progress.PhaseResult
	earned := 0
	for _, phase := range models.Phases {
		code, env = c.do(http.MethodPost, "/api/v1/sessions/phase", token, gin.H{"phase": phase, "minutes": 5})
		require.Equal(t, http.StatusOK, code, env.Message)
		require.NoError(t, json.Unmarshal(env.Data, &last))
		earned += last.PointsEarned
	}
	assert.True(t, last.SessionCompleted)
	assert.Equal(t, 1, last.Progress.CurrentStreak)
	codes := make([]string, 0, len(last.NewMilestones))
	for _, m := range last.NewMilestones {
		codes = append(codes, m.Code)
	}
	assert.Contains(t, codes, "first_session")

	code, env = c.do(http.MethodGet, "/api/v1/milestones", token, nil)
	require.Equal(t, http.StatusOK, code)
	var ms struct {
		Milestones []progress.MilestoneStatus `json:"milestones"`
		Unviewed   int                        `json:"unviewed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &ms))
	assert.Positive(t, ms.Unviewed)

	code, _ = c.do(http.MethodPost, "/api/v1/milestones/viewed", token, nil)
	require.Equal(t, http.StatusOK, code)
	code, env = c.do(http.MethodGet, "/api/v1/milestones", token, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &ms))
	assert.Zero(t, ms.Unviewed)

	code, env = c.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"current_streak":1`)

	code, env = c.do(http.MethodGet, "/api/v1/points", token, nil)
	require.Equal(t, http.StatusOK, code)
	var pts struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &pts))
	assert.Equal(t, earned, pts.Total)
}

func TestFeedPrayerRoundTrip(t *testing.T) {
	c := newClient(t)
	author, _ := c.register("hannah")
	friend, _ := c.register("eli")

	code, env := c.do(http.MethodPost, "/api/v1/posts", author, gin.H{
		"post_type": models.PostPrayerRequest,
		"content":   gin.H{"text": "Pray for my exam", "urgency": "urgent"},
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	var created struct {
		Post struct {
			ID uint `json:"id"`
		} `json:"post"`
		PointsEarned int `json:"points_earned"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotZero(t, created.Post.ID)
	assert.Positive(t, created.PointsEarned)

	path := "/api/v1/posts/" + itoa(created.Post.ID)
	code, env = c.do(http.MethodPost, path+"/pray", friend, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Contains(t, string(env.Data), `"has_prayed":true`)
	assert.Contains(t, string(env.Data), `"prayer_count":1`)

	code, env = c.do(http.MethodGet, "/api/v1/feed?filter=prayer_requests", "", nil)
	require.Equal(t, http.StatusOK, code)
	var page struct {
		Posts []struct {
			ID          uint `json:"id"`
			PrayerCount int  `json:"prayer_count"`
		} `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Posts, 1)
	assert.Equal(t, 1, page.Posts[0].PrayerCount)

	code, _ = c.do(http.MethodGet, "/api/v1/feed?filter=following", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = c.do(http.MethodGet, "/api/v1/feed?filter=bogus", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = c.do(http.MethodGet, "/api/v1/notifications", author, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"unread":1`)

	code, _ = c.do(http.MethodDelete, path, friend, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = c.do(http.MethodDelete, path, author, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = c.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPollVoteConflict(t *testing.T) {
	c := newClient(t)
	author, _ := c.register("deborah")
	voter, _ := c.register("barak")

	code, env := c.do(http.MethodPost, "/api/v1/posts", author, gin.H{
		"post_type": models.PostPoll,
		"content":   gin.H{"question": "Morning or evening?", "options": []string{"Morning", "Evening"}},
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	var created struct {
		Post struct {
			ID uint `json:"id"`
		} `json:"post"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	path := "/api/v1/posts/" + itoa(created.Post.ID) + "/vote"

	code, _ = c.do(http.MethodPost, path, voter, gin.H{"option": 1})
	require.Equal(t, http.StatusOK, code)
	code, env = c.do(http.MethodPost, path, voter, gin.H{"option": 0})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, 40940, env.Code)
	assert.Equal(t, "already voted", env.Message)
	code, _ = c.do(http.MethodPost, path, author, gin.H{"option": 7})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestFollowAndSquads(t *testing.T) {
	c := newClient(t)
	ruth, ruthID := c.register("ruth")
	naomi, naomiID := c.register("naomi")

	code, _ := c.do(http.MethodPost, "/api/v1/users/"+itoa(naomiID)+"/follow", ruth, nil)
	require.Equal(t, http.StatusOK, code)
	code, env := c.do(http.MethodPost, "/api/v1/users/"+itoa(naomiID)+"/follow", ruth, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, env.Code)
	assert.JSONEq(t, `{"already_done":true}`, string(env.Data))
	code, _ = c.do(http.MethodPost, "/api/v1/users/"+itoa(ruthID)+"/follow", naomi, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = c.do(http.MethodGet, "/api/v1/friends", ruth, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"count":1`)

	code, env = c.do(http.MethodPost, "/api/v1/squads", ruth, gin.H{"name": "Gleaners"})
	require.Equal(t, http.StatusOK, code, env.Message)
	var squad models.Squad
	require.NoError(t, json.Unmarshal(env.Data, &squad))

	code, _ = c.do(http.MethodGet, "/api/v1/squads/"+itoa(squad.ID)+"/members", naomi, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = c.do(http.MethodPost, "/api/v1/squads/join", naomi, gin.H{"invite_code": squad.InviteCode})
	require.Equal(t, http.StatusOK, code)
	code, env = c.do(http.MethodGet, "/api/v1/squads/"+itoa(squad.ID)+"/members", naomi, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"username":"ruth"`)
}

func TestRepeatedIdempotentActionsSucceed(t *testing.T) {
	c := newClient(t)
	ruth, _ := c.register("orpah")
	_, naomiID := c.register("boaz")
	path := "/api/v1/users/" + itoa(naomiID) + "/follow"

	code, env := c.do(http.MethodDelete, path, ruth, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"already_done":true}`, string(env.Data))
	assert.Equal(t, "not following", env.Message)

	code, _ = c.do(http.MethodPost, path, ruth, nil)
	require.Equal(t, http.StatusOK, code)
	code, env = c.do(http.MethodDelete, path, ruth, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"following":false`)

	code, env = c.do(http.MethodPost, "/api/v1/posts", ruth, gin.H{
		"post_type": models.PostPrayerRequest,
		"content":   gin.H{"text": "Rain for the harvest"},
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	var created struct {
		Post struct {
			ID uint `json:"id"`
		} `json:"post"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	answered := "/api/v1/posts/" + itoa(created.Post.ID) + "/answered"

	code, env = c.do(http.MethodPost, answered, ruth, gin.H{"testimony": "it rained"})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.NotContains(t, string(env.Data), "already_done")
	code, env = c.do(http.MethodPost, answered, ruth, gin.H{"testimony": "it rained"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, env.Code)
	assert.JSONEq(t, `{"already_done":true}`, string(env.Data))
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
