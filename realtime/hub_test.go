package realtime

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversPerTable(t *testing.T) {
	h := NewHub(2)
	posts, cancelPosts := h.Subscribe("community_posts")
	other, cancelOther := h.Subscribe("comments")
	defer cancelOther()

	require.NoError(t, h.Publish(context.Background(), Event{Table: "community_posts", Type: EventInsert, ID: 1}))
	ev := <-posts.Events
	assert.Equal(t, uint(1), ev.ID)
	assert.Empty(t, other.Events)

	cancelPosts()
	cancelPosts()
	assert.Equal(t, 0, h.Count("community_posts"))
	_, open := <-posts.Events
	assert.False(t, open)
}

func TestHubDropsWhenSubscriberIsSlow(t *testing.T) {
	h := NewHub(1)
	_, cancel := h.Subscribe("t")
	defer cancel()
	assert.Equal(t, 1, h.Broadcast(Event{Table: "t", ID: 1}))
	assert.Equal(t, 0, h.Broadcast(Event{Table: "t", ID: 2}))
}

func TestNewPublisherWithoutRedisUsesHub(t *testing.T) {
	h := NewHub(1)
	pub, bus := NewPublisher(nil, h)
	assert.Nil(t, bus)
	assert.Same(t, h, pub)
}

func TestStreamWritesEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHub(4)
	r := gin.New()
	r.GET("/stream", func(c *gin.Context) {
		h.Stream(c, "community_posts", func(ev Event) bool { return ev.ID != 2 })
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "event:") {
				return strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			}
		}
	}
	assert.Equal(t, "ready", readEvent())

	require.Eventually(t, func() bool { return h.Count("community_posts") == 1 }, time.Second, 10*time.Millisecond)
	h.Broadcast(Event{Table: "community_posts", Type: EventDelete, ID: 2})
	h.Broadcast(Event{Table: "community_posts", Type: EventInsert, ID: 3})
	assert.Equal(t, EventInsert, readEvent())
}
