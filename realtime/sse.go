package realtime

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

const heartbeatEvery = 15 * time.Second

// Stream serves table events to one client as server-sent events until the
// client goes away. filter may drop events the viewer must not see.
func (h *Hub) Stream(c *gin.Context, table string, filter func(Event) bool) {
	sub, cancel := h.Subscribe(table)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	c.SSEvent("ready", gin.H{"subscriber": sub.ID.String()})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case ev, ok := <-sub.Events:
			if !ok {
				return false
			}
			if filter != nil && !filter(ev) {
				return true
			}
			c.SSEvent(ev.Type, ev)
			return true
		}
	})
}
