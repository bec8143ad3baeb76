package daemon

import (
	"io"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tandempv/xystage/pkg/events"
)

// getEvents streams hub events to the client as server-sent events until
// the client goes away or the hub closes. Repeated ?name= parameters limit
// the stream to those events.
func getEvents(c *gin.Context) {
	names := c.QueryArray("name")
	sub := sseHub.Subscribe(names...)
	defer sseHub.Unsubscribe(sub)

	// Current state first, so a fresh client need not poll.
	if len(names) == 0 || slices.Contains(names, events.StageStatus) {
		c.SSEvent(events.StageStatus, stageStatusEvent(controller.Status()))
	}

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-sub:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, ev.Data)
			return true
		}
	})
	logrus.Debug("event stream closed")
}
