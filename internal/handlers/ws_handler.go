package handlers

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

// originAllowed reports whether a browser origin may open a websocket.
// Requests without an Origin header do not come from a browser page.
func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return true
	}
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// HandleWebSocket registers a stage or control screen. Every draw result and
// command result is pushed to it; text frames it sends are run as host
// commands of the form {"transcript": "...", "operator": "..."}.
func (h *HTTPHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("websocket upgrade error: %v", err)
		return
	}

	h.hub.AddConnection(conn)
	defer h.hub.RemoveConnection(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var req commandRequest
		if err := json.Unmarshal(data, &req); err != nil || req.Transcript == "" {
			logger.Infof("ws: ignoring message: %s", data)
			continue
		}
		h.runCommand(c, req)
	}
}
