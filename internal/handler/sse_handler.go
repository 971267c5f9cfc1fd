package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/supplychain/internal/sse"
	"github.com/gin-gonic/gin"
)

// SSEHandler handles SSE connections
type SSEHandler struct {
	hub *sse.Hub
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(hub *sse.Hub) *SSEHandler {
	return &SSEHandler{hub: hub}
}

type SubscribeRequest struct {
	ClientID   string `json:"client_id" binding:"required"`
	LocationID string `json:"location_id" binding:"required"`
}

// Subscribe joins an already-connected client to a warehouse topic. The
// client ID comes from the initial "connected" event on the stream.
func (h *SSEHandler) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	h.hub.Subscribe(req.ClientID, sse.LocationTopic(req.LocationID))
	c.JSON(200, gin.H{"code": 0, "message": "success"})
}

// Stream handles the SSE endpoint
// GET /api/v1/sse/events?token=xxx&locations=loc1,loc2
// Clients naming locations also receive that warehouse's topic events.
func (h *SSEHandler) Stream(c *gin.Context) {
	userID := GetUserID(c)
	clientID := fmt.Sprintf("%s_%d", userID, time.Now().UnixNano())

	client := &sse.Client{
		ID:     clientID,
		UserID: userID,
		Topics: make(map[string]bool),
		Events: make(chan sse.Event, 64),
	}
	if locations := c.Query("locations"); locations != "" {
		for _, locationID := range strings.Split(locations, ",") {
			if locationID = strings.TrimSpace(locationID); locationID != "" {
				client.Topics[sse.LocationTopic(locationID)] = true
			}
		}
	}

	h.hub.Register(client)

	// Set SSE headers
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	// Send initial connection event
	c.Writer.WriteString("event: connected\ndata: {\"client_id\":\"" + client.ID + "\"}\n\n")
	c.Writer.Flush()

	// Heartbeat ticker
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	// Client disconnect detection
	clientGone := c.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			h.hub.Unregister(client.ID)
			return
		case event, ok := <-client.Events:
			if !ok {
				return
			}
			c.Writer.WriteString(fmt.Sprintf("event: %s\ndata: %s\n\n", event.EventType, event.Data))
			c.Writer.Flush()
		case <-heartbeat.C:
			c.Writer.WriteString(": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}
