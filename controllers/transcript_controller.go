package controllers

import (
	"net/http"
	"strings"

	"codecoach/internal/sanitize"
	"codecoach/websocket"

	"github.com/gin-gonic/gin"
)

type IngestTranscriptRequest struct {
	Text string `json:"text" binding:"required"`
}

// IngestTranscript accepts a transcribed line from the speech-to-text
// engine and fans it out to connected session cores.
func IngestTranscript(hub *websocket.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req IngestTranscriptRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		text := sanitize.Sanitize(req.Text)
		if strings.TrimSpace(text) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Transcript text cannot be empty"})
			return
		}

		reached := hub.Broadcast(text)
		c.JSON(http.StatusOK, gin.H{"delivered_to": reached})
	}
}

// HubStats exposes transcription hub counters.
func HubStats(hub *websocket.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, hub.Stats())
	}
}
