package api

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type webhookRequest struct {
	Item string `json:"item" binding:"required"`
}

// PostWebhook handles the publish webhook. It acknowledges the caller
// immediately and runs the dispatch in a detached goroutine so the
// triggering system never waits on fan-out latency.
func (h *Handler) PostWebhook(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The request context dies with this handler; the dispatch run
	// outlives it. Nobody is left to observe an error, so log it.
	go func() {
		if err := h.dispatcher.Notify(context.Background(), req.Item); err != nil {
			log.Printf("dispatch for item %s failed: %v", req.Item, err)
		}
	}()

	c.Status(http.StatusOK)
}
