package api

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type subscribeRequest struct {
	Channel string `json:"channel" binding:"required"`
	Device  struct {
		Endpoint string `json:"endpoint" binding:"required,url"`
		Keys     struct {
			Auth   string `json:"auth" binding:"required"`
			P256DH string `json:"p256dh" binding:"required"`
		} `json:"keys" binding:"required"`
	} `json:"device" binding:"required"`
}

// PostSubscribe upserts the device by endpoint, links it to the
// channel, and returns the subscription id. Unlike the webhook this is
// synchronous: the caller needs the id.
func (h *Handler) PostSubscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device, err := h.store.UpsertDevice(c.Request.Context(), req.Device.Endpoint, req.Device.Keys.P256DH, req.Device.Keys.Auth)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	subscriptionID, err := h.store.CreateSubscription(c.Request.Context(), req.Channel, device.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscriptionId": strconv.FormatInt(subscriptionID, 10)})
}

type unsubscribeRequest struct {
	Channel  string `json:"channel" binding:"required"`
	Endpoint string `json:"endpoint" binding:"required,url"`
}

// PostUnsubscribe acknowledges immediately; the deletion itself is
// fire-and-forget and idempotent, so a pair that was never subscribed
// still gets a 200.
func (h *Handler) PostUnsubscribe(c *gin.Context) {
	var req unsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	go func() {
		if err := h.store.DeleteSubscription(context.Background(), req.Channel, req.Endpoint); err != nil {
			log.Printf("failed to delete subscription (channel %s, endpoint %s): %v", req.Channel, req.Endpoint, err)
		}
	}()

	c.Status(http.StatusOK)
}
