package api

import (
	"context"

	"github.com/SherClockHolmes/webpush-go"

	"livepush-backend/internal/store"
)

// Dispatcher runs one notification run for an update id.
type Dispatcher interface {
	Notify(ctx context.Context, updateID string) error
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store      store.Store
	dispatcher Dispatcher
	webpush    *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, d Dispatcher, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:      s,
		dispatcher: d,
		webpush:    webpushOptions,
	}
}
