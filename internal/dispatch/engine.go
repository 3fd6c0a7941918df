package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"livepush-backend/internal/content"
	"livepush-backend/internal/store"
)

// ContentSource looks up the current state of a live update.
type ContentSource interface {
	GetUpdate(ctx context.Context, id string) (*content.Update, error)
}

// pushPayload is the JSON message delivered to every device.
type pushPayload struct {
	Type   string `json:"type"`
	Event  string `json:"event"`
	Title  string `json:"title"`
	Update string `json:"update"`
	Body   string `json:"body"`
}

// Engine orchestrates one notification run per webhook event:
// eligibility check, ledger dedup, sequential paginated fan-out, and
// the final sent-count bookkeeping.
type Engine struct {
	store    store.Store
	content  ContentSource
	sender   PushSender
	options  *webpush.Options
	pageSize int

	// sleep pauses the run after a rate-limit response. Injected so
	// tests do not wait in real time.
	sleep func(time.Duration)
}

// NewEngine creates a dispatch engine.
func NewEngine(s store.Store, c ContentSource, options *webpush.Options, pageSize int) *Engine {
	return &Engine{
		store:    s,
		content:  c,
		sender:   &WebPushSender{},
		options:  options,
		pageSize: pageSize,
		sleep:    time.Sleep,
	}
}

// SetSender replaces the push sender. It exists for testing.
func (e *Engine) SetSender(s PushSender) {
	e.sender = s
}

// Notify runs one dispatch for the given update id. It is safe to call
// repeatedly with the same id: the ledger row inserted before any
// delivery makes later calls no-ops. Deliveries are strictly
// sequential so a single rate-limit pause throttles the whole run.
func (e *Engine) Notify(ctx context.Context, updateID string) error {
	update, err := e.content.GetUpdate(ctx, updateID)
	if errors.Is(err, content.ErrNotFound) {
		log.Printf("update %s not found upstream, skipping dispatch", updateID)
		return err
	}
	if err != nil {
		return fmt.Errorf("eligibility check for update %s failed: %w", updateID, err)
	}

	if !update.Eligible() {
		log.Printf("update %s is not eligible (status=%s), skipping dispatch", updateID, update.Status)
		return nil
	}

	handled, err := e.store.GetDispatch(ctx, updateID)
	if err != nil {
		return fmt.Errorf("dedup check for update %s failed: %w", updateID, err)
	}
	if handled {
		log.Printf("update %s already dispatched, skipping", updateID)
		return nil
	}

	// Insert-if-absent before contacting any device. Losing the race
	// means a concurrent trigger owns this id.
	created, err := e.store.CreateDispatch(ctx, updateID)
	if err != nil {
		return fmt.Errorf("mark-handled for update %s failed: %w", updateID, err)
	}
	if !created {
		log.Printf("update %s claimed by a concurrent dispatch, skipping", updateID)
		return nil
	}

	payload, err := json.Marshal(pushPayload{
		Type:   "live-update",
		Event:  update.Event.Slug,
		Title:  update.Event.Title,
		Update: update.ID,
		Body:   update.Body,
	})
	if err != nil {
		return fmt.Errorf("marshal payload for update %s failed: %w", updateID, err)
	}

	sent := 0
	paginator := NewDevicePaginator(e.store, update.Event.Slug, e.pageSize)
	for {
		page, more, err := paginator.Next(ctx)
		if err != nil {
			log.Printf("error fetching devices for channel %s: %v", update.Event.Slug, err)
			break
		}
		for _, device := range page {
			if e.deliver(ctx, device, payload) {
				sent++
			}
		}
		if !more {
			break
		}
	}

	if err := e.store.FinalizeDispatch(ctx, updateID, sent); err != nil {
		log.Printf("error finalizing dispatch for update %s: %v", updateID, err)
	}

	log.Printf("dispatch for update %s finished: %d notifications sent", updateID, sent)
	return nil
}

// deliver attempts one push delivery and applies its side effects.
// Only a successful delivery counts toward the sent tally; no outcome
// aborts the run.
func (e *Engine) deliver(ctx context.Context, device store.SubscribedDevice, payload []byte) bool {
	sub := &webpush.Subscription{
		Endpoint: device.Endpoint,
		Keys: webpush.Keys{
			P256dh: device.P256DH,
			Auth:   device.Auth,
		},
	}

	resp, err := e.sender.Send(payload, sub, e.options)
	if err != nil {
		log.Printf("error sending notification to %s: %v", device.Endpoint, err)
		return false
	}
	defer resp.Body.Close()

	outcome := classifyResponse(resp, time.Now())
	switch outcome.kind {
	case outcomeDelivered:
		return true
	case outcomeRateLimited:
		log.Printf("push service rate limited (endpoint %s), pausing for %s", device.Endpoint, outcome.retryAfter)
		if outcome.retryAfter > 0 {
			e.sleep(outcome.retryAfter)
		}
	case outcomeGone:
		log.Printf("subscription for endpoint %s is expired (status %d), pruning device", device.Endpoint, outcome.status)
		if err := e.store.DeleteDevice(ctx, device.DeviceID); err != nil {
			log.Printf("failed to prune device %d: %v", device.DeviceID, err)
		}
	case outcomeFailed:
		log.Printf("delivery to %s failed with status %d: %s", device.Endpoint, outcome.status, outcome.detail)
	}
	return false
}
