package dispatch

import (
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/SherClockHolmes/webpush-go"
)

// PushSender defines the interface for sending a web push notification.
type PushSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of PushSender using the
// webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// outcomeKind classifies one delivery attempt.
type outcomeKind int

const (
	outcomeDelivered outcomeKind = iota
	outcomeRateLimited
	outcomeGone
	outcomeFailed
)

// deliveryOutcome is the classified result of one push attempt.
type deliveryOutcome struct {
	kind       outcomeKind
	retryAfter time.Duration
	status     int
	detail     string
}

// classifyResponse maps a push service response onto a delivery
// outcome. The caller owns closing the response body.
func classifyResponse(resp *http.Response, now time.Time) deliveryOutcome {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return deliveryOutcome{kind: outcomeDelivered, status: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return deliveryOutcome{
			kind:       outcomeRateLimited,
			status:     resp.StatusCode,
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), now),
		}
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return deliveryOutcome{kind: outcomeGone, status: resp.StatusCode}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return deliveryOutcome{kind: outcomeFailed, status: resp.StatusCode, detail: string(body)}
	}
}

// parseRetryAfter normalizes a Retry-After header into a delay. The
// value may be an integer count of seconds or an HTTP date; dates are
// rounded up to whole seconds. Missing or unparseable values yield 0.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}

	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}

	when, err := http.ParseTime(value)
	if err != nil {
		return 0
	}
	secs := math.Ceil(when.Sub(now).Seconds())
	if secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
