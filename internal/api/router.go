package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"livepush-backend/config"
	"livepush-backend/internal/mw"
	"livepush-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, d Dispatcher, webpushOptions *webpush.Options, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, d, webpushOptions)

	r.Use(mw.CORS(cfg.AllowedOrigins))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	// The publish webhook sits outside the rate-limited group: it is
	// called by the CMS, not by browsers.
	r.POST("/webhook/live", handler.PostWebhook)

	browser := r.Group("")
	browser.Use(rateLimiter)
	{
		browser.POST("/subscribe", handler.PostSubscribe)
		browser.POST("/unsubscribe", handler.PostUnsubscribe)
		browser.GET("/vapid_public_key", caching, handler.GetVAPIDPublicKey)
	}

	return r
}
