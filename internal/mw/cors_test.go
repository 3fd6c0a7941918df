package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupCORSRouter(origins []string) *gin.Engine {
	r := gin.New()
	r.Use(CORS(origins))
	r.POST("/subscribe", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestCORS(t *testing.T) {
	origins := []string{"https://live.example.com", "https://staging.example.com"}
	router := setupCORSRouter(origins)

	t.Run("allowed origin gets CORS headers", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/subscribe", nil)
		req.Header.Set("Origin", "https://live.example.com")
		router.ServeHTTP(w, req)

		assert.Equal(t, "https://live.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("second allowed origin also works", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/subscribe", nil)
		req.Header.Set("Origin", "https://staging.example.com")
		router.ServeHTTP(w, req)

		assert.Equal(t, "https://staging.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown origin gets no CORS headers", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/subscribe", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		router.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight is answered without hitting the handler", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("OPTIONS", "/subscribe", nil)
		req.Header.Set("Origin", "https://live.example.com")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://live.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})
}
