package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSecurityRouter(maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SecurityHeaders())
	router.Use(RequestSizeLimit(maxBytes))
	router.POST("/echo", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"size": len(body)})
	})
	return router
}

func TestSecurityHeaders(t *testing.T) {
	router := setupSecurityRouter(1024)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("{}"))
	router.ServeHTTP(recorder, request)

	assert.Equal(t, "DENY", recorder.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", recorder.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "Workshop Fulfillment API", recorder.Header().Get("Server"))
}

func TestRequestSizeLimit(t *testing.T) {
	t.Run("accepts bodies within the limit", func(t *testing.T) {
		router := setupSecurityRouter(64)

		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("a", 32)))
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("rejects oversized bodies by content length", func(t *testing.T) {
		router := setupSecurityRouter(64)

		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("a", 128)))
		router.ServeHTTP(recorder, request)

		require.Equal(t, http.StatusRequestEntityTooLarge, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "Request body too large")
	})

	t.Run("caps bodies sent without content length", func(t *testing.T) {
		router := setupSecurityRouter(64)

		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("a", 128)))
		request.ContentLength = -1
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusRequestEntityTooLarge, recorder.Code)
	})
}
