package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newLoggedRouter(buf *bytes.Buffer) *gin.Engine {
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	router := gin.New()
	router.Use(CorrelationID())
	router.Use(Logger(logger))
	return router
}

func TestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("LogsRequestDetails", func(t *testing.T) {
		var buf bytes.Buffer
		router := newLoggedRouter(&buf)
		router.GET("/shipments/:barcode", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		req, _ := http.NewRequest(http.MethodGet, "/shipments/AID-0042?verbose=1", nil)
		req.Header.Set(CorrelationIDHeader, "corr-123")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		out := buf.String()
		assert.Contains(t, out, `"level":"INFO"`)
		assert.Contains(t, out, `"msg":"HTTP request"`)
		assert.Contains(t, out, `"method":"GET"`)
		assert.Contains(t, out, `"path":"/shipments/AID-0042?verbose=1"`)
		assert.Contains(t, out, `"route":"/shipments/:barcode"`)
		assert.Contains(t, out, `"status":200`)
		assert.Contains(t, out, `"latency":`)
		assert.Contains(t, out, `"correlation_id":"corr-123"`)
	})

	levels := []struct {
		name   string
		status int
		level  string
	}{
		{"ClientErrorIsWarn", http.StatusConflict, "WARN"},
		{"ServerErrorIsError", http.StatusServiceUnavailable, "ERROR"},
	}
	for _, tt := range levels {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			router := newLoggedRouter(&buf)
			router.POST("/x", func(c *gin.Context) {
				c.Status(tt.status)
			})

			req, _ := http.NewRequest(http.MethodPost, "/x", nil)
			router.ServeHTTP(httptest.NewRecorder(), req)

			assert.Contains(t, buf.String(), `"level":"`+tt.level+`"`)
		})
	}
}
