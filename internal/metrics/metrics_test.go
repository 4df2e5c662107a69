package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGinMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/clubs/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/clubs/42", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `fitpass_http_requests_total{method="GET",route="/clubs/:id",status="204"} 1`))
	assert.False(t, strings.Contains(body, "/clubs/42"))
}

func TestHandlerExposesDomainCounters(t *testing.T) {
	RecordGeocodingCall("google", "ok")
	RecordWebhookEvent("", "ignored")

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.Contains(body, `fitpass_geocoding_provider_calls_total{outcome="ok",provider="google"}`))
	assert.True(t, strings.Contains(body, `fitpass_billing_webhook_events_total{result="ignored",type="unknown"}`))
}
