package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer sets up a test tracer provider and returns the span recorder.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(prev)
	})
	return sr
}

func tracedRouter() *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	router.Use(TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "test-service"}))
	router.Use(TracingAttributeInjector())
	router.Use(SpanErrorMarker())
	router.POST("/items/:id/release", func(c *gin.Context) {
		if c.Query("fail") == "422" {
			c.Status(http.StatusUnprocessableEntity)
			return
		}
		if c.Query("fail") == "500" {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func endedSpan(t *testing.T, sr *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range sr.Ended() {
		if span.Name() == name {
			return span
		}
	}
	require.FailNow(t, "span not found", name)
	return nil
}

func attr(span sdktrace.ReadOnlySpan, key string) (string, bool) {
	for _, a := range span.Attributes() {
		if string(a.Key) == key {
			return a.Value.Emit(), true
		}
	}
	return "", false
}

func TestTracingWithConfig(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("disabled tracing passes requests through", func(t *testing.T) {
		router := gin.New()
		router.Use(TracingWithConfig(TracingConfig{Enabled: false}))
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("span carries route, request id and item id", func(t *testing.T) {
		sr := setupTestTracer(t)
		req := httptest.NewRequest(http.MethodPost, "/items/item-1/release", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		w := httptest.NewRecorder()
		tracedRouter().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		span := endedSpan(t, sr, "POST /items/:id/release")
		v, ok := attr(span, "request_id")
		require.True(t, ok)
		assert.Equal(t, "req-123", v)
		v, ok = attr(span, "item_id")
		require.True(t, ok)
		assert.Equal(t, "item-1", v)
		assert.NotEqual(t, codes.Error, span.Status().Code)
	})

	t.Run("long request ids are truncated", func(t *testing.T) {
		sr := setupTestTracer(t)
		req := httptest.NewRequest(http.MethodPost, "/items/item-1/release", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("x", 300))
		tracedRouter().ServeHTTP(httptest.NewRecorder(), req)

		v, ok := attr(endedSpan(t, sr, "POST /items/:id/release"), "request_id")
		require.True(t, ok)
		assert.Len(t, v, MaxRequestIDLength)
	})
}

func TestSpanErrorMarker(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query   string
		message string
	}{
		{"422", "Unprocessable Entity"},
		{"500", "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run("marks "+tt.query+" responses as errors", func(t *testing.T) {
			sr := setupTestTracer(t)
			req := httptest.NewRequest(http.MethodPost, "/items/item-1/release?fail="+tt.query, nil)
			tracedRouter().ServeHTTP(httptest.NewRecorder(), req)

			span := endedSpan(t, sr, "POST /items/:id/release")
			assert.Equal(t, codes.Error, span.Status().Code)
			assert.Equal(t, tt.message, span.Status().Description)
		})
	}

	t.Run("does nothing without a recording span", func(t *testing.T) {
		router := gin.New()
		router.Use(SpanErrorMarker())
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
