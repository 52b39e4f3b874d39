package tracing

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"visamatch/internal/platform/config"
)

func TestInitWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), config.TracingConfig{Sampler: "always_on"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	_, span := otel.Tracer("test").Start(context.Background(), "evaluate")
	defer span.End()
	assert.True(t, span.SpanContext().IsValid())
	assert.True(t, span.SpanContext().IsSampled())
}

func TestSampler(t *testing.T) {
	cases := map[string]string{
		"always_on":    "AlwaysOnSampler",
		"always_off":   "AlwaysOffSampler",
		"traceidratio": "TraceIDRatioBased{0.5}",
		"":             "ParentBased{root:TraceIDRatioBased{0.5}",
		"parentbased":  "ParentBased{root:TraceIDRatioBased{0.5}",
	}
	for name, want := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Contains(t, Sampler(name, 0.5).Description(), want)
		})
	}

	assert.Equal(t, "AlwaysOnSampler", Sampler("traceidratio", 7).Description())
	assert.Equal(t, "TraceIDRatioBased{0}", Sampler("traceidratio", -1).Description())
}

func TestHTTPMiddlewareStartsServerSpan(t *testing.T) {
	shutdown, err := Init(context.Background(), config.TracingConfig{Sampler: "always_on"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	var sc trace.SpanContext
	h := HTTPMiddleware("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc = trace.SpanContextFromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.True(t, sc.IsValid())
}
