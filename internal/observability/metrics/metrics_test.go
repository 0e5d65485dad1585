package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("tenant", "acme"),
		attribute.String("customer_id", "456"),
		attribute.String("entity", "invoice"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("tenant"), attrs[0].Key)
	assert.Equal(t, attribute.Key("entity"), attrs[1].Key)
}

func TestDomainCountersWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordTenantResolution(ctx, "hit")
	m.RecordDocumentCreated(ctx, "acme", "quote")
	m.RecordPayment(ctx, "acme")
	m.RecordLoginFailure(ctx, "acme", "bad_password")

	var nilMetrics *Metrics
	nilMetrics.RecordPayment(ctx, "acme")
}

func TestHTTPMetricsMiddlewareCountsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m, err := NewHTTPMetricsWithRegisterer(reg, Config{Environment: "test"})
	require.NoError(t, err)

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/client/read/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/client/read/1", nil))
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues("/client/read/:id", http.MethodGet, "200"))
	assert.Equal(t, float64(3), got)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.inflight))
}
