package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartMetrics(t *testing.T) {
	m := NewCartMetrics()

	m.ObserveCartOp("add", nil)
	m.ObserveCartOp("add", nil)
	m.ObserveCartOp("add", fmt.Errorf("add: %w", domain.ErrOutOfStock))
	m.ObserveCartOp("clear", fmt.Errorf("clear: %w", domain.ErrNotFound))
	m.SetCartSize(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ops.WithLabelValues("add", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ops.WithLabelValues("add", "out_of_stock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ops.WithLabelValues("clear", "not_found")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.cartSize))
}

func TestHandler(t *testing.T) {
	m := NewCartMetrics()
	m.SetCartSize(1)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "storefront_cart_units 1")
}
