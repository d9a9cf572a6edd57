package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMetricsCollector_Business(t *testing.T) {
	m := NewMetricsCollector(prometheus.NewRegistry(), zap.NewNop())

	m.SlotMutation("add", "changed")
	m.SlotMutation("add", "changed")
	m.SlotMutation("add", "conflict")
	m.NutritionDay("planned", false)
	m.PriceLookup("stale")
	m.PriceRefresh("ok")
	m.ShoppingListBuilt(12, 3, true, 25*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.slotMutationsTotal.WithLabelValues("add", "changed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.slotMutationsTotal.WithLabelValues("add", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.nutritionDaysTotal.WithLabelValues("planned", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.priceLookupsTotal.WithLabelValues("stale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.shoppingListsTotal.WithLabelValues("true")))
}

func TestMetricsCollector_Handler(t *testing.T) {
	m := NewMetricsCollector(prometheus.NewRegistry(), zap.NewNop())
	m.PriceRefresh("failed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `nutriplan_price_refreshes_total{outcome="failed"} 1`))
}

func TestMetricsCollector_DBStatsAndRuntime(t *testing.T) {
	m := NewMetricsCollector(NewRegistry(), zap.NewNop())

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, m.RegisterDBStats(sqlDB, "nutriplan"))
	assert.Error(t, m.RegisterDBStats(sqlDB, "nutriplan"), "duplicate registration")

	m.CacheOperation("get", "hit")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	assert.Contains(t, body, `go_sql_open_connections{db_name="nutriplan"}`)
	assert.Contains(t, body, "go_goroutines")
	assert.Contains(t, body, `nutriplan_cache_operations_total{operation="get",status="hit"} 1`)
}
