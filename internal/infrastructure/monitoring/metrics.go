package monitoring

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nutriplan/engine/internal/ports/outbound"
)

const namespace = "nutriplan"

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors. HTTP metrics are registered by the middleware package.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
	)
	return reg
}

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	logger     *zap.Logger
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer

	// Business metrics
	slotMutationsTotal    *prometheus.CounterVec
	nutritionDaysTotal    *prometheus.CounterVec
	shoppingListsTotal    *prometheus.CounterVec
	shoppingListItems     prometheus.Histogram
	shoppingListDuration  prometheus.Histogram
	shoppingListEstimates prometheus.Histogram
	priceLookupsTotal     *prometheus.CounterVec
	priceRefreshesTotal   *prometheus.CounterVec

	// System metrics
	cacheOperations *prometheus.CounterVec
}

var _ outbound.EngineMetrics = (*MetricsCollector)(nil)

// NewMetricsCollector registers the engine's metrics on reg
func NewMetricsCollector(reg *prometheus.Registry, logger *zap.Logger) *MetricsCollector {
	factory := promauto.With(reg)

	return &MetricsCollector{
		logger:     logger.Named("metrics"),
		registerer: reg,
		gatherer:   reg,

		slotMutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "slot_mutations_total",
				Help:      "Meal slot mutations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		nutritionDaysTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nutrition_days_total",
				Help:      "Daily nutrition figures computed, by source",
			},
			[]string{"source", "incomplete"},
		),
		shoppingListsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "shopping_lists_total",
				Help:      "Shopping lists built",
			},
			[]string{"incomplete"},
		),
		shoppingListItems: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "shopping_list_items",
				Help:      "Number of items per shopping list",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
			},
		),
		shoppingListEstimates: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "shopping_list_estimated_items",
				Help:      "Number of estimated prices per shopping list",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
			},
		),
		shoppingListDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "shopping_list_duration_seconds",
				Help:      "Time to build a shopping list",
				Buckets:   prometheus.DefBuckets,
			},
		),
		priceLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "price_lookups_total",
				Help:      "Price lookups by freshness class",
			},
			[]string{"freshness"},
		),
		priceRefreshesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "price_refreshes_total",
				Help:      "Price refresh attempts by outcome",
			},
			[]string{"outcome"},
		),
		cacheOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_operations_total",
				Help:      "Price cache operations",
			},
			[]string{"operation", "status"},
		),
	}
}

// Business metric methods
func (m *MetricsCollector) SlotMutation(op, outcome string) {
	m.slotMutationsTotal.WithLabelValues(op, outcome).Inc()
}

func (m *MetricsCollector) NutritionDay(source string, incomplete bool) {
	m.nutritionDaysTotal.WithLabelValues(source, strconv.FormatBool(incomplete)).Inc()
}

func (m *MetricsCollector) ShoppingListBuilt(items, estimates int, incomplete bool, duration time.Duration) {
	m.shoppingListsTotal.WithLabelValues(strconv.FormatBool(incomplete)).Inc()
	m.shoppingListItems.Observe(float64(items))
	m.shoppingListEstimates.Observe(float64(estimates))
	m.shoppingListDuration.Observe(duration.Seconds())
}

func (m *MetricsCollector) PriceLookup(freshness string) {
	m.priceLookupsTotal.WithLabelValues(freshness).Inc()
}

func (m *MetricsCollector) PriceRefresh(outcome string) {
	m.priceRefreshesTotal.WithLabelValues(outcome).Inc()
}

// System metric methods
func (m *MetricsCollector) CacheOperation(operation, status string) {
	m.cacheOperations.WithLabelValues(operation, status).Inc()
}

// RegisterDBStats exports database/sql pool statistics labelled with dbName
func (m *MetricsCollector) RegisterDBStats(db *sql.DB, dbName string) error {
	if err := m.registerer.Register(collectors.NewDBStatsCollector(db, dbName)); err != nil {
		return fmt.Errorf("failed to register db stats collector: %w", err)
	}
	m.logger.Debug("Database pool metrics registered", zap.String("db", dbName))
	return nil
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
