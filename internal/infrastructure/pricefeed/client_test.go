package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nutriplan/engine/pkg/healthcheck"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/", time.Second, healthcheck.CircuitBreakerConfig{FailureThreshold: 2, Timeout: time.Minute}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestTriggerPriceRefresh(t *testing.T) {
	id := uuid.New()

	t.Run("ok", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/prices/"+id.String(), r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"amount":0.012,"currency":"usd","updated_at":"2024-05-10T08:00:00Z"}`))
		})

		price, err := c.TriggerPriceRefresh(context.Background(), id)

		require.NoError(t, err)
		require.NotNil(t, price)
		assert.InDelta(t, 0.012, price.Amount, 1e-12)
		assert.Equal(t, "USD", price.Currency)
		assert.Equal(t, time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC), price.UpdatedAt)
	})

	t.Run("unknown ingredient", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})

		price, err := c.TriggerPriceRefresh(context.Background(), id)

		require.NoError(t, err)
		assert.Nil(t, price)
	})

	t.Run("server error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream down", http.StatusBadGateway)
		})

		_, err := c.TriggerPriceRefresh(context.Background(), id)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("invalid price", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"amount":-1,"currency":"USD"}`))
		})

		_, err := c.TriggerPriceRefresh(context.Background(), id)

		assert.Error(t, err)
	})
}

func TestNewClient_RejectsBadEndpoint(t *testing.T) {
	_, err := NewClient("not a url", time.Second, healthcheck.DefaultCircuitBreakerConfig(), zap.NewNop())

	assert.Error(t, err)
}

func TestTriggerPriceRefresh_OpensCircuit(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.TriggerPriceRefresh(ctx, uuid.New())
		require.Error(t, err)
	}

	_, err := c.TriggerPriceRefresh(ctx, uuid.New())
	assert.ErrorIs(t, err, healthcheck.ErrCircuitOpen)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, healthcheck.StatusDegraded, c.Checker().Check(ctx).Status)
}

func TestTriggerPriceRefresh_NotFoundKeepsCircuitClosed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		price, err := c.TriggerPriceRefresh(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, price)
	}
	assert.Equal(t, healthcheck.StatusHealthy, c.Checker().Check(ctx).Status)
}
