// Package pricefeed fetches current ingredient prices from an external
// HTTP price feed
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/nutriplan/engine/internal/domain/ingredient"
	"github.com/nutriplan/engine/internal/ports/outbound"
	"github.com/nutriplan/engine/pkg/healthcheck"
)

// maxBodyBytes caps how much of a feed response is read
const maxBodyBytes = 64 << 10

// Client implements outbound.PriceRefresher against GET {base}/prices/{id}
type Client struct {
	baseURL string
	client  *http.Client
	breaker *healthcheck.CircuitBreaker
	logger  *zap.Logger
}

// NewClient creates a feed client. Requests are traced through otelhttp and
// guarded by a circuit breaker built from breakerCfg.
func NewClient(baseURL string, timeout time.Duration, breakerCfg healthcheck.CircuitBreakerConfig, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid price feed endpoint %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	log := logger.Named("price-feed")
	breakerCfg.OnStateChange = func(name string, from, to healthcheck.CircuitBreakerState) {
		log.Warn("Price feed circuit state changed",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	}

	log.Info("Price feed client initialized",
		zap.String("base_url", baseURL),
		zap.Duration("timeout", timeout))

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: healthcheck.NewCircuitBreaker("price-feed", breakerCfg),
		logger:  log,
	}, nil
}

// Checker reports the breaker state for the admin health endpoint
func (c *Client) Checker() healthcheck.Checker {
	return c.breaker.Checker()
}

var _ outbound.PriceRefresher = (*Client)(nil)

// feedPrice is the feed's response body
type feedPrice struct {
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TriggerPriceRefresh fetches the current price. It returns nil, nil when
// the feed does not know the ingredient. While the breaker is open calls fail
// fast with healthcheck.ErrCircuitOpen.
func (c *Client) TriggerPriceRefresh(ctx context.Context, ingredientID uuid.UUID) (*ingredient.Price, error) {
	var price *ingredient.Price
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		price, err = c.fetch(ctx, ingredientID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return price, nil
}

func (c *Client) fetch(ctx context.Context, ingredientID uuid.UUID) (*ingredient.Price, error) {
	endpoint := c.baseURL + "/prices/" + ingredientID.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price feed request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("price feed error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var fp feedPrice
	if err := json.Unmarshal(body, &fp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	price := ingredient.Price{
		Amount:    fp.Amount,
		Currency:  strings.ToUpper(fp.Currency),
		UpdatedAt: fp.UpdatedAt.UTC(),
	}
	if err := price.Validate(); err != nil {
		return nil, fmt.Errorf("price feed returned invalid price: %w", err)
	}

	c.logger.Debug("Price fetched",
		zap.String("ingredient_id", ingredientID.String()),
		zap.Float64("amount", price.Amount),
		zap.String("currency", price.Currency))
	return &price, nil
}
