package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/nutriplan/engine/internal/domain/pricing"
	"github.com/nutriplan/engine/pkg/errors"
)

// PolicyDTO is the JSON view of the staleness policy. Durations use Go
// duration syntax such as "168h".
type PolicyDTO struct {
	FreshFor         string  `json:"fresh_for"`
	ExpireAfter      string  `json:"expire_after"`
	DefaultUnitPrice float64 `json:"default_unit_price"`
	DefaultCurrency  string  `json:"default_currency"`
	UseStalePrices   bool    `json:"use_stale_prices"`
}

// ToPolicyDTO converts a policy for rendering
func ToPolicyDTO(p pricing.Policy) PolicyDTO {
	return PolicyDTO{
		FreshFor:         p.FreshFor.String(),
		ExpireAfter:      p.ExpireAfter.String(),
		DefaultUnitPrice: p.DefaultUnitPrice,
		DefaultCurrency:  p.DefaultCurrency,
		UseStalePrices:   p.UseStalePrices,
	}
}

// Policy parses the DTO. An empty expire_after disables expiry.
func (d PolicyDTO) Policy() (pricing.Policy, error) {
	freshFor, err := time.ParseDuration(d.FreshFor)
	if err != nil {
		return pricing.Policy{}, errors.NewValidationError("fresh_for: " + err.Error())
	}
	var expireAfter time.Duration
	if d.ExpireAfter != "" {
		expireAfter, err = time.ParseDuration(d.ExpireAfter)
		if err != nil {
			return pricing.Policy{}, errors.NewValidationError("expire_after: " + err.Error())
		}
	}
	return pricing.Policy{
		FreshFor:         freshFor,
		ExpireAfter:      expireAfter,
		DefaultUnitPrice: d.DefaultUnitPrice,
		DefaultCurrency:  d.DefaultCurrency,
		UseStalePrices:   d.UseStalePrices,
	}, nil
}

// GetPrice handles GET /prices/{ingredientID}
func (h *APIHandlers) GetPrice(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "ingredientID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	info, err := h.pricing.GetPriceInfo(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, info)
}

// GetPricingPolicy handles GET /pricing/policy
func (h *APIHandlers) GetPricingPolicy(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, ToPolicyDTO(h.pricing.Policy()))
}

// UpdatePricingPolicy handles PUT /pricing/policy. The change lasts until the
// next config reload.
func (h *APIHandlers) UpdatePricingPolicy(w http.ResponseWriter, r *http.Request) {
	var dto PolicyDTO
	if err := decodeJSON(w, r, &dto); err != nil {
		h.writeError(w, r, err)
		return
	}
	policy, err := dto.Policy()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.pricing.UpdatePolicy(policy); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("Pricing policy updated",
		zap.String("fresh_for", dto.FreshFor),
		zap.String("expire_after", dto.ExpireAfter),
		zap.Bool("use_stale_prices", dto.UseStalePrices),
	)
	h.writeData(w, http.StatusOK, ToPolicyDTO(h.pricing.Policy()))
}
