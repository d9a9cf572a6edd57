// Package handlers provides HTTP handlers for the REST API
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nutriplan/engine/internal/domain/shared"
	"github.com/nutriplan/engine/internal/infrastructure/http/middleware"
	"github.com/nutriplan/engine/internal/ports/inbound"
	"github.com/nutriplan/engine/pkg/errors"
)

const maxBodyBytes = 1 << 20

// APIHandlers handles REST API requests
type APIHandlers struct {
	recipes   inbound.RecipeNutritionService
	plans     inbound.MealPlanService
	nutrition inbound.NutritionService
	foodLogs  inbound.FoodLogService
	shopping  inbound.ShoppingService
	pricing   inbound.PricingService
	logger    *zap.Logger
}

// Services groups the use cases the API exposes
type Services struct {
	Recipes   inbound.RecipeNutritionService
	MealPlans inbound.MealPlanService
	Nutrition inbound.NutritionService
	FoodLogs  inbound.FoodLogService
	Shopping  inbound.ShoppingService
	Pricing   inbound.PricingService
}

// NewAPIHandlers creates a new API handlers instance
func NewAPIHandlers(services Services, logger *zap.Logger) *APIHandlers {
	return &APIHandlers{
		recipes:   services.Recipes,
		plans:     services.MealPlans,
		nutrition: services.Nutrition,
		foodLogs:  services.FoodLogs,
		shopping:  services.Shopping,
		pricing:   services.Pricing,
		logger:    logger.Named("api"),
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Routes mounts every endpoint on r. Callers are expected to have run the
// identity middleware.
func (h *APIHandlers) Routes(r chi.Router) {
	r.Route("/recipes", func(r chi.Router) {
		r.Post("/", h.CreateRecipe)
		r.Get("/{id}/nutrition", h.RecipeNutrition)
	})

	r.Route("/meal-plans", func(r chi.Router) {
		r.Get("/", h.ListMealPlans)
		r.Route("/{date}", func(r chi.Router) {
			r.Get("/", h.GetMealPlan)
			r.Post("/", h.EnsureMealPlan)
			r.Route("/slots/{slot}", func(r chi.Router) {
				r.Put("/", h.SetSlot)
				r.Post("/recipes", h.AddToSlot)
				r.Put("/recipes/{recipeID}", h.ReplaceInSlot)
				r.Delete("/recipes/{recipeID}", h.RemoveFromSlot)
			})
		})
	})

	r.Route("/nutrition", func(r chi.Router) {
		r.Get("/daily/{date}", h.DailyNutrition)
		r.Get("/range", h.NutritionRange)
		r.Get("/average", h.NutritionAverage)
		r.Get("/weekly/{date}", h.WeeklySummary)
	})

	r.Post("/food-logs", h.LogFood)
	r.Delete("/food-logs/{id}", h.DeleteFoodLog)

	r.Get("/shopping-list", h.ShoppingList)
	r.Post("/shopping-list/summary", h.ShoppingSummary)

	r.Get("/prices/{ingredientID}", h.GetPrice)
	r.Get("/pricing/policy", h.GetPricingPolicy)
	r.Put("/pricing/policy", h.UpdatePricingPolicy)
}

// writeJSON writes a JSON response
func (h *APIHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

func (h *APIHandlers) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, APIResponse{Success: true, Data: data})
}

// writeError renders err as an ErrorResponse. Errors that are not AppErrors
// are logged and reported as internal errors.
func (h *APIHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := errors.Wrap(err, "An unexpected error occurred")
	requestID := chimiddleware.GetReqID(r.Context())

	if appErr.StatusCode() >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("request_id", requestID),
			zap.String("code", string(appErr.Code)),
			zap.Error(err),
		)
	}

	h.writeJSON(w, appErr.StatusCode(), errors.ToErrorResponse(appErr, requestID))
}

// decodeJSON reads a single JSON document into dst, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case stderrors.Is(err, io.EOF):
			return errors.NewBadRequestError("Request body is empty")
		case stderrors.As(err, &maxErr):
			return errors.NewBadRequestError("Request body too large")
		default:
			return errors.NewBadRequestError("Malformed JSON body").WithCause(err)
		}
	}
	if dec.More() {
		return errors.NewBadRequestError("Request body must contain a single JSON document")
	}
	return nil
}

func callerID(r *http.Request) (uuid.UUID, error) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, errors.NewAppError(errors.CodeUnauthorized, "Missing caller identity", "")
	}
	return userID, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errors.NewBadRequestError("Invalid " + name)
	}
	return id, nil
}

func dateParam(r *http.Request, name string) (shared.Date, error) {
	d, err := shared.ParseDate(chi.URLParam(r, name))
	if err != nil {
		return shared.Date{}, errors.NewBadRequestError("Invalid " + name + ", expected YYYY-MM-DD")
	}
	return d, nil
}

// rangeQuery reads the inclusive start/end query parameters
func rangeQuery(r *http.Request) (shared.DateRange, error) {
	q := r.URL.Query()
	start, end := q.Get("start"), q.Get("end")
	if start == "" || end == "" {
		return shared.DateRange{}, errors.NewBadRequestError("start and end are required")
	}
	rng, err := shared.ParseDateRange(start, end)
	if err != nil {
		return shared.DateRange{}, errors.NewValidationError(err.Error())
	}
	return rng, nil
}

func boolQuery(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.NewBadRequestError("Invalid " + name)
	}
	return v, nil
}

// expectedVersion parses If-Match. Both quoted ETag and bare integer forms
// are accepted; an absent header means an unconditional write.
func expectedVersion(r *http.Request) (*int, error) {
	raw := strings.TrimSpace(r.Header.Get("If-Match"))
	if raw == "" || raw == "*" {
		return nil, nil
	}
	raw = strings.TrimPrefix(raw, "W/")
	raw = strings.Trim(raw, `"`)
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return nil, errors.NewBadRequestError("Invalid If-Match version")
	}
	return &v, nil
}

func etag(version int) string {
	return `"` + strconv.Itoa(version) + `"`
}
