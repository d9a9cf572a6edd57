package handlers

import (
	"net/http"

	"github.com/nutriplan/engine/internal/domain/nutrition"
	"github.com/nutriplan/engine/internal/ports/inbound"
)

// DailyNutrition handles GET /nutrition/daily/{date}
func (h *APIHandlers) DailyNutrition(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	date, err := dateParam(r, "date")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	daily, err := h.nutrition.DailyNutrition(r.Context(), userID, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, daily)
}

// NutritionRange handles GET /nutrition/range?start&end
func (h *APIHandlers) NutritionRange(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rng, err := rangeQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	days, err := h.nutrition.DailyRange(r.Context(), userID, rng)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, days)
}

// NutritionAverage handles GET /nutrition/average?start&end[&exclude_no_data]
func (h *APIHandlers) NutritionAverage(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rng, err := rangeQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var policy *nutrition.AveragePolicy
	if r.URL.Query().Has("exclude_no_data") {
		exclude, err := boolQuery(r, "exclude_no_data")
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		policy = &nutrition.AveragePolicy{ExcludeNoData: exclude}
	}

	avg, err := h.nutrition.WindowAverage(r.Context(), userID, rng.Days(), policy)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, avg)
}

// WeeklySummary handles GET /nutrition/weekly/{date}
func (h *APIHandlers) WeeklySummary(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	date, err := dateParam(r, "date")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	summary, err := h.nutrition.WeeklySummary(r.Context(), userID, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, summary)
}

// LogFood handles POST /food-logs
func (h *APIHandlers) LogFood(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var cmd inbound.LogFoodCommand
	if err := decodeJSON(w, r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}
	cmd.UserID = userID

	entry, err := h.foodLogs.LogFood(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusCreated, entry)
}

// DeleteFoodLog handles DELETE /food-logs/{id}
func (h *APIHandlers) DeleteFoodLog(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	entryID, err := uuidParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.foodLogs.DeleteLog(r.Context(), userID, entryID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
