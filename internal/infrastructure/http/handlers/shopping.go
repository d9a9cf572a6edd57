package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/nutriplan/engine/internal/domain/shopping"
	"github.com/nutriplan/engine/internal/ports/inbound"
	"github.com/nutriplan/engine/pkg/errors"
)

// SummaryRequest carries a previously built list and the ids the caller has
// already checked off.
type SummaryRequest struct {
	Items   []shopping.Item `json:"items"`
	Checked []uuid.UUID     `json:"checked"`
}

// ShoppingList handles GET /shopping-list?start&end&servings&mode
func (h *APIHandlers) ShoppingList(w http.ResponseWriter, r *http.Request) {
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

	q := inbound.BuildListQuery{
		UserID: userID,
		Range:  rng,
		Mode:   r.URL.Query().Get("mode"),
	}
	if raw := r.URL.Query().Get("servings"); raw != "" {
		servings, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, r, errors.NewBadRequestError("Invalid servings"))
			return
		}
		q.Servings = servings
	}

	list, err := h.shopping.BuildList(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, list)
}

// ShoppingSummary handles POST /shopping-list/summary
func (h *APIHandlers) ShoppingSummary(w http.ResponseWriter, r *http.Request) {
	var req SummaryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	checked := make(map[uuid.UUID]bool, len(req.Checked))
	for _, id := range req.Checked {
		checked[id] = true
	}
	h.writeData(w, http.StatusOK, h.shopping.Summarize(req.Items, checked))
}
