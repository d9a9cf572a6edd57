package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nutriplan/engine/internal/domain/mealplan"
	"github.com/nutriplan/engine/internal/ports/inbound"
	"github.com/nutriplan/engine/pkg/errors"
)

// SetSlotRequest replaces a slot's recipe list
type SetSlotRequest struct {
	RecipeIDs []uuid.UUID `json:"recipe_ids"`
}

// AddToSlotRequest appends one recipe
type AddToSlotRequest struct {
	RecipeID uuid.UUID `json:"recipe_id"`
}

// ReplaceInSlotRequest names the recipe that takes the old one's place
type ReplaceInSlotRequest struct {
	RecipeID uuid.UUID `json:"recipe_id"`
}

// ListMealPlans handles GET /meal-plans?start&end
func (h *APIHandlers) ListMealPlans(w http.ResponseWriter, r *http.Request) {
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

	plans, err := h.plans.ListPlans(r.Context(), userID, rng)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, plans)
}

// GetMealPlan handles GET /meal-plans/{date}
func (h *APIHandlers) GetMealPlan(w http.ResponseWriter, r *http.Request) {
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

	plan, err := h.plans.GetPlan(r.Context(), userID, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", etag(plan.Version))
	h.writeData(w, http.StatusOK, plan)
}

// EnsureMealPlan handles POST /meal-plans/{date}. It is idempotent.
func (h *APIHandlers) EnsureMealPlan(w http.ResponseWriter, r *http.Request) {
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

	plan, err := h.plans.Ensure(r.Context(), userID, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", etag(plan.Version))
	h.writeData(w, http.StatusOK, plan)
}

// SetSlot handles PUT /meal-plans/{date}/slots/{slot}
func (h *APIHandlers) SetSlot(w http.ResponseWriter, r *http.Request) {
	target, err := slotTarget(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req SetSlotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.RecipeIDs == nil {
		req.RecipeIDs = []uuid.UUID{}
	}

	res, err := h.plans.SetSlot(r.Context(), inbound.SetSlotCommand{SlotTarget: target, RecipeIDs: req.RecipeIDs})
	h.writeMutation(w, r, res, err)
}

// AddToSlot handles POST /meal-plans/{date}/slots/{slot}/recipes
func (h *APIHandlers) AddToSlot(w http.ResponseWriter, r *http.Request) {
	target, err := slotTarget(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req AddToSlotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.plans.AddToSlot(r.Context(), inbound.SlotRecipeCommand{SlotTarget: target, RecipeID: req.RecipeID})
	h.writeMutation(w, r, res, err)
}

// RemoveFromSlot handles DELETE /meal-plans/{date}/slots/{slot}/recipes/{recipeID}
func (h *APIHandlers) RemoveFromSlot(w http.ResponseWriter, r *http.Request) {
	target, err := slotTarget(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	recipeID, err := uuidParam(r, "recipeID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.plans.RemoveFromSlot(r.Context(), inbound.SlotRecipeCommand{SlotTarget: target, RecipeID: recipeID})
	h.writeMutation(w, r, res, err)
}

// ReplaceInSlot handles PUT /meal-plans/{date}/slots/{slot}/recipes/{recipeID}
func (h *APIHandlers) ReplaceInSlot(w http.ResponseWriter, r *http.Request) {
	target, err := slotTarget(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	oldID, err := uuidParam(r, "recipeID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req ReplaceInSlotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.plans.ReplaceInSlot(r.Context(), inbound.ReplaceInSlotCommand{
		SlotTarget:  target,
		OldRecipeID: oldID,
		NewRecipeID: req.RecipeID,
	})
	h.writeMutation(w, r, res, err)
}

func (h *APIHandlers) writeMutation(w http.ResponseWriter, r *http.Request, res *inbound.SlotMutationResult, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", etag(res.Plan.Version))
	h.writeData(w, http.StatusOK, res)
}

func slotTarget(r *http.Request) (inbound.SlotTarget, error) {
	userID, err := callerID(r)
	if err != nil {
		return inbound.SlotTarget{}, err
	}
	date, err := dateParam(r, "date")
	if err != nil {
		return inbound.SlotTarget{}, err
	}
	slot, err := mealplan.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		return inbound.SlotTarget{}, errors.NewBadRequestError(err.Error())
	}
	version, err := expectedVersion(r)
	if err != nil {
		return inbound.SlotTarget{}, err
	}
	return inbound.SlotTarget{UserID: userID, Date: date, Slot: slot, ExpectedVersion: version}, nil
}
