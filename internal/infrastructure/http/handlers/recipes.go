package handlers

import (
	"net/http"

	"github.com/nutriplan/engine/internal/ports/inbound"
)

// CreateRecipe handles POST /recipes
func (h *APIHandlers) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	var cmd inbound.CreateRecipeCommand
	if err := decodeJSON(w, r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}

	dto, err := h.recipes.CreateRecipe(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", r.URL.Path+"/"+dto.ID.String()+"/nutrition")
	h.writeData(w, http.StatusCreated, dto)
}

// RecipeNutrition handles GET /recipes/{id}/nutrition[?strict=true]
func (h *APIHandlers) RecipeNutrition(w http.ResponseWriter, r *http.Request) {
	recipeID, err := uuidParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	strict, err := boolQuery(r, "strict")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	comp, err := h.recipes.RecipeNutrition(r.Context(), recipeID, strict)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeData(w, http.StatusOK, comp)
}
