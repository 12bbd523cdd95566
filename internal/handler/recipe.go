package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/kitchin/internal/auth"
	"github.com/dukerupert/kitchin/internal/kitchen"
	"github.com/dukerupert/kitchin/internal/model"
)

type RecipeHandler struct {
	recipes *kitchen.Recipes
	logger  *slog.Logger
}

func NewRecipeHandler(k *kitchen.Kitchen, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{recipes: k.Recipes, logger: logger}
}

// Create handles POST /api/households/{id}/recipes
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.RecipeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	recipe, err := h.recipes.Add(r.Context(), auth.AccountID(r.Context()), r.PathValue("id"), in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, recipe)
}

// Update handles PATCH /api/households/{id}/recipes/{item}
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.RecipePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	recipe, err := h.recipes.Update(r.Context(), auth.AccountID(r.Context()), r.PathValue("id"), r.PathValue("item"), patch)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// Delete handles DELETE /api/households/{id}/recipes/{item}
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.recipes.Remove(r.Context(), auth.AccountID(r.Context()), r.PathValue("id"), r.PathValue("item")); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
