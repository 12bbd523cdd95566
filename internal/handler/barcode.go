package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/kitchin/internal/apperr"
	"github.com/dukerupert/kitchin/internal/foodfacts"
	"github.com/dukerupert/kitchin/internal/model"
)

type BarcodeHandler struct {
	client *foodfacts.Client
	logger *slog.Logger
}

func NewBarcodeHandler(client *foodfacts.Client, logger *slog.Logger) *BarcodeHandler {
	return &BarcodeHandler{client: client, logger: logger}
}

type barcodeResponse struct {
	Product *foodfacts.Product `json:"product"`
	Food    model.FoodInput    `json:"food"`
}

// Lookup handles GET /api/barcodes/{barcode}. The response carries both the
// raw product and a FoodInput ready to post to a kitchen zone.
func (h *BarcodeHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	p, err := h.client.Lookup(r.Context(), r.PathValue("barcode"))
	switch {
	case errors.Is(err, foodfacts.ErrInvalidBarcode):
		writeError(w, h.logger, r, apperr.New(apperr.ValidationError, "barcode must be 8 to 14 digits"))
		return
	case errors.Is(err, foodfacts.ErrNotFound):
		writeError(w, h.logger, r, apperr.New(apperr.NotFound, "product not found"))
		return
	case err != nil:
		h.logger.Warn("food facts lookup", "barcode", r.PathValue("barcode"), "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "product lookup failed", Kind: apperr.Internal})
		return
	}
	writeJSON(w, http.StatusOK, barcodeResponse{Product: p, Food: p.FoodInput()})
}
