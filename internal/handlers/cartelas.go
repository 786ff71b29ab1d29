package handlers

import (
	"log"
	"net/http"

	"github.com/aradabingo/bingomaster/internal/game"
	"github.com/aradabingo/bingomaster/internal/services"
)

// CartelaHandler serves the live cartela board. Listings come from the
// in-memory registry so terminals see bookings immediately; shop metadata
// comes from postgres.
type CartelaHandler struct {
	registry       *game.Registry
	cartelaService services.CartelaServiceInterface
}

func NewCartelaHandler(registry *game.Registry, cartelaService services.CartelaServiceInterface) *CartelaHandler {
	return &CartelaHandler{registry: registry, cartelaService: cartelaService}
}

func (h *CartelaHandler) ListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.cartelaService.ListShops(r.Context())
	if err != nil {
		log.Printf("Error listing shops: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, shops)
}

// ListByShop returns the shop's cartelas with their current booking state.
// The optional booked query parameter filters to booked or free cards.
func (h *CartelaHandler) ListByShop(w http.ResponseWriter, r *http.Request) {
	shopID, ok := shopIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid shop ID")
		return
	}
	if !h.registry.HasShop(shopID) {
		writeError(w, http.StatusNotFound, "Shop not found")
		return
	}

	var booked *bool
	switch r.URL.Query().Get("booked") {
	case "":
	case "true":
		v := true
		booked = &v
	case "false":
		v := false
		booked = &v
	default:
		writeError(w, http.StatusBadRequest, "Invalid booked filter")
		return
	}

	writeJSON(w, http.StatusOK, h.registry.ListByShop(shopID, booked))
}
