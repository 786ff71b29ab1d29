package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/aradabingo/bingomaster/internal/game"
	"github.com/aradabingo/bingomaster/internal/middleware"
	"github.com/aradabingo/bingomaster/internal/models"
	"github.com/aradabingo/bingomaster/internal/services"
)

// RoundHandler exposes round control over REST. Every mutation goes through
// the hub; the websocket feed carries the resulting events to every terminal.
type RoundHandler struct {
	hub          *game.Hub
	roundService services.RoundServiceInterface
}

func NewRoundHandler(hub *game.Hub, roundService services.RoundServiceInterface) *RoundHandler {
	return &RoundHandler{hub: hub, roundService: roundService}
}

type CreateRoundRequest struct {
	ShopID int64 `json:"shop_id"`
}

type CreateRoundResponse struct {
	RoundID string             `json:"round_id"`
	ShopID  int64              `json:"shop_id"`
	Status  models.RoundStatus `json:"status"`
}

type CartelaRequest struct {
	CartelaID int `json:"cartela_id"`
}

type DrawResponse struct {
	Number     int    `json:"number"`
	Call       string `json:"call"`
	DrawnCount int    `json:"drawn_count"`
}

type EndRoundRequest struct {
	Reason string `json:"reason"`
}

func (h *RoundHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ShopID <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid shop ID")
		return
	}
	if !h.authorizeShop(w, r, req.ShopID) {
		return
	}

	s, err := h.hub.Create(req.ShopID)
	if err != nil {
		h.writeGameError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateRoundResponse{
		RoundID: s.ID().String(),
		ShopID:  req.ShopID,
		Status:  s.Status(),
	})
}

// Current returns the open round's snapshot.
func (h *RoundHandler) Current(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopFromRequest(w, r)
	if !ok {
		return
	}

	s, err := h.hub.Get(shopID)
	if err != nil {
		h.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// History lists recently archived rounds for the shop.
func (h *RoundHandler) History(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopFromRequest(w, r)
	if !ok {
		return
	}

	snaps, err := h.roundService.RecentByShop(r.Context(), shopID, 0)
	if err != nil {
		log.Printf("Error listing round history for shop %d: %v", shopID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if snaps == nil {
		snaps = []models.RoundSnapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (h *RoundHandler) Start(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopFromRequest(w, r)
	if !ok {
		return
	}
	if err := h.hub.Start(shopID); err != nil {
		h.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Round started"})
}

func (h *RoundHandler) Pause(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopFromRequest(w, r)
	if !ok {
		return
	}
	if err := h.hub.Pause(shopID); err != nil {
		h.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Round paused"})
}

func (h *RoundHandler) Draw(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopFromRequest(w, r)
	if !ok {
		return
	}

	n, count, err := h.hub.DrawNext(shopID)
	if err != nil {
		h.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DrawResponse{
		Number:     n,
		Call:       models.Call(n),
		DrawnCount: count,
	})
}

func (h *RoundHandler) Verify(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopFromRequest(w, r)
	if !ok {
		return
	}

	var req CartelaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.hub.VerifyWin(shopID, req.CartelaID)
	if err != nil {
		h.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *RoundHandler) End(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopFromRequest(w, r)
	if !ok {
		return
	}

	var req EndRoundRequest
	if r.Body != nil {
		// Body is optional; a bare end defaults to manual.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Reason == "" {
		req.Reason = "manual"
	}

	if err := h.hub.End(shopID, req.Reason); err != nil {
		h.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Round ended"})
}

func (h *RoundHandler) Remove(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopFromRequest(w, r)
	if !ok {
		return
	}
	if err := h.hub.Remove(shopID); err != nil {
		h.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Round removed"})
}

func (h *RoundHandler) Book(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopFromRequest(w, r)
	if !ok {
		return
	}
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CartelaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.hub.Book(shopID, req.CartelaID, actor.Username); err != nil {
		h.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Cartela booked"})
}

func (h *RoundHandler) Unbook(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopFromRequest(w, r)
	if !ok {
		return
	}
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CartelaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.hub.Unbook(shopID, req.CartelaID, actor.Username, actor.IsSupervisor()); err != nil {
		h.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Cartela unbooked"})
}

// shopFromRequest parses the shop path value and enforces that a
// shop-scoped actor only touches its own shop.
func (h *RoundHandler) shopFromRequest(w http.ResponseWriter, r *http.Request) (int64, bool) {
	shopID, ok := shopIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid shop ID")
		return 0, false
	}
	if !h.authorizeShop(w, r, shopID) {
		return 0, false
	}
	return shopID, true
}

func (h *RoundHandler) authorizeShop(w http.ResponseWriter, r *http.Request, shopID int64) bool {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return false
	}
	if !actor.IsSupervisor() && actor.ShopID != shopID {
		writeError(w, http.StatusForbidden, "Shop access denied")
		return false
	}
	return true
}

func (h *RoundHandler) writeGameError(w http.ResponseWriter, err error) {
	var alreadyBooked *game.AlreadyBookedError
	switch {
	case errors.As(err, &alreadyBooked):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      "Cartela already booked",
			"cartela_id": alreadyBooked.CartelaID,
			"owner":      alreadyBooked.Owner,
		})
	case errors.Is(err, game.ErrShopNotFound),
		errors.Is(err, game.ErrNoActiveRound),
		errors.Is(err, game.ErrCartelaNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrRoundAlreadyActive),
		errors.Is(err, game.ErrInvalidTransition),
		errors.Is(err, game.ErrRoundClosed),
		errors.Is(err, game.ErrRoundNotFinished),
		errors.Is(err, game.ErrCartelaBlocked):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrNotOwner):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		log.Printf("Unexpected round error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
