package ws

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/aradabingo/bingomaster/internal/game"
	"github.com/aradabingo/bingomaster/internal/logging"
	"github.com/aradabingo/bingomaster/internal/middleware"
	"github.com/aradabingo/bingomaster/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Terminals are served from the same deployment; origin checks happen at
	// the proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades GET /ws?shopId=N&token=... to a live shop feed. The first
// frame is always a snapshot.
type Handler struct {
	hub    *game.Hub
	auth   middleware.TokenValidator
	logger *logging.Logger
}

func NewHandler(hub *game.Hub, auth middleware.TokenValidator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default
	}
	return &Handler{hub: hub, auth: auth, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	shopID, err := strconv.ParseInt(r.URL.Query().Get("shopId"), 10, 64)
	if err != nil || shopID <= 0 {
		http.Error(w, "invalid shopId", http.StatusBadRequest)
		return
	}

	token := middleware.TokenFromRequest(r)
	if token == "" {
		http.Error(w, "missing session token", http.StatusUnauthorized)
		return
	}
	actor, err := h.auth.Validate(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid or expired session", http.StatusUnauthorized)
		return
	}
	if !actor.IsSupervisor() && actor.ShopID != shopID {
		http.Error(w, "shop access denied", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", map[string]interface{}{
			"shop_id": shopID,
			"error":   err.Error(),
		})
		return
	}

	connID := uuid.NewString()
	c := &client{
		conn:   conn,
		hub:    h.hub,
		logger: h.logger,
		shopID: shopID,
		connID: connID,
		actor:  actor,
		events: h.hub.Attach(shopID, connID),
		direct: make(chan models.Event, 8),
	}

	h.logger.Info("terminal connected", map[string]interface{}{
		"shop_id": shopID,
		"conn_id": connID,
		"actor":   actor.Username,
	})

	go c.writeLoop()
	go c.readLoop()
}
