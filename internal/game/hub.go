package game

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/aradabingo/bingomaster/internal/logging"
	"github.com/aradabingo/bingomaster/internal/models"
)

// RoundArchiver receives the final snapshot of every finished round. A
// failed write is logged and dropped here; durable retry belongs to the
// archiver, not to the live engine.
type RoundArchiver interface {
	PersistRound(ctx context.Context, snap models.RoundSnapshot) error
}

const archiveTimeout = 10 * time.Second

// Hub is the process-wide authority mapping each shop to at most one open
// round. Its lock guards only the map; commands run under the session's own
// lock so one shop's round never delays another's.
type Hub struct {
	mu       sync.RWMutex
	sessions map[int64]*Session

	registry    *Registry
	broadcaster *Broadcaster
	archiver    RoundArchiver
	patterns    []WinPattern
	logger      *logging.Logger

	// newRNG builds the per-round draw source; swapped in tests for
	// deterministic sequences.
	newRNG func() *rand.Rand
	now    func() time.Time
}

func NewHub(registry *Registry, broadcaster *Broadcaster, archiver RoundArchiver, patterns []WinPattern, logger *logging.Logger) *Hub {
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}
	if logger == nil {
		logger = logging.Default
	}
	return &Hub{
		sessions:    make(map[int64]*Session),
		registry:    registry,
		broadcaster: broadcaster,
		archiver:    archiver,
		patterns:    patterns,
		logger:      logger,
		newRNG: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		now: time.Now,
	}
}

// Create opens a new pending round for the shop. A finished round that was
// not yet removed is replaced; an open one fails the call.
func (h *Hub) Create(shopID int64) (*Session, error) {
	if !h.registry.HasShop(shopID) {
		return nil, ErrShopNotFound
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.sessions[shopID]; ok {
		if existing.Status() != models.RoundFinished {
			return nil, ErrRoundAlreadyActive
		}
	}

	s := newSession(shopID, h.registry, h.broadcaster, h.patterns, h.newRNG(), h.finishHook(shopID), h.now)
	h.sessions[shopID] = s
	h.logger.Info("round created", map[string]interface{}{
		"shop_id":  shopID,
		"round_id": s.ID().String(),
	})
	return s, nil
}

// Get returns the shop's open round.
func (h *Hub) Get(shopID int64) (*Session, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s, ok := h.sessions[shopID]
	if !ok || s.Status() == models.RoundFinished {
		return nil, ErrNoActiveRound
	}
	return s, nil
}

// Remove drops a finished round from the hub once the dashboard has
// acknowledged it.
func (h *Hub) Remove(shopID int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[shopID]
	if !ok {
		return ErrNoActiveRound
	}
	if s.Status() != models.RoundFinished {
		return ErrRoundNotFinished
	}
	delete(h.sessions, shopID)
	return nil
}

// Attach subscribes a connection to the shop's feed. With no open round the
// subscriber still gets a snapshot, marked idle, so reconnecting displays
// render a sane state.
func (h *Hub) Attach(shopID int64, connID string) <-chan models.Event {
	h.mu.RLock()
	s, ok := h.sessions[shopID]
	h.mu.RUnlock()

	if ok {
		return s.Attach(connID)
	}

	ch := h.broadcaster.Subscribe(shopID, connID)
	h.broadcaster.SendTo(shopID, connID, models.Event{
		Type:   models.EventSnapshot,
		ShopID: shopID,
		Payload: models.SnapshotPayload{
			Status:           models.RoundIdle,
			DrawnNumbers:     []int{},
			BookedCartelaIDs: h.registry.BookedIDs(shopID),
		},
	})
	return ch
}

// Detach removes a connection from the shop's feed.
func (h *Hub) Detach(shopID int64, connID string) {
	h.broadcaster.Unsubscribe(shopID, connID)
}

// Start, Pause, DrawNext, VerifyWin, End, Book and Unbook resolve the
// shop's open round and forward the command to it.

func (h *Hub) Start(shopID int64) error {
	s, err := h.Get(shopID)
	if err != nil {
		return err
	}
	return s.Start()
}

func (h *Hub) Pause(shopID int64) error {
	s, err := h.Get(shopID)
	if err != nil {
		return err
	}
	return s.Pause()
}

func (h *Hub) DrawNext(shopID int64) (int, int, error) {
	s, err := h.Get(shopID)
	if err != nil {
		return 0, 0, err
	}
	return s.DrawNext()
}

func (h *Hub) VerifyWin(shopID int64, cartelaID int) (VerifyResult, error) {
	s, err := h.Get(shopID)
	if err != nil {
		return VerifyResult{}, err
	}
	return s.VerifyWin(cartelaID)
}

func (h *Hub) End(shopID int64, reason string) error {
	s, err := h.Get(shopID)
	if err != nil {
		return err
	}
	return s.End(reason)
}

func (h *Hub) Book(shopID int64, cartelaID int, actorID string) error {
	s, err := h.Get(shopID)
	if err != nil {
		return err
	}
	return s.Book(cartelaID, actorID)
}

func (h *Hub) Unbook(shopID int64, cartelaID int, actorID string, supervisor bool) error {
	s, err := h.Get(shopID)
	if err != nil {
		return err
	}
	return s.Unbook(cartelaID, actorID, supervisor)
}

func (h *Hub) finishHook(shopID int64) func(models.RoundSnapshot) {
	return func(snap models.RoundSnapshot) {
		h.logger.Info("round finished", map[string]interface{}{
			"shop_id":  shopID,
			"round_id": snap.RoundID.String(),
			"reason":   snap.EndReason,
			"drawn":    len(snap.DrawnNumbers),
		})
		if h.archiver == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := h.archiver.PersistRound(ctx, snap); err != nil {
			h.logger.Error("failed to archive round", map[string]interface{}{
				"shop_id":  shopID,
				"round_id": snap.RoundID.String(),
				"error":    err.Error(),
			})
		}
	}
}
