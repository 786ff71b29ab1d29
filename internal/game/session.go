package game

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aradabingo/bingomaster/internal/models"
)

// Session is the state machine for one bingo round of one shop:
// pending -> active <-> paused -> finished. Every command takes the session
// mutex, so commands for a shop are effectively serial; across shops,
// sessions run independently.
type Session struct {
	mu sync.Mutex

	id     uuid.UUID
	shopID int64
	status models.RoundStatus

	drawn    []int
	drawnSet map[int]bool
	pool     []int
	rng      *rand.Rand

	winnerCartelaID *int
	winnerActorID   string
	endReason       string

	startedAt    *time.Time
	endedAt      *time.Time
	lastActivity time.Time

	registry    *Registry
	broadcaster *Broadcaster
	patterns    []WinPattern

	// onFinish receives the final snapshot exactly once, when the session
	// reaches finished. It runs on its own goroutine: archiving is a
	// durability concern and must never hold up the live round.
	onFinish func(models.RoundSnapshot)
	now      func() time.Time
}

// VerifyResult is the outcome of a win claim.
type VerifyResult struct {
	Winner    bool   `json:"winner"`
	CartelaID int    `json:"cartela_id"`
	ActorID   string `json:"actor_id,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

func newSession(shopID int64, registry *Registry, broadcaster *Broadcaster, patterns []WinPattern, rng *rand.Rand, onFinish func(models.RoundSnapshot), now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{
		id:           uuid.New(),
		shopID:       shopID,
		status:       models.RoundPending,
		drawnSet:     make(map[int]bool, models.MaxNumber),
		pool:         NewPool(),
		rng:          rng,
		registry:     registry,
		broadcaster:  broadcaster,
		patterns:     patterns,
		onFinish:     onFinish,
		now:          now,
		lastActivity: now(),
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) ShopID() int64 { return s.shopID }

func (s *Session) Status() models.RoundStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastActivity is read by the idle reaper.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Start moves a pending or paused round to active.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	switch s.status {
	case models.RoundPending, models.RoundPaused:
	case models.RoundFinished:
		return ErrRoundClosed
	default:
		return ErrInvalidTransition
	}

	s.status = models.RoundActive
	if s.startedAt == nil {
		t := s.now()
		s.startedAt = &t
	}
	s.publish(models.EventRoundStarted, nil)
	return nil
}

// Pause suspends an active round. Drawn numbers and the remaining pool are
// kept; Start resumes exactly where the round left off.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.status == models.RoundFinished {
		return ErrRoundClosed
	}
	if s.status != models.RoundActive {
		return ErrInvalidTransition
	}
	s.status = models.RoundPaused
	s.publish(models.EventRoundPaused, nil)
	return nil
}

// DrawNext reveals the next ball. Valid only while active. Drawing the last
// ball finishes the round and a round_exhausted event follows the
// number_drawn event on the feed.
func (s *Session) DrawNext() (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.status == models.RoundFinished {
		return 0, 0, ErrRoundClosed
	}
	if s.status != models.RoundActive {
		return 0, 0, ErrInvalidTransition
	}

	n, rest, err := Draw(s.pool, s.rng)
	if err != nil {
		return 0, 0, err
	}
	s.pool = rest
	s.drawn = append(s.drawn, n)
	s.drawnSet[n] = true

	s.publish(models.EventNumberDrawn, models.NumberDrawnPayload{
		Number:     n,
		Call:       models.Call(n),
		DrawnCount: len(s.drawn),
	})

	if len(s.pool) == 0 {
		s.finishLocked("exhausted")
		s.publish(models.EventRoundExhausted, models.RoundEndedPayload{Reason: "exhausted"})
	}
	return n, len(s.drawn), nil
}

// VerifyWin adjudicates a bingo claim for a cartela against the drawn
// history. The first claim that checks out wins and closes the round; a
// failed claim leaves the round untouched.
func (s *Session) VerifyWin(cartelaID int) (VerifyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.status == models.RoundFinished {
		return VerifyResult{}, ErrRoundClosed
	}
	if s.status != models.RoundActive && s.status != models.RoundPaused {
		return VerifyResult{}, ErrInvalidTransition
	}

	cartela, err := s.registry.Get(s.shopID, cartelaID)
	if err != nil {
		return VerifyResult{}, err
	}

	pattern, won := CheckWin(cartela.Grid, s.drawnSet, s.patterns)
	if !won {
		result := VerifyResult{CartelaID: cartelaID, Reason: "no complete line"}
		s.publish(models.EventWinRejected, models.WinRejectedPayload{
			CartelaID: cartelaID,
			Reason:    result.Reason,
		})
		return result, nil
	}

	s.winnerCartelaID = &cartela.ID
	s.winnerActorID = cartela.BookedBy
	s.publish(models.EventWinnerConfirmed, models.WinnerConfirmedPayload{
		CartelaID: cartela.ID,
		ActorID:   cartela.BookedBy,
		Pattern:   pattern,
	})
	s.finishLocked("winner")

	return VerifyResult{
		Winner:    true,
		CartelaID: cartela.ID,
		ActorID:   s.winnerActorID,
		Pattern:   pattern,
	}, nil
}

// End forces the round to finished from any open state.
func (s *Session) End(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.status == models.RoundFinished {
		return ErrRoundClosed
	}
	s.publish(models.EventRoundEnded, models.RoundEndedPayload{Reason: reason})
	s.finishLocked(reason)
	return nil
}

// Book reserves a cartela for the current round.
func (s *Session) Book(cartelaID int, actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.status == models.RoundFinished {
		return ErrRoundClosed
	}
	if err := s.registry.Book(s.shopID, cartelaID, actorID); err != nil {
		return err
	}
	s.publish(models.EventCartelaBooked, models.CartelaBookedPayload{
		CartelaID: cartelaID,
		ActorID:   actorID,
	})
	return nil
}

// Unbook releases a booking, honoring the supervisor override.
func (s *Session) Unbook(cartelaID int, actorID string, supervisor bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.status == models.RoundFinished {
		return ErrRoundClosed
	}
	if err := s.registry.Unbook(s.shopID, cartelaID, actorID, supervisor); err != nil {
		return err
	}
	s.publish(models.EventCartelaUnbooked, models.CartelaUnbookedPayload{
		CartelaID:  cartelaID,
		ActorID:    actorID,
		Supervisor: supervisor,
	})
	return nil
}

// Snapshot returns the feed state a newly attached subscriber needs.
func (s *Session) Snapshot() models.SnapshotPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Attach subscribes a connection and hands it the current snapshot before
// any further live events. Publishing happens under the session mutex, so
// no event can slip between the snapshot and the subscription.
func (s *Session) Attach(connID string) <-chan models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := s.broadcaster.Subscribe(s.shopID, connID)
	s.broadcaster.SendTo(s.shopID, connID, models.Event{
		Type:    models.EventSnapshot,
		ShopID:  s.shopID,
		Payload: s.snapshotLocked(),
	})
	return ch
}

func (s *Session) snapshotLocked() models.SnapshotPayload {
	drawn := make([]int, len(s.drawn))
	copy(drawn, s.drawn)
	id := s.id
	return models.SnapshotPayload{
		RoundID:          &id,
		Status:           s.status,
		DrawnNumbers:     drawn,
		BookedCartelaIDs: s.registry.BookedIDs(s.shopID),
	}
}

// finishLocked flips the session to finished, clears all bookings, and
// hands the final snapshot to the archive hook. Callers emit their own
// terminal event first so subscribers learn why the round ended.
func (s *Session) finishLocked(reason string) {
	bookings := s.registry.ReleaseAll(s.shopID)

	s.status = models.RoundFinished
	s.endReason = reason
	t := s.now()
	s.endedAt = &t

	if s.onFinish != nil {
		drawn := make([]int, len(s.drawn))
		copy(drawn, s.drawn)
		snap := models.RoundSnapshot{
			RoundID:         s.id,
			ShopID:          s.shopID,
			Status:          models.RoundFinished,
			DrawnNumbers:    drawn,
			WinnerCartelaID: s.winnerCartelaID,
			WinnerActorID:   s.winnerActorID,
			EndReason:       reason,
			Bookings:        bookings,
			StartedAt:       s.startedAt,
			EndedAt:         s.endedAt,
		}
		go s.onFinish(snap)
	}
}

func (s *Session) publish(t models.EventType, payload any) {
	s.broadcaster.Publish(s.shopID, models.Event{
		Type:    t,
		ShopID:  s.shopID,
		Payload: payload,
	})
}

func (s *Session) touch() {
	s.lastActivity = s.now()
}
