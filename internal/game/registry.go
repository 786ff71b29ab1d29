package game

import (
	"sort"
	"sync"
	"time"

	"github.com/aradabingo/bingomaster/internal/models"
)

// Registry holds every shop's fixed cartela set and arbitrates booking
// ownership. Book is the one genuinely racy operation in the engine: two
// collector terminals can claim the same cartela at the same instant, and
// exactly one may win. The registry mutex makes the check-and-set atomic.
type Registry struct {
	mu       sync.RWMutex
	cartelas map[int64]map[int]*models.Cartela
	logs     map[int64][]models.BookingLogEntry

	// now is swapped in tests for deterministic log timestamps.
	now func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		cartelas: make(map[int64]map[int]*models.Cartela),
		logs:     make(map[int64][]models.BookingLogEntry),
		now:      time.Now,
	}
}

// LoadShop installs the provisioned cartela set for a shop, replacing any
// previous set. Booking state on the incoming cartelas is ignored.
func (r *Registry) LoadShop(shopID int64, cartelas []models.Cartela) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := make(map[int]*models.Cartela, len(cartelas))
	for _, c := range cartelas {
		c.ShopID = shopID
		c.BookedBy = ""
		stored := c
		set[c.ID] = &stored
	}
	r.cartelas[shopID] = set
}

// HasShop reports whether a shop has been provisioned.
func (r *Registry) HasShop(shopID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.cartelas[shopID]
	return ok
}

// Book reserves a cartela for an actor. It fails with ErrCartelaBlocked,
// ErrCartelaNotFound, or *AlreadyBookedError naming the current owner.
func (r *Registry) Book(shopID int64, cartelaID int, actorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.lookup(shopID, cartelaID)
	if err != nil {
		return err
	}
	if c.IsBlocked {
		return ErrCartelaBlocked
	}
	if c.BookedBy != "" {
		return &AlreadyBookedError{CartelaID: cartelaID, Owner: c.BookedBy}
	}

	c.BookedBy = actorID
	r.logs[shopID] = append(r.logs[shopID], models.BookingLogEntry{
		CartelaID: cartelaID,
		ActorID:   actorID,
		Action:    models.BookingBooked,
		At:        r.now(),
	})
	return nil
}

// Unbook releases a cartela. Only the original booker may release it unless
// supervisor is set. Unbooking an already free cartela is a no-op success.
func (r *Registry) Unbook(shopID int64, cartelaID int, actorID string, supervisor bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.lookup(shopID, cartelaID)
	if err != nil {
		return err
	}
	if c.BookedBy == "" {
		return nil
	}
	if c.BookedBy != actorID && !supervisor {
		return ErrNotOwner
	}

	c.BookedBy = ""
	r.logs[shopID] = append(r.logs[shopID], models.BookingLogEntry{
		CartelaID:  cartelaID,
		ActorID:    actorID,
		Action:     models.BookingUnbooked,
		Supervisor: supervisor,
		At:         r.now(),
	})
	return nil
}

// ReleaseAll clears every booking of the shop and returns the round's
// booking log, drained for the archive snapshot.
func (r *Registry) ReleaseAll(shopID int64) []models.BookingLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.cartelas[shopID] {
		c.BookedBy = ""
	}
	log := r.logs[shopID]
	delete(r.logs, shopID)
	return log
}

// ListByShop returns a copy of the shop's cartelas ordered by id. When
// booked is non-nil the result is filtered to booked or free cartelas.
func (r *Registry) ListByShop(shopID int64, booked *bool) []models.Cartela {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.cartelas[shopID]
	out := make([]models.Cartela, 0, len(set))
	for _, c := range set {
		if booked != nil && c.IsBooked() != *booked {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a copy of one cartela.
func (r *Registry) Get(shopID int64, cartelaID int) (models.Cartela, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, err := r.lookup(shopID, cartelaID)
	if err != nil {
		return models.Cartela{}, err
	}
	return *c, nil
}

// BookedIDs returns the ids of currently booked cartelas, ordered.
func (r *Registry) BookedIDs(shopID int64) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []int
	for _, c := range r.cartelas[shopID] {
		if c.IsBooked() {
			ids = append(ids, c.ID)
		}
	}
	sort.Ints(ids)
	return ids
}

func (r *Registry) lookup(shopID int64, cartelaID int) (*models.Cartela, error) {
	set, ok := r.cartelas[shopID]
	if !ok {
		return nil, ErrShopNotFound
	}
	c, ok := set[cartelaID]
	if !ok {
		return nil, ErrCartelaNotFound
	}
	return c, nil
}
