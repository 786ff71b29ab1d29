package game

import (
	"sync"

	"github.com/aradabingo/bingomaster/internal/logging"
	"github.com/aradabingo/bingomaster/internal/models"
)

// Broadcaster fans session events out to every connection watching a shop.
// Each subscriber gets a bounded outbox; when a slow consumer fills it the
// oldest undelivered event is dropped so publishing never blocks the round.
// A client that dropped events resynchronizes by resubscribing, which hands
// it a fresh snapshot.
type Broadcaster struct {
	mu       sync.RWMutex
	shops    map[int64]map[string]chan models.Event
	capacity int
	logger   *logging.Logger
}

func NewBroadcaster(capacity int, logger *logging.Logger) *Broadcaster {
	if capacity < 1 {
		capacity = 1
	}
	if logger == nil {
		logger = logging.Default
	}
	return &Broadcaster{
		shops:    make(map[int64]map[string]chan models.Event),
		capacity: capacity,
		logger:   logger,
	}
}

// Subscribe registers a connection on a shop's feed and returns its event
// channel. The channel is closed on Unsubscribe.
func (b *Broadcaster) Subscribe(shopID int64, connID string) <-chan models.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.shops[shopID]
	if !ok {
		subs = make(map[string]chan models.Event)
		b.shops[shopID] = subs
	}
	if old, ok := subs[connID]; ok {
		close(old)
	}
	ch := make(chan models.Event, b.capacity)
	subs[connID] = ch
	return ch
}

// Unsubscribe removes a connection; calling it twice is harmless.
func (b *Broadcaster) Unsubscribe(shopID int64, connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.shops[shopID]
	if !ok {
		return
	}
	if ch, ok := subs[connID]; ok {
		delete(subs, connID)
		close(ch)
	}
	if len(subs) == 0 {
		delete(b.shops, shopID)
	}
}

// Publish delivers an event to every subscriber of the shop. Delivery is
// best-effort per connection and never blocks the caller.
func (b *Broadcaster) Publish(shopID int64, ev models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for connID, ch := range b.shops[shopID] {
		b.deliver(shopID, connID, ch, ev)
	}
}

// SendTo delivers an event to a single subscriber, used for the snapshot a
// reconnecting client receives before live events resume.
func (b *Broadcaster) SendTo(shopID int64, connID string, ev models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if ch, ok := b.shops[shopID][connID]; ok {
		b.deliver(shopID, connID, ch, ev)
	}
}

// SubscriberCount reports how many connections watch a shop.
func (b *Broadcaster) SubscriberCount(shopID int64) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.shops[shopID])
}

func (b *Broadcaster) deliver(shopID int64, connID string, ch chan models.Event, ev models.Event) {
	select {
	case ch <- ev:
		return
	default:
	}

	// Outbox full: drop the oldest event to make room. The consumer may have
	// raced us and drained the channel, so the retry is non-blocking too.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- ev:
	default:
	}
	b.logger.Warn("slow subscriber dropped an event", map[string]interface{}{
		"shop_id": shopID,
		"conn_id": connID,
		"event":   string(ev.Type),
	})
}
