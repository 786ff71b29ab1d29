package game

import (
	"context"
	"time"

	"github.com/aradabingo/bingomaster/internal/models"
)

// RunReaper ends active rounds that have seen no commands for idleAfter.
// It reuses the normal End path, so subscribers get the usual round_ended
// event and the round is archived like any other. Blocks until ctx is done.
func (h *Hub) RunReaper(ctx context.Context, interval, idleAfter time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.reapIdle(idleAfter)
		}
	}
}

func (h *Hub) reapIdle(idleAfter time.Duration) {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	cutoff := h.now().Add(-idleAfter)
	for _, s := range sessions {
		if s.Status() != models.RoundActive {
			continue
		}
		if s.LastActivity().After(cutoff) {
			continue
		}
		if err := s.End("idle-timeout"); err != nil {
			continue
		}
		h.logger.Warn("ended idle round", map[string]interface{}{
			"shop_id":  s.ShopID(),
			"round_id": s.ID().String(),
		})
	}
}
