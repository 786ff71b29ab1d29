package models

import "github.com/google/uuid"

type EventType string

const (
	EventSnapshot        EventType = "snapshot"
	EventNumberDrawn     EventType = "number_drawn"
	EventCartelaBooked   EventType = "cartela_booked"
	EventCartelaUnbooked EventType = "cartela_unbooked"
	EventWinnerConfirmed EventType = "winner_confirmed"
	EventWinRejected     EventType = "win_rejected"
	EventRoundStarted    EventType = "round_started"
	EventRoundPaused     EventType = "round_paused"
	EventRoundEnded      EventType = "round_ended"
	EventRoundExhausted  EventType = "round_exhausted"

	// EventError is sent only to the connection whose command failed, never
	// fanned out.
	EventError EventType = "error"
)

// Event is the envelope fanned out to every subscriber of a shop's feed.
type Event struct {
	Type    EventType `json:"type"`
	ShopID  int64     `json:"shop_id"`
	Payload any       `json:"payload,omitempty"`
}

type SnapshotPayload struct {
	RoundID          *uuid.UUID  `json:"round_id,omitempty"`
	Status           RoundStatus `json:"status"`
	DrawnNumbers     []int       `json:"drawn_numbers"`
	BookedCartelaIDs []int       `json:"booked_cartela_ids"`
}

type NumberDrawnPayload struct {
	Number     int    `json:"number"`
	Call       string `json:"call"`
	DrawnCount int    `json:"drawn_count"`
}

type CartelaBookedPayload struct {
	CartelaID int    `json:"cartela_id"`
	ActorID   string `json:"actor_id"`
}

type CartelaUnbookedPayload struct {
	CartelaID  int    `json:"cartela_id"`
	ActorID    string `json:"actor_id"`
	Supervisor bool   `json:"supervisor,omitempty"`
}

type WinnerConfirmedPayload struct {
	CartelaID int    `json:"cartela_id"`
	ActorID   string `json:"actor_id"`
	Pattern   string `json:"pattern"`
}

type WinRejectedPayload struct {
	CartelaID int    `json:"cartela_id"`
	Reason    string `json:"reason,omitempty"`
}

type RoundEndedPayload struct {
	Reason string `json:"reason"`
}

type ErrorPayload struct {
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
}
