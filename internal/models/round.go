package models

import (
	"time"

	"github.com/google/uuid"
)

type RoundStatus string

const (
	RoundPending  RoundStatus = "pending"
	RoundActive   RoundStatus = "active"
	RoundPaused   RoundStatus = "paused"
	RoundFinished RoundStatus = "finished"

	// RoundIdle is never a session state; it appears only in snapshots sent
	// to subscribers of a shop that has no open round.
	RoundIdle RoundStatus = "idle"
)

// BookingAction values recorded in the booking log.
const (
	BookingBooked   = "booked"
	BookingUnbooked = "unbooked"
	BookingReleased = "released"
)

// BookingLogEntry is one line of the append-only booking audit trail.
type BookingLogEntry struct {
	CartelaID  int       `json:"cartela_id"`
	ActorID    string    `json:"actor_id"`
	Action     string    `json:"action"`
	Supervisor bool      `json:"supervisor,omitempty"`
	At         time.Time `json:"at"`
}

// RoundSnapshot is the full final state of a round, handed to the archive
// collaborator when the round finishes.
type RoundSnapshot struct {
	RoundID         uuid.UUID         `json:"round_id"`
	ShopID          int64             `json:"shop_id"`
	Status          RoundStatus       `json:"status"`
	DrawnNumbers    []int             `json:"drawn_numbers"`
	WinnerCartelaID *int              `json:"winner_cartela_id,omitempty"`
	WinnerActorID   string            `json:"winner_actor_id,omitempty"`
	EndReason       string            `json:"end_reason,omitempty"`
	Bookings        []BookingLogEntry `json:"bookings,omitempty"`
	StartedAt       *time.Time        `json:"started_at,omitempty"`
	EndedAt         *time.Time        `json:"ended_at,omitempty"`
}
