package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aradabingo/bingomaster/internal/models"
)

type RoundServiceInterface interface {
	PersistRound(ctx context.Context, snap models.RoundSnapshot) error
	RecentByShop(ctx context.Context, shopID int64, limit int) ([]models.RoundSnapshot, error)
}

// RoundService archives finished rounds for audit and reporting. It never
// sits on the live call path; the hub invokes PersistRound from a background
// goroutine after a round finishes.
type RoundService struct {
	db DB
}

func NewRoundService(db DB) *RoundService {
	return &RoundService{db: db}
}

// PersistRound writes the round record and its booking log in one
// transaction.
func (s *RoundService) PersistRound(ctx context.Context, snap models.RoundSnapshot) error {
	drawn, err := json.Marshal(snap.DrawnNumbers)
	if err != nil {
		return fmt.Errorf("encode drawn numbers: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO rounds (id, shop_id, status, drawn_numbers, winner_cartela_id, winner_actor_id, end_reason, started_at, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		snap.RoundID, snap.ShopID, string(snap.Status), drawn,
		snap.WinnerCartelaID, nullableString(snap.WinnerActorID), snap.EndReason,
		snap.StartedAt, snap.EndedAt,
	); err != nil {
		return fmt.Errorf("insert round %s: %w", snap.RoundID, err)
	}

	for _, entry := range snap.Bookings {
		if _, err := tx.Exec(ctx,
			`INSERT INTO round_bookings (round_id, cartela_id, actor_id, action, supervisor, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			snap.RoundID, entry.CartelaID, entry.ActorID, entry.Action, entry.Supervisor, entry.At,
		); err != nil {
			return fmt.Errorf("insert booking log for round %s: %w", snap.RoundID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}
	return nil
}

// RecentByShop returns the most recently ended rounds for a shop, newest
// first. Booking logs are not loaded here.
func (s *RoundService) RecentByShop(ctx context.Context, shopID int64, limit int) ([]models.RoundSnapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, shop_id, status, drawn_numbers, winner_cartela_id, winner_actor_id, end_reason, started_at, ended_at
		 FROM rounds
		 WHERE shop_id = $1
		 ORDER BY ended_at DESC NULLS LAST
		 LIMIT $2`,
		shopID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list rounds for shop %d: %w", shopID, err)
	}
	defer rows.Close()

	var snaps []models.RoundSnapshot
	for rows.Next() {
		var (
			snap     models.RoundSnapshot
			status   string
			rawDrawn []byte
			winner   *string
		)
		if err := rows.Scan(&snap.RoundID, &snap.ShopID, &status, &rawDrawn,
			&snap.WinnerCartelaID, &winner, &snap.EndReason,
			&snap.StartedAt, &snap.EndedAt); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		snap.Status = models.RoundStatus(status)
		if err := json.Unmarshal(rawDrawn, &snap.DrawnNumbers); err != nil {
			return nil, fmt.Errorf("decode drawn numbers for round %s: %w", snap.RoundID, err)
		}
		if winner != nil {
			snap.WinnerActorID = *winner
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rounds for shop %d: %w", shopID, err)
	}
	return snaps, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
