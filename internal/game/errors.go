package game

import (
	"errors"
	"fmt"
)

var (
	ErrRoundAlreadyActive = errors.New("a round is already open for this shop")
	ErrNoActiveRound      = errors.New("no open round for this shop")
	ErrInvalidTransition  = errors.New("invalid round state transition")
	ErrRoundClosed        = errors.New("round is closed")
	ErrRoundNotFinished   = errors.New("round is not finished")
	ErrPoolExhausted      = errors.New("number pool exhausted")
	ErrCartelaNotFound    = errors.New("cartela not found")
	ErrCartelaBlocked     = errors.New("cartela is blocked")
	ErrNotOwner           = errors.New("cartela is booked by another actor")
	ErrShopNotFound       = errors.New("shop not found")
)

// AlreadyBookedError reports a lost booking race and names the current
// owner so the terminal can show who holds the cartela.
type AlreadyBookedError struct {
	CartelaID int
	Owner     string
}

func (e *AlreadyBookedError) Error() string {
	return fmt.Sprintf("cartela %d already booked by %s", e.CartelaID, e.Owner)
}
