package models

import (
	"fmt"
	"math/rand"
)

const (
	GridSize  = 5
	MaxNumber = 75

	// numbersPerColumn is the size of each column's ball range: B 1-15,
	// I 16-30, N 31-45, G 46-60, O 61-75.
	numbersPerColumn = MaxNumber / GridSize

	// FreeCell marks the free center square in a grid.
	FreeCell = 0
)

var columnLetters = [GridSize]string{"B", "I", "N", "G", "O"}

// Letter returns the column letter a ball belongs to.
func Letter(n int) string {
	if n < 1 || n > MaxNumber {
		return ""
	}
	return columnLetters[(n-1)/numbersPerColumn]
}

// Call formats a drawn ball the way it is announced, e.g. "B-7".
func Call(n int) string {
	letter := Letter(n)
	if letter == "" {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s-%d", letter, n)
}

// Cartela is one physical play card of a shop. Bookings live in memory and
// only while a round is open; the grid and block flag are provisioned state.
type Cartela struct {
	ID        int                    `json:"id"`
	ShopID    int64                  `json:"shop_id"`
	Grid      [GridSize][GridSize]int `json:"grid"`
	BookedBy  string                 `json:"booked_by,omitempty"`
	IsBlocked bool                   `json:"is_blocked"`
}

// IsBooked reports whether the cartela currently has an owner.
func (c *Cartela) IsBooked() bool {
	return c.BookedBy != ""
}

// GenerateGrid builds a random 5x5 cartela grid: each column holds five
// distinct numbers from its own range, and the center cell is free.
func GenerateGrid(rng *rand.Rand) [GridSize][GridSize]int {
	var grid [GridSize][GridSize]int
	for col := 0; col < GridSize; col++ {
		low := col*numbersPerColumn + 1
		picks := rng.Perm(numbersPerColumn)[:GridSize]
		for row := 0; row < GridSize; row++ {
			grid[row][col] = low + picks[row]
		}
	}
	grid[GridSize/2][GridSize/2] = FreeCell
	return grid
}

// ValidateGrid checks column ranges, uniqueness and the free center.
func ValidateGrid(grid [GridSize][GridSize]int) error {
	center := GridSize / 2
	if grid[center][center] != FreeCell {
		return fmt.Errorf("center cell must be free")
	}

	seen := make(map[int]bool, GridSize*GridSize)
	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			n := grid[row][col]
			if row == center && col == center {
				continue
			}
			low := col*numbersPerColumn + 1
			high := low + numbersPerColumn - 1
			if n < low || n > high {
				return fmt.Errorf("cell [%d][%d]=%d outside column %s range %d-%d", row, col, n, columnLetters[col], low, high)
			}
			if seen[n] {
				return fmt.Errorf("duplicate number %d in grid", n)
			}
			seen[n] = true
		}
	}
	return nil
}
