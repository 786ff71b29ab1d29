package game

import (
	"bytes"
	"math/rand"

	"github.com/aradabingo/bingomaster/internal/logging"
	"github.com/aradabingo/bingomaster/internal/models"
)

// testGrid returns a deterministic valid grid: column c holds the first
// five numbers of its range, so row r cell is c*15 + r + 1. Row 3 is
// [3 18 _ 48 63] with the free center.
func testGrid() [models.GridSize][models.GridSize]int {
	var grid [models.GridSize][models.GridSize]int
	for row := 0; row < models.GridSize; row++ {
		for col := 0; col < models.GridSize; col++ {
			grid[row][col] = col*15 + row + 1
		}
	}
	grid[2][2] = models.FreeCell
	return grid
}

func testRegistry(shopID int64, count int) *Registry {
	r := NewRegistry()
	cartelas := make([]models.Cartela, count)
	for i := range cartelas {
		cartelas[i] = models.Cartela{ID: i + 1, Grid: testGrid()}
	}
	r.LoadShop(shopID, cartelas)
	return r
}

func quietLogger() *logging.Logger {
	return logging.New().SetOutput(&bytes.Buffer{}).SetLevel(logging.LevelError + 1)
}

func testBroadcaster() *Broadcaster {
	return NewBroadcaster(128, quietLogger())
}

func testSession(shopID int64, registry *Registry, b *Broadcaster, onFinish func(models.RoundSnapshot)) *Session {
	return newSession(shopID, registry, b, DefaultPatterns(), rand.New(rand.NewSource(42)), onFinish, nil)
}
