package game

import (
	"fmt"

	"github.com/aradabingo/bingomaster/internal/models"
)

type WinPattern string

const (
	PatternRows      WinPattern = "rows"
	PatternColumns   WinPattern = "columns"
	PatternDiagonals WinPattern = "diagonals"
)

// DefaultPatterns is the house rule when nothing is configured: any full
// row, column, or diagonal wins.
func DefaultPatterns() []WinPattern {
	return []WinPattern{PatternRows, PatternColumns, PatternDiagonals}
}

// ParsePatterns converts configuration strings, rejecting unknown names.
func ParsePatterns(names []string) ([]WinPattern, error) {
	if len(names) == 0 {
		return DefaultPatterns(), nil
	}
	out := make([]WinPattern, 0, len(names))
	for _, name := range names {
		p := WinPattern(name)
		switch p {
		case PatternRows, PatternColumns, PatternDiagonals:
			out = append(out, p)
		default:
			return nil, fmt.Errorf("unknown win pattern %q", name)
		}
	}
	return out, nil
}

// CheckWin tests a grid against the drawn set under the configured
// patterns. It returns a human-readable name of the first complete line,
// e.g. "row-3" or "diagonal-main". Cells are 1-based in line names.
func CheckWin(grid [models.GridSize][models.GridSize]int, drawn map[int]bool, patterns []WinPattern) (string, bool) {
	covered := func(n int) bool {
		return n == models.FreeCell || drawn[n]
	}

	for _, p := range patterns {
		switch p {
		case PatternRows:
			for row := 0; row < models.GridSize; row++ {
				full := true
				for col := 0; col < models.GridSize; col++ {
					if !covered(grid[row][col]) {
						full = false
						break
					}
				}
				if full {
					return fmt.Sprintf("row-%d", row+1), true
				}
			}
		case PatternColumns:
			for col := 0; col < models.GridSize; col++ {
				full := true
				for row := 0; row < models.GridSize; row++ {
					if !covered(grid[row][col]) {
						full = false
						break
					}
				}
				if full {
					return fmt.Sprintf("column-%d", col+1), true
				}
			}
		case PatternDiagonals:
			full := true
			for i := 0; i < models.GridSize; i++ {
				if !covered(grid[i][i]) {
					full = false
					break
				}
			}
			if full {
				return "diagonal-main", true
			}
			full = true
			for i := 0; i < models.GridSize; i++ {
				if !covered(grid[i][models.GridSize-1-i]) {
					full = false
					break
				}
			}
			if full {
				return "diagonal-anti", true
			}
		}
	}
	return "", false
}
