package domain

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrPlacementFailed is returned when a ship could not be placed after the
// configured number of retry attempts.
var ErrPlacementFailed = errors.New("domain: ship placement failed")

// ErrCapacityExceeded is returned when the requested player/ship count
// cannot possibly fit the board's occupancy cap, checked before any
// placement is attempted.
var ErrCapacityExceeded = errors.New("domain: board capacity exceeded")

type sizingRule struct {
	baseSize           float64
	perPlayerIncrement float64
	occupancyCap       float64
}

var sizingTable = map[Difficulty]sizingRule{
	DifficultyEasy:   {baseSize: 10, perPlayerIncrement: 1.0, occupancyCap: 0.70},
	DifficultyMedium: {baseSize: 12, perPlayerIncrement: 1.5, occupancyCap: 0.55},
	DifficultyHard:   {baseSize: 14, perPlayerIncrement: 2.0, occupancyCap: 0.35},
}

var shipsPerPlayerTable = map[Difficulty][]int{
	DifficultyEasy:   {5, 4, 3, 2, 2, 1, 1},
	DifficultyMedium: {4, 4, 3, 3, 2, 2, 1},
	DifficultyHard:   {4, 3, 2, 2, 1},
}

// MaxBoardSize is the hard ceiling on a generated board's edge length,
// regardless of player count. Configurable via MAX_BOARD_SIZE.
const MaxBoardSize = 20

// MaxPlacementAttempts is the per-ship retry budget before placement is
// declared failed. Configurable via MAX_PLACEMENT_ATTEMPTS.
const MaxPlacementAttempts = 100

// BoardSize computes the square edge length for the given difficulty,
// player count and mode, capped at maxSize.
func BoardSize(difficulty Difficulty, playerCount int, mode MatchMode, maxSize int) int {
	rule, ok := sizingTable[difficulty]
	if !ok {
		rule = sizingTable[DifficultyMedium]
	}
	raw := rule.baseSize + float64(playerCount)*rule.perPlayerIncrement
	size := int(math.Ceil(raw))
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}
	return size
}

func occupancyCap(difficulty Difficulty, mode MatchMode) float64 {
	rule, ok := sizingTable[difficulty]
	if !ok {
		rule = sizingTable[DifficultyMedium]
	}
	cap := rule.occupancyCap
	if mode == ModeTeams {
		cap += 0.05
	}
	return cap
}

// ShipSizes returns the ordered ship-size list for a difficulty.
func ShipSizes(difficulty Difficulty) []int {
	sizes, ok := shipsPerPlayerTable[difficulty]
	if !ok {
		sizes = shipsPerPlayerTable[DifficultyMedium]
	}
	out := make([]int, len(sizes))
	copy(out, sizes)
	return out
}

// GenerateBoard produces an initial board for the given players. teamOf,
// if non-nil, returns the team number the given userId belongs to and is
// consulted to stamp each ship's TeamID when mode is ModeTeams.
// maxAttempts is the per-ship placement retry budget; a value <= 0 falls
// back to MaxPlacementAttempts.
func GenerateBoard(rng *rand.Rand, playerIDs []string, difficulty Difficulty, mode MatchMode, teamOf func(userID string) int, maxSize, maxAttempts int) (*Board, error) {
	if len(playerIDs) == 0 {
		return nil, fmt.Errorf("domain: cannot generate a board with no players")
	}
	if maxSize <= 0 {
		maxSize = MaxBoardSize
	}
	if maxAttempts <= 0 {
		maxAttempts = MaxPlacementAttempts
	}

	size := BoardSize(difficulty, len(playerIDs), mode, maxSize)
	shipSizes := ShipSizes(difficulty)
	cap := occupancyCap(difficulty, mode)

	totalCells := 0
	for _, s := range shipSizes {
		totalCells += s
	}
	totalCells *= len(playerIDs)
	if float64(totalCells) > math.Floor(float64(size*size)*cap) {
		return nil, ErrCapacityExceeded
	}

	occupied := make(map[[2]int]bool, totalCells)
	board := &Board{Size: size, Ships: make([]*Ship, 0, len(playerIDs)*len(shipSizes))}

	for _, userID := range playerIDs {
		for _, shipSize := range shipSizes {
			positions, ok := placeShip(rng, size, shipSize, occupied, maxAttempts)
			if !ok {
				return nil, ErrPlacementFailed
			}
			for _, p := range positions {
				occupied[[2]int{p.Row, p.Col}] = true
			}
			ship := &Ship{
				ShipID:    newShipID(rng),
				OwnerID:   userID,
				Positions: positions,
			}
			if mode == ModeTeams && teamOf != nil {
				if t := teamOf(userID); t > 0 {
					team := t
					ship.TeamID = &team
				}
			}
			board.Ships = append(board.Ships, ship)
		}
	}

	return board, nil
}

func placeShip(rng *rand.Rand, size, shipSize int, occupied map[[2]int]bool, maxAttempts int) ([]Position, bool) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		horizontal := rng.Intn(2) == 0

		var maxRow, maxCol int
		if horizontal {
			maxRow = size
			maxCol = size - shipSize + 1
		} else {
			maxRow = size - shipSize + 1
			maxCol = size
		}
		if maxRow <= 0 || maxCol <= 0 {
			continue
		}

		originRow := rng.Intn(maxRow)
		originCol := rng.Intn(maxCol)

		positions := make([]Position, 0, shipSize)
		collision := false
		for i := 0; i < shipSize; i++ {
			row, col := originRow, originCol
			if horizontal {
				col += i
			} else {
				row += i
			}
			if occupied[[2]int{row, col}] {
				collision = true
				break
			}
			positions = append(positions, Position{Row: row, Col: col})
		}
		if collision {
			continue
		}

		// Guard against duplicate cells within the same ship attempt
		// (impossible given the loop above, but kept defensive and cheap).
		seen := make(map[[2]int]bool, len(positions))
		ok := true
		for _, p := range positions {
			key := [2]int{p.Row, p.Col}
			if seen[key] {
				ok = false
				break
			}
			seen[key] = true
		}
		if !ok {
			continue
		}

		return positions, true
	}
	return nil, false
}

func newShipID(rng *rand.Rand) string {
	const letters = "0123456789abcdef"
	b := make([]byte, 16)
	for i := range b {
		b[i] = letters[rng.Intn(len(letters))]
	}
	return string(b)
}
