package domain

import (
	"errors"
	"time"
)

// ErrOutOfRange is returned when a shot target lies outside the board.
var ErrOutOfRange = errors.New("domain: shot target out of range")

// ErrAlreadyShot is returned when a target has already been fired on in
// this match.
var ErrAlreadyShot = errors.New("domain: target already shot")

// ShotOutcome is the result of resolving one shot against a board.
type ShotOutcome struct {
	Hit        bool
	SunkShipID string
}

// ResolveShot mutates board in place to reflect the given shot and appends
// the resulting ShotRecord to board.Shots. It is side-effect-free at the
// repository level: callers are responsible for persisting the mutated
// board and for recording the shot through the shot repository.
func ResolveShot(board *Board, shooterID string, shotType ShotType, target Target, id string, now time.Time) (ShotOutcome, error) {
	if board == nil {
		return ShotOutcome{}, errors.New("domain: board is nil")
	}
	if target.Row < 0 || target.Row >= board.Size || target.Col < 0 || target.Col >= board.Size {
		return ShotOutcome{}, ErrOutOfRange
	}
	for _, s := range board.Shots {
		if s.Target == target {
			return ShotOutcome{}, ErrAlreadyShot
		}
	}

	cells := shotPattern(shotType, target, board.Size)

	outcome := ShotOutcome{}
	for _, cell := range cells {
		hit, sunkID := applyHit(board, cell)
		if hit {
			outcome.Hit = true
			if sunkID != "" {
				outcome.SunkShipID = sunkID
			}
		}
	}

	record := ShotRecord{
		ID:         id,
		ShooterID:  shooterID,
		Type:       shotType,
		Target:     target,
		Hit:        outcome.Hit,
		SunkShipID: outcome.SunkShipID,
		CreatedAt:  now,
	}
	board.Shots = append(board.Shots, record)

	return outcome, nil
}

// applyHit marks the position at cell as hit on whichever ship occupies it
// (if any), sinking the ship when every one of its positions is hit.
func applyHit(board *Board, cell Target) (hit bool, sunkShipID string) {
	for _, ship := range board.Ships {
		if ship.IsSunk {
			continue
		}
		for i := range ship.Positions {
			pos := &ship.Positions[i]
			if pos.Row != cell.Row || pos.Col != cell.Col {
				continue
			}
			if pos.IsHit {
				return false, ""
			}
			pos.IsHit = true
			if allPositionsHit(ship) {
				ship.IsSunk = true
				return true, ship.ShipID
			}
			return true, ""
		}
	}
	return false, ""
}

func allPositionsHit(ship *Ship) bool {
	for _, p := range ship.Positions {
		if !p.IsHit {
			return false
		}
	}
	return true
}

// shotPattern expands a shot type into the set of board cells it affects,
// bounded by the board size and free of duplicate cells. The taxonomy is
// closed: each variant has its own deterministic pattern rather than an
// open interface hierarchy.
func shotPattern(shotType ShotType, target Target, size int) []Target {
	switch shotType {
	case ShotCross:
		return dedupClip(size, []Target{
			target,
			{Row: target.Row - 1, Col: target.Col},
			{Row: target.Row + 1, Col: target.Col},
			{Row: target.Row, Col: target.Col - 1},
			{Row: target.Row, Col: target.Col + 1},
		})
	case ShotMulti:
		return dedupClip(size, []Target{
			target,
			{Row: target.Row, Col: target.Col - 1},
			{Row: target.Row, Col: target.Col + 1},
		})
	case ShotArea:
		var cells []Target
		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				cells = append(cells, Target{Row: target.Row + dr, Col: target.Col + dc})
			}
		}
		return dedupClip(size, cells)
	case ShotScan:
		var cells []Target
		for col := 0; col < size; col++ {
			cells = append(cells, Target{Row: target.Row, Col: col})
		}
		return dedupClip(size, cells)
	case ShotNuclear:
		var cells []Target
		for dr := -2; dr <= 2; dr++ {
			for dc := -2; dc <= 2; dc++ {
				cells = append(cells, Target{Row: target.Row + dr, Col: target.Col + dc})
			}
		}
		return dedupClip(size, cells)
	case ShotSimple:
		fallthrough
	default:
		return []Target{target}
	}
}

// dedupClip removes out-of-board and duplicate cells from a candidate
// pattern, preserving the order cells were first seen.
func dedupClip(size int, cells []Target) []Target {
	seen := make(map[Target]bool, len(cells))
	out := make([]Target, 0, len(cells))
	for _, c := range cells {
		if c.Row < 0 || c.Row >= size || c.Col < 0 || c.Col >= size {
			continue
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
