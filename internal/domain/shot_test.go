package domain

import (
	"testing"
	"time"
)

func newTestBoard() *Board {
	return &Board{
		Size: 5,
		Ships: []*Ship{
			{
				ShipID:  "ship-1",
				OwnerID: "b",
				Positions: []Position{
					{Row: 0, Col: 0},
					{Row: 0, Col: 1},
				},
			},
		},
	}
}

func TestResolveShotSimpleHitAndSink(t *testing.T) {
	board := newTestBoard()
	now := time.Unix(0, 0)

	outcome, err := ResolveShot(board, "a", ShotSimple, Target{Row: 0, Col: 0}, "shot-1", now)
	if err != nil {
		t.Fatalf("ResolveShot() error = %v", err)
	}
	if !outcome.Hit || outcome.SunkShipID != "" {
		t.Fatalf("ResolveShot() = %+v, want hit without sink yet", outcome)
	}

	outcome, err = ResolveShot(board, "a", ShotSimple, Target{Row: 0, Col: 1}, "shot-2", now)
	if err != nil {
		t.Fatalf("ResolveShot() error = %v", err)
	}
	if !outcome.Hit || outcome.SunkShipID != "ship-1" {
		t.Fatalf("ResolveShot() = %+v, want sink of ship-1", outcome)
	}
	if !board.Ships[0].IsSunk {
		t.Fatalf("ship should be marked sunk")
	}
}

func TestResolveShotRejectsOutOfRange(t *testing.T) {
	board := newTestBoard()
	_, err := ResolveShot(board, "a", ShotSimple, Target{Row: 5, Col: 0}, "shot-1", time.Unix(0, 0))
	if err != ErrOutOfRange {
		t.Fatalf("ResolveShot() error = %v, want ErrOutOfRange", err)
	}
}

func TestResolveShotAcceptsLastRowAndCol(t *testing.T) {
	board := newTestBoard()
	_, err := ResolveShot(board, "a", ShotSimple, Target{Row: board.Size - 1, Col: board.Size - 1}, "shot-1", time.Unix(0, 0))
	if err != nil {
		t.Fatalf("ResolveShot() error = %v, want nil for boundary cell", err)
	}
}

func TestResolveShotRejectsDuplicateTarget(t *testing.T) {
	board := newTestBoard()
	now := time.Unix(0, 0)
	if _, err := ResolveShot(board, "a", ShotSimple, Target{Row: 2, Col: 2}, "shot-1", now); err != nil {
		t.Fatalf("first ResolveShot() error = %v", err)
	}
	if _, err := ResolveShot(board, "a", ShotSimple, Target{Row: 2, Col: 2}, "shot-2", now); err != ErrAlreadyShot {
		t.Fatalf("ResolveShot() error = %v, want ErrAlreadyShot", err)
	}
}

func TestResolveShotMissRecordsNoHit(t *testing.T) {
	board := newTestBoard()
	outcome, err := ResolveShot(board, "a", ShotSimple, Target{Row: 4, Col: 4}, "shot-1", time.Unix(0, 0))
	if err != nil {
		t.Fatalf("ResolveShot() error = %v", err)
	}
	if outcome.Hit {
		t.Fatalf("ResolveShot() = %+v, want a miss", outcome)
	}
}

func TestShotPatternBoundedAndDeduped(t *testing.T) {
	cells := shotPattern(ShotArea, Target{Row: 0, Col: 0}, 5)
	seen := make(map[Target]bool)
	for _, c := range cells {
		if c.Row < 0 || c.Col < 0 {
			t.Fatalf("cell %v escapes lower board bound", c)
		}
		if seen[c] {
			t.Fatalf("duplicate cell %v in pattern", c)
		}
		seen[c] = true
	}
}

func TestShotPatternNuclearClippedToBoard(t *testing.T) {
	cells := shotPattern(ShotNuclear, Target{Row: 0, Col: 0}, 5)
	for _, c := range cells {
		if c.Row >= 5 || c.Col >= 5 {
			t.Fatalf("cell %v exceeds board size", c)
		}
	}
}
