package domain

import (
	"math"
	"time"
)

// ComputeStats derives per-player PlayerStats from a match's final board
// and player list. It is pure: it reads the board and player set and
// returns a fresh map, touching neither the ephemeral store nor the
// persistence layer.
func ComputeStats(board *Board, players []*MatchPlayer) map[string]*PlayerStats {
	out := make(map[string]*PlayerStats, len(players))
	for _, p := range players {
		out[p.UserID] = &PlayerStats{
			UserID:      p.UserID,
			WasWinner:   p.IsWinner,
			ShotsByType: make(map[ShotType]int),
		}
	}
	if board == nil {
		return out
	}

	shipsRemaining := make(map[string]int)
	for _, ship := range board.Ships {
		if !ship.IsSunk {
			shipsRemaining[ship.OwnerID]++
		}
	}

	// ownerByCell maps each ship cell to its owner; sunkByShooter below
	// credits each sunk ship to the shooter whose shot sank it.
	ownerByCell := make(map[Target]string, board.Size*board.Size)
	for _, ship := range board.Ships {
		for _, pos := range ship.Positions {
			ownerByCell[Target{Row: pos.Row, Col: pos.Col}] = ship.OwnerID
		}
	}
	sunkByShooter := make(map[string]int)
	sunkSeen := make(map[string]bool)
	for _, shot := range board.Shots {
		if shot.SunkShipID != "" && !sunkSeen[shot.SunkShipID] {
			sunkSeen[shot.SunkShipID] = true
			sunkByShooter[shot.ShooterID]++
		}
	}

	streak := make(map[string]int)
	maxStreak := make(map[string]int)
	lastHit := make(map[string]bool)

	for _, shot := range board.Shots {
		stats, ok := out[shot.ShooterID]
		if !ok {
			continue
		}
		stats.TotalShots++
		stats.TurnsTaken++
		stats.ShotsByType[shot.Type]++
		if shot.Hit {
			stats.SuccessfulShots++
			streak[shot.ShooterID]++
			if streak[shot.ShooterID] > maxStreak[shot.ShooterID] {
				maxStreak[shot.ShooterID] = streak[shot.ShooterID]
			}
			lastHit[shot.ShooterID] = true
		} else {
			streak[shot.ShooterID] = 0
			lastHit[shot.ShooterID] = false
		}
	}

	for userID, stats := range out {
		stats.ShipsSunk = sunkByShooter[userID]
		stats.ShipsRemaining = shipsRemaining[userID]
		stats.WasEliminated = shipsRemaining[userID] == 0
		stats.HitStreak = maxStreak[userID]
		stats.LastShotWasHit = lastHit[userID]
		if stats.TotalShots > 0 {
			stats.Accuracy = round2(float64(stats.SuccessfulShots) / float64(stats.TotalShots) * 100)
		}
	}

	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MergeGlobalStats folds one match's PlayerStats into a user's running
// UserGlobalStats: recompute accuracy from the new totals, track the
// historical max hit streak, and accumulate nuclear usage.
func MergeGlobalStats(existing *UserGlobalStats, match *PlayerStats, gameAt time.Time) *UserGlobalStats {
	if existing == nil {
		existing = &UserGlobalStats{UserID: match.UserID}
	}
	existing.TotalMatches++
	if match.WasWinner {
		existing.TotalWins++
	}
	existing.TotalShots += match.TotalShots
	existing.TotalHits += match.SuccessfulShots
	if existing.TotalShots > 0 {
		existing.Accuracy = round2(float64(existing.TotalHits) / float64(existing.TotalShots) * 100)
	}
	if match.HitStreak > existing.MaxHitStreak {
		existing.MaxHitStreak = match.HitStreak
	}
	existing.NuclearUsed += match.ShotsByType[ShotNuclear]
	existing.LastGameAt = gameAt
	return existing
}
