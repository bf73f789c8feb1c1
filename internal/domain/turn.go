package domain

// HasShipsAlive reports whether the given user owns at least one ship that
// is not yet sunk.
func HasShipsAlive(board *Board, userID string) bool {
	if board == nil {
		return false
	}
	for _, ship := range board.Ships {
		if ship.OwnerID == userID && !ship.IsSunk {
			return true
		}
	}
	return false
}

// NextUserId returns the user following current in aliveOrder, wrapping
// around. If current is absent from aliveOrder, or aliveOrder is empty,
// current is returned unchanged: a no-op, not an error, since the
// orchestrator is expected to have already computed aliveOrder from the
// same state current came from.
func NextUserId(aliveOrder []string, current string) string {
	if len(aliveOrder) == 0 {
		return current
	}
	idx := -1
	for i, u := range aliveOrder {
		if u == current {
			idx = i
			break
		}
	}
	if idx == -1 {
		return current
	}
	return aliveOrder[(idx+1)%len(aliveOrder)]
}

// IsLastOne reports whether exactly one player remains alive.
func IsLastOne(aliveOrder []string) bool {
	return len(aliveOrder) == 1
}

// SingleAliveTeam returns the unique team number shared by every player in
// players with LeftAt == nil and Team != 0, or 0 if the alive players span
// more than one team (or none have a team assigned).
func SingleAliveTeam(players []*MatchPlayer) int {
	team := 0
	for _, p := range players {
		if p.LeftAt != nil || p.Team == 0 {
			continue
		}
		if team == 0 {
			team = p.Team
			continue
		}
		if p.Team != team {
			return 0
		}
	}
	return team
}
