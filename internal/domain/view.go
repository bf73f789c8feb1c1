package domain

// ShotView is the viewer-facing projection of a ShotRecord: the result is
// collapsed to hit/miss and the shooter/type are not exposed here (callers
// that need them have the persisted Shot already).
type ShotView struct {
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Result string `json:"result"`
}

// ShipView is the viewer-facing projection of a Ship belonging to the
// viewer or their team: ownership is implicit (these are always the
// viewer's own/allied ships), enriched with the owner's nickname/color.
type ShipView struct {
	ShipID    string     `json:"shipId"`
	OwnerID   string     `json:"ownerId"`
	Nickname  string     `json:"nickname"`
	Color     string     `json:"color"`
	Positions []Position `json:"positions"`
	IsSunk    bool       `json:"isSunk"`
}

// MyShipView is the compact per-owned-ship summary sent to its owner.
type MyShipView struct {
	ShipID            string `json:"shipId"`
	IsSunk            bool   `json:"isSunk"`
	ImpactedPositions int    `json:"impactedPositions"`
	TotalPositions    int    `json:"totalPositions"`
}

// BoardView is the per-viewer projection of a Board.
type BoardView struct {
	Size    int          `json:"size"`
	Ships   []ShipView   `json:"ships"`
	Shots   []ShotView   `json:"shots"`
	MyShips []MyShipView `json:"myShips"`
}

// UserLookup resolves a userId to the display fields a board view needs.
type UserLookup func(userID string) (nickname, color string)

// BuildBoardView projects board for viewerID: ships are filtered to those
// owned by the viewer (or, in teams mode, by a teammate); shots are
// collapsed to hit/miss; myShips lists only the viewer's own ships, with
// impacted/total position counts instead of exact cells.
func BuildBoardView(board *Board, viewerID string, mode MatchMode, teamOf func(userID string) int, lookup UserLookup) BoardView {
	view := BoardView{}
	if board == nil {
		return view
	}
	view.Size = board.Size

	viewerTeam := 0
	if mode == ModeTeams && teamOf != nil {
		viewerTeam = teamOf(viewerID)
	}

	for _, ship := range board.Ships {
		visible := ship.OwnerID == viewerID
		if !visible && mode == ModeTeams && viewerTeam != 0 && teamOf != nil {
			visible = teamOf(ship.OwnerID) == viewerTeam
		}
		if ship.OwnerID == viewerID {
			impacted := 0
			for _, p := range ship.Positions {
				if p.IsHit {
					impacted++
				}
			}
			view.MyShips = append(view.MyShips, MyShipView{
				ShipID:            ship.ShipID,
				IsSunk:            ship.IsSunk,
				ImpactedPositions: impacted,
				TotalPositions:    len(ship.Positions),
			})
		}
		if !visible {
			continue
		}
		nickname, color := "", ""
		if lookup != nil {
			nickname, color = lookup(ship.OwnerID)
		}
		positions := make([]Position, len(ship.Positions))
		copy(positions, ship.Positions)
		view.Ships = append(view.Ships, ShipView{
			ShipID:    ship.ShipID,
			OwnerID:   ship.OwnerID,
			Nickname:  nickname,
			Color:     color,
			Positions: positions,
			IsSunk:    ship.IsSunk,
		})
	}

	for _, shot := range board.Shots {
		result := "miss"
		if shot.Hit {
			result = "hit"
		}
		view.Shots = append(view.Shots, ShotView{Row: shot.Target.Row, Col: shot.Target.Col, Result: result})
	}

	return view
}
