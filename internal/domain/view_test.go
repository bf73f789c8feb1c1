package domain

import "testing"

func TestBuildBoardViewFiltersToOwnerInIndividualMode(t *testing.T) {
	board := &Board{
		Size: 5,
		Ships: []*Ship{
			{ShipID: "mine", OwnerID: "a", Positions: []Position{{Row: 0, Col: 0}}},
			{ShipID: "theirs", OwnerID: "b", Positions: []Position{{Row: 1, Col: 1}}},
		},
	}

	view := BuildBoardView(board, "a", ModeIndividual, nil, nil)

	if len(view.Ships) != 1 || view.Ships[0].ShipID != "mine" {
		t.Fatalf("view.Ships = %+v, want only the viewer's own ship", view.Ships)
	}
	if len(view.MyShips) != 1 || view.MyShips[0].ShipID != "mine" {
		t.Fatalf("view.MyShips = %+v, want only the viewer's own ship", view.MyShips)
	}
}

func TestBuildBoardViewIncludesTeammatesInTeamsMode(t *testing.T) {
	board := &Board{
		Size: 5,
		Ships: []*Ship{
			{ShipID: "mine", OwnerID: "a", Positions: []Position{{Row: 0, Col: 0}}},
			{ShipID: "ally", OwnerID: "b", Positions: []Position{{Row: 1, Col: 1}}},
			{ShipID: "enemy", OwnerID: "c", Positions: []Position{{Row: 2, Col: 2}}},
		},
	}
	teamOf := func(userID string) int {
		if userID == "c" {
			return 2
		}
		return 1
	}

	view := BuildBoardView(board, "a", ModeTeams, teamOf, nil)

	if len(view.Ships) != 2 {
		t.Fatalf("view.Ships = %+v, want viewer's and ally's ships only", view.Ships)
	}
}

func TestBuildBoardViewShotsCollapseToHitMiss(t *testing.T) {
	board := &Board{
		Size: 5,
		Shots: []ShotRecord{
			{Target: Target{Row: 0, Col: 0}, Hit: true},
			{Target: Target{Row: 1, Col: 1}, Hit: false},
		},
	}

	view := BuildBoardView(board, "a", ModeIndividual, nil, nil)

	if len(view.Shots) != 2 {
		t.Fatalf("view.Shots length = %d, want 2", len(view.Shots))
	}
	if view.Shots[0].Result != "hit" || view.Shots[1].Result != "miss" {
		t.Fatalf("view.Shots = %+v, want [hit, miss]", view.Shots)
	}
}
