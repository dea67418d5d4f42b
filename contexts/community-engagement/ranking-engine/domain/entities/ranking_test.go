package entities

import "testing"

func TestAssignPositionsOrdersByScoreThenItemID(t *testing.T) {
	items := []RankingItem{
		{ItemID: "c", Score: 10},
		{ItemID: "a", Score: 30},
		{ItemID: "d", Score: 20},
		{ItemID: "b", Score: 20},
	}
	ordered := AssignPositions(items)

	want := []struct {
		id       string
		position int
	}{
		{"a", 1}, {"b", 2}, {"d", 3}, {"c", 4},
	}
	for i, item := range ordered {
		if item.ItemID != want[i].id || item.Position != want[i].position {
			t.Fatalf("index %d: expected %s@%d, got %s@%d", i, want[i].id, want[i].position, item.ItemID, item.Position)
		}
	}
	if items[0].Position != 0 {
		t.Fatalf("expected input slice to stay untouched")
	}
}

func TestDiffPositionsListsOnlyMovedItems(t *testing.T) {
	current := []RankingItem{
		{ItemID: "a", Score: 5, Position: 1},
		{ItemID: "b", Score: 9, Position: 2},
		{ItemID: "c", Score: 1, Position: 3},
	}
	changes := DiffPositions(current, AssignPositions(current))
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %+v", changes)
	}
	if changes[0] != (PositionChange{ItemID: "b", From: 2, To: 1}) || changes[1] != (PositionChange{ItemID: "a", From: 1, To: 2}) {
		t.Fatalf("unexpected changes %+v", changes)
	}
}

func TestSortByPositionPutsUnplacedItemsLast(t *testing.T) {
	items := []RankingItem{
		{ItemID: "new", Score: 99},
		{ItemID: "second", Score: 5, Position: 2},
		{ItemID: "first", Score: 7, Position: 1},
	}
	SortByPosition(items)
	if items[0].ItemID != "first" || items[1].ItemID != "second" || items[2].ItemID != "new" {
		t.Fatalf("unexpected order %+v", items)
	}
}
