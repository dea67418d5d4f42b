package entities

import (
	"sort"
	"time"
)

type Ranking struct {
	RankingID string
	Title     string
	Type      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RankingItem is one scored entry. Position 0 means the item has not been
// placed by a recalculation yet.
type RankingItem struct {
	ItemID    string
	RankingID string
	SubjectID string
	Score     float64
	Position  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PositionChange records one item that moved during a recalculation.
type PositionChange struct {
	ItemID string
	From   int
	To     int
}

type Recalculation struct {
	RankingID string
	ItemCount int
	Changes   []PositionChange
}

// ChangedCount is the number of rows the recalculation rewrote.
func (r Recalculation) ChangedCount() int {
	return len(r.Changes)
}

// AssignPositions returns a copy of items ordered by score descending, then
// item id ascending, with positions 1..N.
func AssignPositions(items []RankingItem) []RankingItem {
	ordered := append([]RankingItem(nil), items...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Score == ordered[j].Score {
			return ordered[i].ItemID < ordered[j].ItemID
		}
		return ordered[i].Score > ordered[j].Score
	})
	for i := range ordered {
		ordered[i].Position = i + 1
	}
	return ordered
}

// DiffPositions lists items whose position in ordered differs from current.
func DiffPositions(current []RankingItem, ordered []RankingItem) []PositionChange {
	before := make(map[string]int, len(current))
	for _, item := range current {
		before[item.ItemID] = item.Position
	}
	changes := make([]PositionChange, 0)
	for _, item := range ordered {
		if before[item.ItemID] == item.Position {
			continue
		}
		changes = append(changes, PositionChange{
			ItemID: item.ItemID,
			From:   before[item.ItemID],
			To:     item.Position,
		})
	}
	return changes
}

// SortByPosition orders placed items first by position; unplaced items follow
// by score and item id.
func SortByPosition(items []RankingItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if (a.Position == 0) != (b.Position == 0) {
			return a.Position != 0
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.ItemID < b.ItemID
	})
}
