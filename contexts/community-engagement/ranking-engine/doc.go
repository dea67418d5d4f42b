// Package rankingengine keeps scored ranking items and their dense 1-based
// positions.
//
// Scores belong to whoever owns the ranked subject; this module only derives
// positions from them. A recalculation locks every item of one ranking,
// orders by score descending with the item id as tie-break, and writes the
// positions that moved in a single transaction.
package rankingengine
