package game

import (
	"fmt"

	"acquire-backend/internal/apperr"
)

// Board dimensions are fixed by the physical game: 9 rows by 12 columns.
const (
	BoardRows = 9
	BoardCols = 12
	TileCount = BoardRows * BoardCols
)

// Position addresses one board cell, zero-based. The wire format uses x for
// the row and y for the column.
type Position struct {
	Row int `json:"x"`
	Col int `json:"y"`
}

func (p Position) Valid() bool {
	return p.Row >= 0 && p.Row < BoardRows && p.Col >= 0 && p.Col < BoardCols
}

func (p Position) index() int { return p.Row*BoardCols + p.Col }

// Label renders the printed tile name, e.g. (0,0) → "1A".
func (p Position) Label() string {
	return fmt.Sprintf("%d%c", p.Col+1, rune('A'+p.Row))
}

// Less orders positions by (row, col) ascending. Setup uses this to seat
// players by their order tiles.
func (p Position) Less(q Position) bool {
	if p.Row != q.Row {
		return p.Row < q.Row
	}
	return p.Col < q.Col
}

func (p Position) neighbours() []Position {
	candidates := [4]Position{
		{Row: p.Row - 1, Col: p.Col},
		{Row: p.Row + 1, Col: p.Col},
		{Row: p.Row, Col: p.Col - 1},
		{Row: p.Row, Col: p.Col + 1},
	}
	out := make([]Position, 0, 4)
	for _, q := range candidates {
		if q.Valid() {
			out = append(out, q)
		}
	}
	return out
}

// PlacedTile is a permanent board entry. BelongsTo starts as
// CorpIncorporated and only ever moves toward a corporation.
type PlacedTile struct {
	Position  Position `json:"position"`
	BelongsTo CorpID   `json:"belongsTo"`
}

// Board owns the placed tiles. Entries are never removed.
type Board struct {
	cells [TileCount]*PlacedTile
	count int
}

func NewBoard() *Board { return &Board{} }

// PlacedAt returns the entry at pos, if any.
func (b *Board) PlacedAt(pos Position) (PlacedTile, bool) {
	if !pos.Valid() {
		return PlacedTile{}, false
	}
	if t := b.cells[pos.index()]; t != nil {
		return *t, true
	}
	return PlacedTile{}, false
}

// Place records a new incorporated tile at pos.
func (b *Board) Place(pos Position) error {
	if !pos.Valid() {
		return apperr.New(apperr.Validation, "position (%d,%d) is off the board", pos.Row, pos.Col)
	}
	if b.cells[pos.index()] != nil {
		return apperr.New(apperr.State, "tile %s is already placed", pos.Label())
	}
	b.cells[pos.index()] = &PlacedTile{Position: pos, BelongsTo: CorpIncorporated}
	b.count++
	return nil
}

// PlacedCount returns how many tiles are on the board.
func (b *Board) PlacedCount() int { return b.count }

// Placed lists every placed tile in row-major order.
func (b *Board) Placed() []PlacedTile {
	out := make([]PlacedTile, 0, b.count)
	for _, t := range b.cells {
		if t != nil {
			out = append(out, *t)
		}
	}
	return out
}

// ConnectedComponent walks 4-neighbour adjacency over placed tiles starting
// at pos. The walk is iterative with an explicit frontier; a component can
// span the whole board.
func (b *Board) ConnectedComponent(pos Position) []PlacedTile {
	if !pos.Valid() || b.cells[pos.index()] == nil {
		return nil
	}
	var visited [TileCount]bool
	visited[pos.index()] = true
	frontier := []Position{pos}
	var out []PlacedTile
	for len(frontier) > 0 {
		cur := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		out = append(out, *b.cells[cur.index()])
		for _, n := range cur.neighbours() {
			if b.cells[n.index()] != nil && !visited[n.index()] {
				visited[n.index()] = true
				frontier = append(frontier, n)
			}
		}
	}
	return out
}

// GroupByCorporation bins tiles by their owner.
func (b *Board) GroupByCorporation(tiles []PlacedTile) map[CorpID][]PlacedTile {
	groups := make(map[CorpID][]PlacedTile)
	for _, t := range tiles {
		groups[t.BelongsTo] = append(groups[t.BelongsTo], t)
	}
	return groups
}

// Assign rewrites ownership for the given tiles in place.
func (b *Board) Assign(tiles []PlacedTile, c CorpID) {
	for _, t := range tiles {
		if cell := b.cells[t.Position.index()]; cell != nil {
			cell.BelongsTo = c
		}
	}
}

// NeighbourCorporations returns the distinct corporations owning tiles next
// to pos, excluding incorporated ones.
func (b *Board) NeighbourCorporations(pos Position) []CorpID {
	seen := make(map[CorpID]bool, 4)
	var out []CorpID
	for _, n := range pos.neighbours() {
		t := b.cells[n.index()]
		if t == nil || t.BelongsTo == CorpIncorporated || seen[t.BelongsTo] {
			continue
		}
		seen[t.BelongsTo] = true
		out = append(out, t.BelongsTo)
	}
	return out
}
