package game

import "math/rand"

// Tile is a drawable piece. Placed marks a hand slot whose tile went to the
// board and awaits refill; Exchangeable marks a dead hand tile (playing it
// would merge two safe corporations) that is swapped out at the next refill.
type Tile struct {
	Position     Position `json:"position"`
	Placed       bool     `json:"placed"`
	Exchangeable bool     `json:"exchangeable"`
}

// ShuffleFunc permutes the fresh deck. Production uses math/rand; tests
// pass identity or hand-built permutations for deterministic deals.
type ShuffleFunc func(n int, swap func(i, j int))

// DefaultShuffle is the production permutation source.
var DefaultShuffle ShuffleFunc = rand.Shuffle

// TileStack is the draw pile for one game. Draws come off the head; dead
// tiles swapped out of hands go back under the pile so the 108-tile count
// is conserved for the whole game.
type TileStack struct {
	tiles []Tile
}

// NewTileStack builds the full deck, one tile per board cell, and shuffles
// it with the given permutation.
func NewTileStack(shuffle ShuffleFunc) *TileStack {
	if shuffle == nil {
		shuffle = DefaultShuffle
	}
	s := &TileStack{tiles: make([]Tile, 0, TileCount)}
	for row := 0; row < BoardRows; row++ {
		for col := 0; col < BoardCols; col++ {
			s.tiles = append(s.tiles, Tile{Position: Position{Row: row, Col: col}})
		}
	}
	shuffle(len(s.tiles), func(i, j int) {
		s.tiles[i], s.tiles[j] = s.tiles[j], s.tiles[i]
	})
	return s
}

// RestoreTileStack rebuilds a pile from a snapshot, preserving order.
func RestoreTileStack(tiles []Tile) *TileStack {
	s := &TileStack{tiles: make([]Tile, len(tiles))}
	copy(s.tiles, tiles)
	return s
}

// Draw removes and returns the head tile. ok is false once the pile is
// empty.
func (s *TileStack) Draw() (Tile, bool) {
	if len(s.tiles) == 0 {
		return Tile{}, false
	}
	t := s.tiles[0]
	s.tiles = s.tiles[1:]
	return t, true
}

// DrawMany removes up to n tiles from the head.
func (s *TileStack) DrawMany(n int) []Tile {
	if n > len(s.tiles) {
		n = len(s.tiles)
	}
	out := make([]Tile, n)
	copy(out, s.tiles[:n])
	s.tiles = s.tiles[n:]
	return out
}

// Return puts a tile back under the pile with its hand flags cleared.
func (s *TileStack) Return(t Tile) {
	t.Placed = false
	t.Exchangeable = false
	s.tiles = append(s.tiles, t)
}

// Remaining reports how many tiles are left to draw.
func (s *TileStack) Remaining() int { return len(s.tiles) }

// Tiles returns a copy of the pile in draw order, for snapshots.
func (s *TileStack) Tiles() []Tile {
	out := make([]Tile, len(s.tiles))
	copy(out, s.tiles)
	return out
}
