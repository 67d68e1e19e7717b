package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// riggedDeal reorders the fresh deck so the listed positions are drawn
// first. For an n-player game the first 6n draws are the hands in seat
// order, followed by one order tile per seat.
func riggedDeal(order ...Position) ShuffleFunc {
	return func(n int, swap func(i, j int)) {
		slots := make([]int, n) // deck slot → position index
		at := make([]int, n)    // position index → deck slot
		for i := 0; i < n; i++ {
			slots[i] = i
			at[i] = i
		}
		for want, pos := range order {
			cur := at[pos.index()]
			if cur == want {
				continue
			}
			displaced := slots[want]
			swap(want, cur)
			slots[want], slots[cur] = slots[cur], slots[want]
			at[pos.index()] = want
			at[displaced] = cur
		}
	}
}

// twoPlayerDeal rigs hands far apart on the board with order tiles seating
// p1 first. p1 holds (0,0) and (0,1) for the establish flow.
func twoPlayerDeal() ShuffleFunc {
	return riggedDeal(
		// p1 hand
		Position{0, 0}, Position{0, 1}, Position{4, 0}, Position{4, 2}, Position{4, 4}, Position{4, 6},
		// p2 hand
		Position{6, 0}, Position{6, 2}, Position{6, 4}, Position{6, 6}, Position{6, 8}, Position{6, 10},
		// order tiles
		Position{8, 0}, Position{8, 11},
	)
}

func newTestGame(t *testing.T, usernames ...string) *Game {
	t.Helper()
	g, err := NewGame(usernames, twoPlayerDeal())
	require.NoError(t, err)
	return g
}

// playThroughTurn runs place → empty buy → end-turn for the current player.
func playThroughTurn(t *testing.T, g *Game, pos Position) {
	t.Helper()
	player := g.CurrentPlayer()
	require.NoError(t, g.PlaceTile(player, pos))
	require.NoError(t, g.BuyStocks(player, nil))
	require.NoError(t, g.EndTurn(player))
}

// tileConservation asserts unplaced hand slots + board + stack = 108.
func tileConservation(t *testing.T, g *Game) {
	t.Helper()
	total := g.stack.Remaining() + g.board.PlacedCount()
	for _, p := range g.players {
		for _, tile := range p.Hand {
			if !tile.Placed {
				total++
			}
		}
	}
	require.Equal(t, TileCount, total)
}

// singleTurnFlag asserts at most one player has takingTurn set.
func singleTurnFlag(t *testing.T, g *Game) {
	t.Helper()
	count := 0
	for _, p := range g.players {
		if p.TakingTurn {
			count++
		}
	}
	require.LessOrEqual(t, count, 1)
}

// corpSnapshot builds a ledger row for snapshot-based fixtures.
func corpSnapshot(id CorpID, size, remaining int) CorpSnapshot {
	return CorpSnapshot{
		ID:              id,
		Active:          true,
		Size:            size,
		Safe:            size >= SafeSize,
		RemainingShares: remaining,
	}
}

// chain lays size tiles of one corporation in a row starting at start,
// stepping right.
func chain(id CorpID, start Position, size int) []PlacedTile {
	out := make([]PlacedTile, 0, size)
	for i := 0; i < size; i++ {
		out = append(out, PlacedTile{
			Position:  Position{Row: start.Row, Col: start.Col + i},
			BelongsTo: id,
		})
	}
	return out
}

// remainingStack returns every tile not on the board and not in a hand, in
// position order, so snapshot fixtures conserve the full tile count.
func remainingStack(board []PlacedTile, hands ...[]Tile) []Tile {
	used := make(map[int]bool, len(board))
	for _, pt := range board {
		used[pt.Position.index()] = true
	}
	for _, hand := range hands {
		for _, tile := range hand {
			used[tile.Position.index()] = true
		}
	}
	var out []Tile
	for row := 0; row < BoardRows; row++ {
		for col := 0; col < BoardCols; col++ {
			pos := Position{Row: row, Col: col}
			if !used[pos.index()] {
				out = append(out, Tile{Position: pos})
			}
		}
	}
	return out
}

// handOf builds unflagged hand tiles at the given positions.
func handOf(positions ...Position) []Tile {
	out := make([]Tile, 0, len(positions))
	for _, pos := range positions {
		out = append(out, Tile{Position: pos})
	}
	return out
}
