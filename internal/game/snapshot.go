package game

import "acquire-backend/internal/apperr"

// Snapshot is the full serializable image of a game. Restore rebuilds a
// Game whose visible state matches the original; the state machine is
// forced, not replayed.
type Snapshot struct {
	State        GameState        `json:"state"`
	Current      int              `json:"currentPlayer"`
	Players      []PlayerSnapshot `json:"players"`
	Board        []PlacedTile     `json:"board"`
	Stack        []Tile           `json:"stack"`
	Corporations []CorpSnapshot   `json:"corporations"`
	EstablishPos *Position        `json:"establishPosition,omitempty"`
	Merge        *MergeContext    `json:"merge,omitempty"`
	Turns        TurnsView        `json:"turns"`
	Result       *EndResult       `json:"result,omitempty"`
}

// PlayerSnapshot mirrors Player field-for-field.
type PlayerSnapshot struct {
	Username          string         `json:"username"`
	Balance           int            `json:"balance"`
	Hand              []Tile         `json:"hand"`
	Shares            map[CorpID]int `json:"shares"`
	TakingTurn        bool           `json:"takingTurn"`
	NewlyRefilledTile *Tile          `json:"newlyRefilledTile,omitempty"`
}

// CorpSnapshot mirrors the ledger row.
type CorpSnapshot struct {
	ID              CorpID `json:"id"`
	Active          bool   `json:"active"`
	Size            int    `json:"size"`
	Safe            bool   `json:"safe"`
	RemainingShares int    `json:"remainingShares"`
}

// Snapshot captures the complete game for a later Restore.
func (g *Game) Snapshot() Snapshot {
	snap := Snapshot{
		State:   g.sm.Current(),
		Current: g.current,
		Board:   g.board.Placed(),
		Stack:   g.stack.Tiles(),
		Turns: TurnsView{
			Current:  copyTurn(g.recorder.Current()),
			Previous: copyTurn(g.recorder.Previous()),
		},
		Result: g.result,
	}
	for _, p := range g.players {
		ps := PlayerSnapshot{
			Username:   p.Username,
			Balance:    p.Balance,
			Hand:       append([]Tile(nil), p.Hand...),
			Shares:     make(map[CorpID]int, len(p.Shares)),
			TakingTurn: p.TakingTurn,
		}
		for id, n := range p.Shares {
			ps.Shares[id] = n
		}
		if p.NewlyRefilledTile != nil {
			t := *p.NewlyRefilledTile
			ps.NewlyRefilledTile = &t
		}
		snap.Players = append(snap.Players, ps)
	}
	for _, c := range g.market.Corporations() {
		snap.Corporations = append(snap.Corporations, CorpSnapshot{
			ID:              c.ID,
			Active:          c.Active,
			Size:            c.Size,
			Safe:            c.Safe,
			RemainingShares: c.RemainingShares,
		})
	}
	if g.establishPos != nil {
		pos := *g.establishPos
		snap.EstablishPos = &pos
	}
	if g.merge != nil {
		mc := *g.merge
		mc.Participants = append([]CorpID(nil), g.merge.Participants...)
		mc.DefunctsRemaining = append([]CorpID(nil), g.merge.DefunctsRemaining...)
		mc.Candidates = append([]CorpID(nil), g.merge.Candidates...)
		mc.WalkOrder = append([]string(nil), g.merge.WalkOrder...)
		snap.Merge = &mc
	}
	return snap
}

// Restore rebuilds a game from a snapshot.
func Restore(snap Snapshot) (*Game, error) {
	if len(snap.Players) < MinPlayers || len(snap.Players) > MaxPlayers {
		return nil, apperr.New(apperr.Validation, "snapshot holds %d players", len(snap.Players))
	}
	if snap.Current < 0 || snap.Current >= len(snap.Players) {
		return nil, apperr.New(apperr.Validation, "snapshot current player %d is out of range", snap.Current)
	}

	g := &Game{
		board:    NewBoard(),
		stack:    RestoreTileStack(snap.Stack),
		market:   NewStockMarket(),
		recorder: RestoreTurnRecorder(snap.Turns.Current, snap.Turns.Previous),
		sm:       NewStateMachine(),
		current:  snap.Current,
		result:   snap.Result,
	}
	for _, pt := range snap.Board {
		if err := g.board.Place(pt.Position); err != nil {
			return nil, err
		}
		if pt.BelongsTo != CorpIncorporated {
			g.board.Assign([]PlacedTile{pt}, pt.BelongsTo)
		}
	}
	for _, ps := range snap.Players {
		p := NewPlayer(ps.Username)
		p.Balance = ps.Balance
		p.Hand = append([]Tile(nil), ps.Hand...)
		p.TakingTurn = ps.TakingTurn
		for id, n := range ps.Shares {
			p.Shares[id] = n
		}
		if ps.NewlyRefilledTile != nil {
			t := *ps.NewlyRefilledTile
			p.NewlyRefilledTile = &t
		}
		g.players = append(g.players, p)
	}
	for _, cs := range snap.Corporations {
		c, ok := g.market.Corporation(cs.ID)
		if !ok {
			return nil, apperr.New(apperr.Validation, "snapshot names unknown corporation %q", cs.ID)
		}
		c.Active = cs.Active
		c.Size = cs.Size
		c.Safe = cs.Safe
		c.RemainingShares = cs.RemainingShares
	}
	if snap.EstablishPos != nil {
		pos := *snap.EstablishPos
		g.establishPos = &pos
	}
	if snap.Merge != nil {
		mc := *snap.Merge
		g.merge = &mc
	}
	g.sm.Force(snap.State)
	return g, nil
}
