package game

// Status is the per-user snapshot served over HTTP. Other players' hands,
// balances and holdings stay hidden; the viewer appears in Self.
type Status struct {
	State          GameState      `json:"state"`
	CurrentPlayer  string         `json:"currentPlayer"`
	Players        []PublicPlayer `json:"players"`
	Board          []PlacedTile   `json:"board"`
	Corporations   []CorpStatus   `json:"corporations"`
	TilesRemaining int            `json:"tilesRemaining"`
	Self           *SelfStatus    `json:"self,omitempty"`
	Turns          TurnsView      `json:"turns"`
	Merge          *MergeView     `json:"merge,omitempty"`
	Result         *EndResult     `json:"result,omitempty"`
}

// PublicPlayer is what everyone may see about a seat.
type PublicPlayer struct {
	Username   string `json:"username"`
	TakingTurn bool   `json:"takingTurn"`
}

// CorpStatus merges the ledger row with its derived price sheet.
type CorpStatus struct {
	ID              CorpID `json:"id"`
	Active          bool   `json:"active"`
	Size            int    `json:"size"`
	Safe            bool   `json:"safe"`
	RemainingShares int    `json:"remainingShares"`
	Stats
}

// SelfStatus is the viewer's private slice of the game.
type SelfStatus struct {
	Username          string         `json:"username"`
	Balance           int            `json:"balance"`
	Hand              []Tile         `json:"hand"`
	Shares            map[CorpID]int `json:"shares"`
	NewlyRefilledTile *Tile          `json:"newlyRefilledTile,omitempty"`
}

// TurnsView exposes the retained transcripts.
type TurnsView struct {
	Current  *Turn `json:"current,omitempty"`
	Previous *Turn `json:"previous,omitempty"`
}

// MergeView is the client-facing slice of the merge context.
type MergeView struct {
	Acquirer          CorpID   `json:"acquirer,omitempty"`
	Defunct           CorpID   `json:"defunct,omitempty"`
	Candidates        []CorpID `json:"candidates,omitempty"`
	DefunctsRemaining []CorpID `json:"defunctsRemaining,omitempty"`
	Turn              string   `json:"turn,omitempty"`
	AwaitingEndMerge  bool     `json:"awaitingEndMerge"`
}

// Status renders the game as username is allowed to see it. Reads are pure;
// repeated calls with no mutation in between return equal snapshots.
func (g *Game) Status(username string) Status {
	st := Status{
		State:          g.sm.Current(),
		CurrentPlayer:  g.CurrentPlayer(),
		Board:          g.board.Placed(),
		TilesRemaining: g.stack.Remaining(),
		Turns: TurnsView{
			Current:  copyTurn(g.recorder.Current()),
			Previous: copyTurn(g.recorder.Previous()),
		},
		Result: g.result,
	}
	for _, p := range g.players {
		st.Players = append(st.Players, PublicPlayer{Username: p.Username, TakingTurn: p.TakingTurn})
	}
	for _, c := range g.market.Corporations() {
		st.Corporations = append(st.Corporations, CorpStatus{
			ID:              c.ID,
			Active:          c.Active,
			Size:            c.Size,
			Safe:            c.Safe,
			RemainingShares: c.RemainingShares,
			Stats:           c.Stats(),
		})
	}
	if p, ok := g.playerByName(username); ok {
		self := &SelfStatus{
			Username: p.Username,
			Balance:  p.Balance,
			Hand:     append([]Tile(nil), p.Hand...),
			Shares:   make(map[CorpID]int, len(p.Shares)),
		}
		for id, n := range p.Shares {
			self.Shares[id] = n
		}
		if p.NewlyRefilledTile != nil {
			t := *p.NewlyRefilledTile
			self.NewlyRefilledTile = &t
		}
		st.Self = self
	}
	if mc := g.merge; mc != nil {
		view := &MergeView{
			Acquirer:          mc.Acquirer,
			Defunct:           mc.Defunct,
			Candidates:        append([]CorpID(nil), mc.Candidates...),
			DefunctsRemaining: append([]CorpID(nil), mc.DefunctsRemaining...),
			AwaitingEndMerge:  mc.AwaitingEnd,
		}
		if turn, ok := mc.currentShareholder(); ok {
			view.Turn = turn
		}
		st.Merge = view
	}
	return st
}

func copyTurn(t *Turn) *Turn {
	if t == nil {
		return nil
	}
	out := &Turn{Player: t.Player, Activities: append([]Activity(nil), t.Activities...)}
	return out
}
