package game

import (
	"sort"

	"acquire-backend/internal/apperr"
)

// MergeContext is the merge-flow variant of the state machine's metadata.
// It lives from the triggering placement until the final end-merge. The
// defunct queue is ordered smallest chain first; ties pause the flow in a
// selection state with Candidates set.
type MergeContext struct {
	Position          Position `json:"position"`
	Participants      []CorpID `json:"participants"`
	Acquirer          CorpID   `json:"acquirer,omitempty"`
	Defunct           CorpID   `json:"defunct,omitempty"`
	DefunctPrice      int      `json:"defunctPrice,omitempty"`
	DefunctsRemaining []CorpID `json:"defunctsRemaining,omitempty"`
	Candidates        []CorpID `json:"candidates,omitempty"`

	// Shareholder walk for the current defunct. WalkOrder holds usernames,
	// seat order starting from the placing player.
	WalkOrder   []string `json:"walkOrder,omitempty"`
	WalkPos     int      `json:"walkPos"`
	Dealt       bool     `json:"dealt"`
	AwaitingEnd bool     `json:"awaitingEnd"`
}

// currentShareholder names whose deal window is open.
func (mc *MergeContext) currentShareholder() (string, bool) {
	if mc.AwaitingEnd || mc.WalkPos >= len(mc.WalkOrder) {
		return "", false
	}
	return mc.WalkOrder[mc.WalkPos], true
}

func (mc *MergeContext) hasCandidate(id CorpID) bool {
	for _, c := range mc.Candidates {
		if c == id {
			return true
		}
	}
	return false
}

// startMerge initiates merge resolution for the active chains touching the
// placement. Ties at the top go to client arbitration before any bonus is
// paid: merge-conflict for two or three participants, acquirer-selection
// beyond that.
func (g *Game) startMerge(pos Position, actives []*Corporation) error {
	sorted := make([]*Corporation, len(actives))
	copy(sorted, actives)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Size > sorted[j].Size
	})

	mc := &MergeContext{Position: pos}
	for _, c := range sorted {
		mc.Participants = append(mc.Participants, c.ID)
	}
	g.merge = mc

	var tied []CorpID
	for _, c := range sorted {
		if c.Size == sorted[0].Size {
			tied = append(tied, c.ID)
		}
	}
	if len(tied) > 1 {
		mc.Candidates = tied
		if len(sorted) <= 3 {
			return g.sm.Transition(StateMergeConflict)
		}
		return g.sm.Transition(StateAcquirerSelection)
	}

	mc.Acquirer = sorted[0].ID
	mc.DefunctsRemaining = g.defunctQueue(mc)
	if err := g.sm.Transition(StateMerge); err != nil {
		return err
	}
	return g.beginNextDefunct()
}

// defunctQueue orders every non-acquirer participant smallest first.
func (g *Game) defunctQueue(mc *MergeContext) []CorpID {
	var out []CorpID
	for _, id := range mc.Participants {
		if id != mc.Acquirer {
			out = append(out, id)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := g.market.Corporation(out[i])
		b, _ := g.market.Corporation(out[j])
		return a.Size < b.Size
	})
	return out
}

// beginNextDefunct starts the next defunct's step, or pauses in
// defunct-selection when the smallest remaining chains tie. Callers must
// have moved the machine to merge first.
func (g *Game) beginNextDefunct() error {
	mc := g.merge
	if mc == nil || len(mc.DefunctsRemaining) == 0 {
		return apperr.New(apperr.Internal, "no defunct left to process")
	}
	first, _ := g.market.Corporation(mc.DefunctsRemaining[0])
	var tied []CorpID
	for _, id := range mc.DefunctsRemaining {
		if c, _ := g.market.Corporation(id); c.Size == first.Size {
			tied = append(tied, id)
		}
	}
	if len(tied) > 1 {
		mc.Candidates = tied
		return g.sm.Transition(StateDefunctSelection)
	}
	mc.DefunctsRemaining = mc.DefunctsRemaining[1:]
	g.beginDefunctStep(first.ID)
	return nil
}

// beginDefunctStep pays the defunct's bonuses and opens the shareholder
// walk. The machine is already in merge.
func (g *Game) beginDefunctStep(id CorpID) {
	mc := g.merge
	mc.Defunct = id
	mc.Candidates = nil

	c, _ := g.market.Corporation(id)
	mc.DefunctPrice = c.Stats().Price
	payouts := g.market.DistributeBonuses(g.players, id, mc.DefunctPrice)
	g.recorder.Record(ActivityMerge, map[string]any{
		"phase":   "bonuses",
		"defunct": id,
		"price":   mc.DefunctPrice,
		"payouts": payouts,
	})

	mc.WalkOrder = nil
	for i := 0; i < len(g.players); i++ {
		p := g.players[(g.current+i)%len(g.players)]
		if p.SharesOf(id) > 0 {
			mc.WalkOrder = append(mc.WalkOrder, p.Username)
		}
	}
	mc.WalkPos = 0
	mc.Dealt = false
	mc.AwaitingEnd = len(mc.WalkOrder) == 0
}

// ResolveConflict settles a tied two- or three-way merge: the placing
// player names the surviving chain and its first victim. Processing order
// still runs smallest chain first.
func (g *Game) ResolveConflict(username string, acquirer, defunct CorpID) error {
	if _, err := g.requireTurn(username, StateMergeConflict); err != nil {
		return err
	}
	mc := g.merge
	if !mc.hasCandidate(acquirer) || !mc.hasCandidate(defunct) || acquirer == defunct {
		return apperr.New(apperr.State, "%s and %s do not resolve this merge", acquirer, defunct)
	}
	mc.Acquirer = acquirer
	mc.Candidates = nil
	mc.DefunctsRemaining = g.defunctQueue(mc)
	g.recorder.Record(ActivityMergeConflict, map[string]any{
		"player":   username,
		"acquirer": acquirer,
		"defunct":  defunct,
	})
	if err := g.sm.Transition(StateMerge); err != nil {
		return err
	}
	return g.beginNextDefunct()
}

// ResolveAcquirer settles a tie between four or more chains: the placing
// player names the survivor and everything else queues up as defunct.
func (g *Game) ResolveAcquirer(username string, acquirer CorpID) error {
	if _, err := g.requireTurn(username, StateAcquirerSelection); err != nil {
		return err
	}
	mc := g.merge
	if !mc.hasCandidate(acquirer) {
		return apperr.New(apperr.State, "%s is not a candidate acquirer", acquirer)
	}
	mc.Acquirer = acquirer
	mc.Candidates = nil
	mc.DefunctsRemaining = g.defunctQueue(mc)
	g.recorder.Record(ActivityAcquirerSelection, map[string]any{
		"player":   username,
		"acquirer": acquirer,
	})
	if err := g.sm.Transition(StateMerge); err != nil {
		return err
	}
	return g.beginNextDefunct()
}

// ConfirmDefunct picks which of the equal-sized chains dissolves next.
func (g *Game) ConfirmDefunct(username string, defunct CorpID) error {
	if _, err := g.requireTurn(username, StateDefunctSelection); err != nil {
		return err
	}
	mc := g.merge
	if !mc.hasCandidate(defunct) {
		return apperr.New(apperr.State, "%s is not a candidate defunct", defunct)
	}
	rest := mc.DefunctsRemaining[:0]
	for _, id := range mc.DefunctsRemaining {
		if id != defunct {
			rest = append(rest, id)
		}
	}
	mc.DefunctsRemaining = rest
	g.recorder.Record(ActivityDefunctSelection, map[string]any{
		"player":  username,
		"defunct": defunct,
	})
	if err := g.sm.Transition(StateMerge); err != nil {
		return err
	}
	g.beginDefunctStep(defunct)
	return nil
}

// MergerDeal applies one shareholder's sell/trade decision. Each
// shareholder gets a single deal per defunct; the remainder is kept (and
// forfeited at absorption).
func (g *Game) MergerDeal(username string, sell, trade int) error {
	if err := g.requireState(StateMerge); err != nil {
		return err
	}
	mc := g.merge
	cur, ok := mc.currentShareholder()
	if !ok {
		return apperr.New(apperr.State, "merger is already resolved, waiting for end-merge")
	}
	if cur != username {
		return apperr.New(apperr.State, "it is not your merger turn")
	}
	if mc.Dealt {
		return apperr.New(apperr.State, "you already dealt this merger turn")
	}
	if sell < 0 || trade < 0 {
		return apperr.New(apperr.Validation, "deal amounts cannot be negative")
	}
	p, ok := g.playerByName(username)
	if !ok {
		return apperr.New(apperr.State, "%s is not in this game", username)
	}
	if sell+trade > p.SharesOf(mc.Defunct) {
		return apperr.New(apperr.State, "deal of %d shares exceeds the %d held", sell+trade, p.SharesOf(mc.Defunct))
	}
	acq, _ := g.market.Corporation(mc.Acquirer)
	if trade/2 > acq.RemainingShares {
		return apperr.New(apperr.Conflict, "only %d %s shares remain to trade for", acq.RemainingShares, mc.Acquirer)
	}
	if sell > 0 {
		if err := g.market.Sell(p, mc.Defunct, sell, mc.DefunctPrice); err != nil {
			return err
		}
	}
	if trade > 0 {
		if err := g.market.Trade(p, mc.Defunct, mc.Acquirer, trade); err != nil {
			return err
		}
	}
	mc.Dealt = true
	g.recorder.Record(ActivityMerge, map[string]any{
		"phase":  "deal",
		"player": username,
		"sell":   sell,
		"trade":  trade,
	})
	return nil
}

// MergerEndTurn closes the current shareholder's deal window.
func (g *Game) MergerEndTurn(username string) error {
	if err := g.requireState(StateMerge); err != nil {
		return err
	}
	mc := g.merge
	cur, ok := mc.currentShareholder()
	if !ok {
		return apperr.New(apperr.State, "merger is already resolved, waiting for end-merge")
	}
	if cur != username {
		return apperr.New(apperr.State, "it is not your merger turn")
	}
	mc.WalkPos++
	mc.Dealt = false
	if mc.WalkPos >= len(mc.WalkOrder) {
		mc.AwaitingEnd = true
	}
	return nil
}

// EndMerge seals the current defunct once every shareholder has acted: its
// tiles and the newly connected incorporated ones move to the acquirer,
// kept shares are forfeited, and play continues with the next defunct or
// the buy phase.
func (g *Game) EndMerge(username string) error {
	if _, err := g.requireTurn(username, StateMerge); err != nil {
		return err
	}
	mc := g.merge
	if !mc.AwaitingEnd {
		return apperr.New(apperr.State, "shareholders are still dealing")
	}

	component := g.board.ConnectedComponent(mc.Position)
	var absorbed []PlacedTile
	for _, t := range component {
		if t.BelongsTo == mc.Defunct || t.BelongsTo == CorpIncorporated {
			absorbed = append(absorbed, t)
		}
	}
	g.board.Assign(absorbed, mc.Acquirer)
	acq, _ := g.market.Corporation(mc.Acquirer)
	acq.Grow(len(absorbed))
	if acq.MarkSafe() {
		g.markUnplayableTiles()
	}
	g.market.Absorb(g.players, mc.Defunct)
	g.recorder.Record(ActivityMerge, map[string]any{
		"phase":    "absorbed",
		"acquirer": mc.Acquirer,
		"defunct":  mc.Defunct,
		"tiles":    len(absorbed),
	})

	if len(mc.DefunctsRemaining) > 0 {
		if err := g.sm.Transition(StateMerge); err != nil {
			return err
		}
		return g.beginNextDefunct()
	}
	g.merge = nil
	return g.sm.Transition(StateBuyStocks)
}
