package game

import (
	"sort"

	"acquire-backend/internal/apperr"
)

// Game runs one match. It is not safe for concurrent use; the lobby
// manager's record lock serializes callers.
type Game struct {
	board    *Board
	stack    *TileStack
	market   *StockMarket
	recorder *TurnRecorder
	sm       *StateMachine

	players []*Player
	current int

	// establishPos is set while the machine sits in establish-corporation;
	// merge is set through the whole merge flow. Exactly the context the
	// current state needs, nothing else.
	establishPos *Position
	merge        *MergeContext

	result *EndResult
}

const (
	MinPlayers = 2
	MaxPlayers = 6
)

// NewGame deals a fresh match for the given seats. Each player gets $6,000
// and six tiles; one order tile per player fixes the seating and opens the
// board.
func NewGame(usernames []string, shuffle ShuffleFunc) (*Game, error) {
	if len(usernames) < MinPlayers || len(usernames) > MaxPlayers {
		return nil, apperr.New(apperr.Validation, "a game needs %d to %d players, got %d", MinPlayers, MaxPlayers, len(usernames))
	}
	seen := make(map[string]bool, len(usernames))
	for _, u := range usernames {
		if u == "" || seen[u] {
			return nil, apperr.New(apperr.Validation, "player names must be distinct and non-empty")
		}
		seen[u] = true
	}

	g := &Game{
		board:    NewBoard(),
		stack:    NewTileStack(shuffle),
		market:   NewStockMarket(),
		recorder: NewTurnRecorder(),
		sm:       NewStateMachine(),
	}
	for _, u := range usernames {
		g.players = append(g.players, NewPlayer(u))
	}
	for _, p := range g.players {
		p.Hand = g.stack.DrawMany(HandSize)
	}

	// Order tiles decide the seating and seed the board as incorporated
	// singles.
	type orderDraw struct {
		player *Player
		tile   Tile
	}
	draws := make([]orderDraw, 0, len(g.players))
	for _, p := range g.players {
		t, ok := g.stack.Draw()
		if !ok {
			return nil, apperr.New(apperr.Internal, "tile stack exhausted during setup")
		}
		draws = append(draws, orderDraw{player: p, tile: t})
	}
	sort.SliceStable(draws, func(i, j int) bool {
		return draws[i].tile.Position.Less(draws[j].tile.Position)
	})
	g.players = g.players[:0]
	for _, d := range draws {
		g.players = append(g.players, d.player)
		if err := g.board.Place(d.tile.Position); err != nil {
			return nil, err
		}
	}

	if err := g.sm.Transition(StatePlaceTile); err != nil {
		return nil, err
	}
	g.current = 0
	g.players[0].TakingTurn = true
	g.recorder.Begin(g.players[0].Username)
	return g, nil
}

// ---- Lookups ----

// State returns the current flow node.
func (g *Game) State() GameState { return g.sm.Current() }

// CurrentPlayer names whose turn it is.
func (g *Game) CurrentPlayer() string { return g.players[g.current].Username }

// Finished reports whether the match reached game-end.
func (g *Game) Finished() bool { return g.sm.Is(StateGameEnd) }

// Result returns the final report once the match has ended.
func (g *Game) Result() (*EndResult, error) {
	if g.result == nil {
		return nil, apperr.New(apperr.State, "the game has not ended")
	}
	return g.result, nil
}

func (g *Game) playerByName(username string) (*Player, bool) {
	for _, p := range g.players {
		if p.Username == username {
			return p, true
		}
	}
	return nil, false
}

// HasPlayer reports whether username holds a seat.
func (g *Game) HasPlayer(username string) bool {
	_, ok := g.playerByName(username)
	return ok
}

func (g *Game) requireState(s GameState) error {
	if !g.sm.Is(s) {
		return apperr.New(apperr.State, "action not allowed while the game is in %s", g.sm.Current())
	}
	return nil
}

// requireTurn gates actions to the placing player in the given state.
func (g *Game) requireTurn(username string, s GameState) (*Player, error) {
	if err := g.requireState(s); err != nil {
		return nil, err
	}
	p := g.players[g.current]
	if p.Username != username {
		return nil, apperr.New(apperr.State, "it is not your turn")
	}
	return p, nil
}

// ---- Actions ----

// PlaceTile plays one hand tile onto the board and resolves what the new
// adjacency means: establish, growth, merge arbitration, or nothing.
func (g *Game) PlaceTile(username string, pos Position) error {
	p, err := g.requireTurn(username, StatePlaceTile)
	if err != nil {
		return err
	}
	if !pos.Valid() {
		return apperr.New(apperr.Validation, "position (%d,%d) is off the board", pos.Row, pos.Col)
	}
	idx, ok := p.tileAt(pos)
	if !ok {
		return apperr.New(apperr.State, "you do not hold tile %s", pos.Label())
	}
	if p.Hand[idx].Exchangeable {
		return apperr.New(apperr.State, "tile %s is dead and must be exchanged", pos.Label())
	}
	if err := g.board.Place(pos); err != nil {
		return err
	}
	p.Hand[idx].Placed = true
	g.recorder.Record(ActivityTilePlace, map[string]any{
		"player":   username,
		"position": pos,
	})
	return g.resolvePlacement(pos)
}

// resolvePlacement applies the decision rules over the fresh connected
// component.
func (g *Game) resolvePlacement(pos Position) error {
	component := g.board.ConnectedComponent(pos)
	groups := g.board.GroupByCorporation(component)

	var actives []*Corporation
	for id := range groups {
		if id == CorpIncorporated {
			continue
		}
		if c, ok := g.market.Corporation(id); ok {
			actives = append(actives, c)
		}
	}
	sort.Slice(actives, func(i, j int) bool { return actives[i].ID < actives[j].ID })

	switch len(actives) {
	case 0:
		if len(component) >= 2 && g.market.HasInactive() {
			g.establishPos = &pos
			return g.sm.Transition(StateEstablishCorp)
		}
		return g.sm.Transition(StateBuyStocks)
	case 1:
		c := actives[0]
		unclaimed := groups[CorpIncorporated]
		g.board.Assign(unclaimed, c.ID)
		c.Grow(len(unclaimed))
		if c.MarkSafe() {
			g.markUnplayableTiles()
		}
		return g.sm.Transition(StateBuyStocks)
	default:
		return g.startMerge(pos, actives)
	}
}

// Establish founds corp on the component around the pending placement and
// grants the founder a free share when one is available.
func (g *Game) Establish(username string, corp CorpID) error {
	p, err := g.requireTurn(username, StateEstablishCorp)
	if err != nil {
		return err
	}
	if !corp.Valid() {
		return apperr.New(apperr.Validation, "unknown corporation %q", corp)
	}
	c, _ := g.market.Corporation(corp)
	if c.Active {
		return apperr.New(apperr.State, "%s is already on the board", corp)
	}
	if g.establishPos == nil {
		return apperr.New(apperr.Internal, "no placement pending establishment")
	}

	component := g.board.ConnectedComponent(*g.establishPos)
	unclaimed := g.board.GroupByCorporation(component)[CorpIncorporated]
	g.board.Assign(unclaimed, corp)
	c.Establish()
	c.Grow(len(unclaimed))
	if c.RemainingShares >= 1 {
		p.addShares(corp, 1)
		c.RemainingShares--
	}
	if c.MarkSafe() {
		g.markUnplayableTiles()
	}
	g.recorder.Record(ActivityEstablish, map[string]any{
		"player":      username,
		"corporation": corp,
	})
	g.establishPos = nil
	return g.sm.Transition(StateBuyStocks)
}

// BuyStocks applies up to three purchases at the submitted prices. Orders
// the market cannot honor are skipped, not failed.
func (g *Game) BuyStocks(username string, entries []BuyEntry) error {
	p, err := g.requireTurn(username, StateBuyStocks)
	if err != nil {
		return err
	}
	if len(entries) > 3 {
		entries = entries[:3]
	}
	for _, e := range entries {
		if !e.Corporation.Valid() {
			return apperr.New(apperr.Validation, "unknown corporation %q", e.Corporation)
		}
		if e.Price < 0 {
			return apperr.New(apperr.Validation, "price cannot be negative")
		}
	}
	done := g.market.BuyBatch(p, entries)
	g.recorder.Record(ActivityBuyStocks, map[string]any{
		"player":    username,
		"purchases": done,
	})
	return g.sm.Transition(StateTilePlaced)
}

// EndTurn closes the turn: either the match ends, or the hand refills and
// play rotates.
func (g *Game) EndTurn(username string) error {
	p, err := g.requireTurn(username, StateTilePlaced)
	if err != nil {
		return err
	}
	if g.endConditionMet() {
		return g.finishGame()
	}

	g.refillHand(p)
	p.TakingTurn = false
	g.current = (g.current + 1) % len(g.players)
	next := g.players[g.current]
	next.TakingTurn = true
	if err := g.sm.Transition(StatePlaceTile); err != nil {
		return err
	}
	g.recorder.Begin(next.Username)
	return nil
}

// refillHand replaces the placed slot first, then swaps out dead tiles.
// Swapped tiles go back under the pile so the 108 count holds; when the
// pile is empty the hand simply shrinks.
func (g *Game) refillHand(p *Player) {
	p.NewlyRefilledTile = nil
	kept := p.Hand[:0]
	for _, t := range p.Hand {
		if !t.Placed {
			kept = append(kept, t)
			continue
		}
		fresh, ok := g.stack.Draw()
		if !ok {
			continue
		}
		kept = append(kept, fresh)
		drawn := fresh
		p.NewlyRefilledTile = &drawn
	}
	p.Hand = kept

	for i := range p.Hand {
		if !p.Hand[i].Exchangeable {
			continue
		}
		fresh, ok := g.stack.Draw()
		if !ok {
			break
		}
		g.stack.Return(p.Hand[i])
		p.Hand[i] = fresh
	}
	g.markUnplayableFor(p)
}

// markUnplayableTiles re-flags every hand after a chain turns safe.
func (g *Game) markUnplayableTiles() {
	for _, p := range g.players {
		g.markUnplayableFor(p)
	}
}

func (g *Game) markUnplayableFor(p *Player) {
	for i := range p.Hand {
		t := &p.Hand[i]
		if t.Placed || t.Exchangeable {
			continue
		}
		safe := 0
		for _, id := range g.board.NeighbourCorporations(t.Position) {
			if c, ok := g.market.Corporation(id); ok && c.Safe {
				safe++
			}
		}
		if safe >= 2 {
			t.Exchangeable = true
		}
	}
}

// ---- Game end ----

// EndResult is the final report served by the end-result endpoint.
type EndResult struct {
	Players []Standing   `json:"players"`
	Bonuses []FinalBonus `json:"bonuses"`
}

// Standing is one row of the final ranking.
type Standing struct {
	Username string `json:"username"`
	Balance  int    `json:"balance"`
}

// FinalBonus is one payout made during the closing distribution.
type FinalBonus struct {
	Corporation CorpID `json:"corporation"`
	Username    string `json:"username"`
	Amount      int    `json:"amount"`
}

// endConditionMet: at least one chain is active, and either some chain
// reached the end-game size or every active chain is safe.
func (g *Game) endConditionMet() bool {
	actives := g.market.ActiveCorporations()
	if len(actives) == 0 {
		return false
	}
	allSafe := true
	for _, c := range actives {
		if c.Size >= EndGameSize {
			return true
		}
		if !c.Safe {
			allSafe = false
		}
	}
	return allSafe
}

// finishGame pays every active chain's bonuses once, liquidates them, and
// compiles the ranking.
func (g *Game) finishGame() error {
	result := &EndResult{}
	for _, c := range g.market.ActiveCorporations() {
		price := c.Stats().Price
		for _, payout := range g.market.DistributeBonuses(g.players, c.ID, price) {
			result.Bonuses = append(result.Bonuses, FinalBonus{
				Corporation: c.ID,
				Username:    payout.Username,
				Amount:      payout.Amount,
			})
		}
		g.market.Liquidate(g.players, c.ID, price)
	}

	ranked := make([]*Player, len(g.players))
	copy(ranked, g.players)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Balance > ranked[j].Balance
	})
	for _, p := range ranked {
		result.Players = append(result.Players, Standing{Username: p.Username, Balance: p.Balance})
	}

	g.players[g.current].TakingTurn = false
	g.result = result
	return g.sm.Transition(StateGameEnd)
}
