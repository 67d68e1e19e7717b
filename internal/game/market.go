package game

import (
	"sort"

	"acquire-backend/internal/apperr"
)

// StockMarket is the sole authority for share movement between players and
// the bank. Price is always an argument: the orchestrator charges the
// submitted price on buys and the sheet price on sells, bonuses and
// liquidation.
type StockMarket struct {
	corps map[CorpID]*Corporation
}

func NewStockMarket() *StockMarket {
	m := &StockMarket{corps: make(map[CorpID]*Corporation, len(AllCorps))}
	for _, id := range AllCorps {
		m.corps[id] = NewCorporation(id)
	}
	return m
}

// Corporation looks up one chain's ledger row.
func (m *StockMarket) Corporation(id CorpID) (*Corporation, bool) {
	c, ok := m.corps[id]
	return c, ok
}

// Corporations returns the ledger in display order.
func (m *StockMarket) Corporations() []*Corporation {
	out := make([]*Corporation, 0, len(AllCorps))
	for _, id := range AllCorps {
		out = append(out, m.corps[id])
	}
	return out
}

// ActiveCorporations returns the active chains in display order.
func (m *StockMarket) ActiveCorporations() []*Corporation {
	var out []*Corporation
	for _, id := range AllCorps {
		if c := m.corps[id]; c.Active {
			out = append(out, c)
		}
	}
	return out
}

// HasInactive reports whether any chain is still establishable.
func (m *StockMarket) HasInactive() bool {
	for _, c := range m.corps {
		if !c.Active {
			return true
		}
	}
	return false
}

// BuyEntry is one line of a purchase order. Name matches the wire field.
type BuyEntry struct {
	Corporation CorpID `json:"name"`
	Price       int    `json:"price"`
}

// Buy moves one share from the bank to p at the given price.
func (m *StockMarket) Buy(p *Player, id CorpID, price int) error {
	c, ok := m.corps[id]
	if !ok {
		return apperr.New(apperr.Validation, "unknown corporation %q", id)
	}
	if !c.Active {
		return apperr.New(apperr.Conflict, "%s is not an active corporation", id)
	}
	if c.RemainingShares < 1 {
		return apperr.New(apperr.Conflict, "no %s shares remain", id)
	}
	if err := p.Debit(price); err != nil {
		return err
	}
	p.addShares(id, 1)
	c.RemainingShares--
	return nil
}

// BuyBatch applies entries in order. Entries that cannot be honored are
// skipped rather than failing the batch; shares bought earlier in the batch
// count against availability. The applied entries are returned for the turn
// transcript.
func (m *StockMarket) BuyBatch(p *Player, entries []BuyEntry) []BuyEntry {
	var done []BuyEntry
	for _, e := range entries {
		if err := m.Buy(p, e.Corporation, e.Price); err != nil {
			continue
		}
		done = append(done, e)
	}
	return done
}

// Sell returns n shares to the bank at price each.
func (m *StockMarket) Sell(p *Player, id CorpID, n, price int) error {
	c, ok := m.corps[id]
	if !ok {
		return apperr.New(apperr.Validation, "unknown corporation %q", id)
	}
	if n < 0 {
		return apperr.New(apperr.Validation, "cannot sell %d shares", n)
	}
	if err := p.removeShares(id, n); err != nil {
		return err
	}
	p.Credit(n * price)
	c.RemainingShares += n
	return nil
}

// Trade converts n defunct shares into ⌊n/2⌋ acquirer shares. An odd share
// is forfeited with no compensation.
func (m *StockMarket) Trade(p *Player, defunct, acquirer CorpID, n int) error {
	d, ok := m.corps[defunct]
	if !ok {
		return apperr.New(apperr.Validation, "unknown corporation %q", defunct)
	}
	a, ok := m.corps[acquirer]
	if !ok {
		return apperr.New(apperr.Validation, "unknown corporation %q", acquirer)
	}
	if n < 0 {
		return apperr.New(apperr.Validation, "cannot trade %d shares", n)
	}
	granted := n / 2
	if granted > a.RemainingShares {
		return apperr.New(apperr.Conflict, "only %d %s shares remain, %d needed", a.RemainingShares, acquirer, granted)
	}
	if err := p.removeShares(defunct, n); err != nil {
		return err
	}
	d.RemainingShares += n
	p.addShares(acquirer, granted)
	a.RemainingShares -= granted
	return nil
}

// Groups partitions the holders of one chain for bonus distribution.
type Groups struct {
	Majority []*Player
	Minority []*Player
}

// ShareholderGroups partitions players holding at least one share of id by
// descending count. Majority is the top-count group; minority is the next
// distinct count. A tied majority with no second count makes the minority
// the majority players themselves.
func (m *StockMarket) ShareholderGroups(players []*Player, id CorpID) Groups {
	var holders []*Player
	for _, p := range players {
		if p.SharesOf(id) > 0 {
			holders = append(holders, p)
		}
	}
	if len(holders) == 0 {
		return Groups{}
	}
	sort.SliceStable(holders, func(i, j int) bool {
		return holders[i].SharesOf(id) > holders[j].SharesOf(id)
	})

	top := holders[0].SharesOf(id)
	var g Groups
	i := 0
	for ; i < len(holders) && holders[i].SharesOf(id) == top; i++ {
		g.Majority = append(g.Majority, holders[i])
	}
	if i == len(holders) {
		if len(g.Majority) > 1 {
			g.Minority = g.Majority
		}
		return g
	}
	second := holders[i].SharesOf(id)
	for ; i < len(holders) && holders[i].SharesOf(id) == second; i++ {
		g.Minority = append(g.Minority, holders[i])
	}
	return g
}

// BonusPayout is one player's cut of a majority/minority distribution.
type BonusPayout struct {
	Username string `json:"username"`
	Amount   int    `json:"amount"`
}

// DistributeBonuses pays the holder groups of id at the given share price.
// A tied majority pools both bonuses and splits them with floored division;
// the minority group then gets nothing. Residuals vanish.
func (m *StockMarket) DistributeBonuses(players []*Player, id CorpID, price int) []BonusPayout {
	g := m.ShareholderGroups(players, id)
	if len(g.Majority) == 0 {
		return nil
	}
	majority := 10 * price
	minority := 5 * price

	var payouts []BonusPayout
	pay := func(p *Player, amount int) {
		p.Credit(amount)
		payouts = append(payouts, BonusPayout{Username: p.Username, Amount: amount})
	}

	if len(g.Majority) > 1 || len(g.Minority) == 0 {
		cut := (majority + minority) / len(g.Majority)
		for _, p := range g.Majority {
			pay(p, cut)
		}
		return payouts
	}
	pay(g.Majority[0], majority)
	cut := minority / len(g.Minority)
	for _, p := range g.Minority {
		pay(p, cut)
	}
	return payouts
}

// Liquidate sells every holder's shares of id at price and retires the
// chain.
func (m *StockMarket) Liquidate(players []*Player, id CorpID, price int) {
	c, ok := m.corps[id]
	if !ok {
		return
	}
	for _, p := range players {
		if n := p.SharesOf(id); n > 0 {
			p.Credit(n * price)
			p.removeShares(id, n)
		}
	}
	c.Reset()
}

// Absorb retires a defunct chain after a merger. Shares the holders kept
// past their deal window are forfeited and the full float returns to the
// bank.
func (m *StockMarket) Absorb(players []*Player, id CorpID) {
	c, ok := m.corps[id]
	if !ok {
		return
	}
	for _, p := range players {
		if n := p.SharesOf(id); n > 0 {
			p.removeShares(id, n)
		}
	}
	c.Reset()
}
