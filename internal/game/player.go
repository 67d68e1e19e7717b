package game

import "acquire-backend/internal/apperr"

// Player holds one seat's private state. Hand slots keep their order so the
// client's rack stays stable across refills.
type Player struct {
	Username          string         `json:"username"`
	Balance           int            `json:"balance"`
	Hand              []Tile         `json:"hand"`
	Shares            map[CorpID]int `json:"shares"`
	TakingTurn        bool           `json:"takingTurn"`
	NewlyRefilledTile *Tile          `json:"newlyRefilledTile,omitempty"`
}

func NewPlayer(username string) *Player {
	return &Player{
		Username: username,
		Balance:  StartingBalance,
		Shares:   make(map[CorpID]int),
	}
}

// SharesOf returns the held count for one chain.
func (p *Player) SharesOf(id CorpID) int { return p.Shares[id] }

// Credit adds funds.
func (p *Player) Credit(n int) { p.Balance += n }

// Debit fails rather than take the balance negative.
func (p *Player) Debit(n int) error {
	if n > p.Balance {
		return apperr.New(apperr.State, "balance %d cannot cover %d", p.Balance, n)
	}
	p.Balance -= n
	return nil
}

func (p *Player) addShares(id CorpID, n int) {
	if n != 0 {
		p.Shares[id] += n
	}
}

func (p *Player) removeShares(id CorpID, n int) error {
	if p.Shares[id] < n {
		return apperr.New(apperr.State, "%s holds %d %s shares, not %d", p.Username, p.Shares[id], id, n)
	}
	p.Shares[id] -= n
	if p.Shares[id] == 0 {
		delete(p.Shares, id)
	}
	return nil
}

// tileAt finds the un-placed hand slot holding pos.
func (p *Player) tileAt(pos Position) (int, bool) {
	for i, t := range p.Hand {
		if !t.Placed && t.Position == pos {
			return i, true
		}
	}
	return 0, false
}
