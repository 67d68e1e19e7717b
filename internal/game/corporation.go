package game

// CorpID names one of the seven chains, or the incorporated sentinel for
// placed tiles that belong to no chain yet.
type CorpID string

const (
	CorpPhoenix CorpID = "phoenix"
	CorpQuantum CorpID = "quantum"
	CorpFusion  CorpID = "fusion"
	CorpHydra   CorpID = "hydra"
	CorpAmerica CorpID = "america"
	CorpSackson CorpID = "sackson"
	CorpZeta    CorpID = "zeta"

	// CorpIncorporated is never active and never tradeable.
	CorpIncorporated CorpID = "incorporated"
)

// AllCorps lists the tradeable chains in display order.
var AllCorps = []CorpID{
	CorpPhoenix, CorpQuantum, CorpFusion, CorpHydra,
	CorpAmerica, CorpSackson, CorpZeta,
}

const (
	TotalShares     = 25
	SafeSize        = 11
	EndGameSize     = 41
	StartingBalance = 6000
	HandSize        = 6
)

// Valid reports whether id is one of the seven tradeable chains.
func (id CorpID) Valid() bool {
	switch id {
	case CorpPhoenix, CorpQuantum, CorpFusion, CorpHydra, CorpAmerica, CorpSackson, CorpZeta:
		return true
	}
	return false
}

// basePrice is the tier base: premium $300, standard $200, budget $100.
func (id CorpID) basePrice() int {
	switch id {
	case CorpPhoenix, CorpQuantum:
		return 300
	case CorpFusion, CorpHydra, CorpAmerica:
		return 200
	case CorpSackson, CorpZeta:
		return 100
	}
	return 0
}

// sizeIncrement is the price-band markup on top of the tier base.
func sizeIncrement(size int) int {
	switch {
	case size < 2:
		return 0
	case size == 2:
		return 100
	case size == 3:
		return 200
	case size == 4:
		return 300
	case size == 5:
		return 400
	case size <= 10:
		return 500
	case size <= 20:
		return 600
	case size <= 30:
		return 700
	case size <= 40:
		return 800
	default:
		return 900
	}
}

// Stats is the derived price sheet row for a chain at its current size.
type Stats struct {
	Price         int `json:"price"`
	MajorityBonus int `json:"majorityBonus"`
	MinorityBonus int `json:"minorityBonus"`
}

// Corporation is the ledger row for one chain. Player-held shares live on
// the players; RemainingShares is the bank float.
type Corporation struct {
	ID              CorpID `json:"id"`
	Active          bool   `json:"active"`
	Size            int    `json:"size"`
	RemainingShares int    `json:"remainingShares"`
	Safe            bool   `json:"safe"`
}

func NewCorporation(id CorpID) *Corporation {
	return &Corporation{ID: id, RemainingShares: TotalShares}
}

// Establish activates the chain. Size is built up by Grow afterwards.
func (c *Corporation) Establish() { c.Active = true }

// Grow adds n tiles to the chain.
func (c *Corporation) Grow(n int) { c.Size += n }

// MarkSafe latches the safe flag once size reaches SafeSize. It reports
// whether the chain became safe on this call, so callers can recompute
// unplayable hand tiles exactly once per lifetime.
func (c *Corporation) MarkSafe() bool {
	if c.Safe || c.Size < SafeSize {
		return false
	}
	c.Safe = true
	return true
}

// Reset returns the chain to the bank after absorption or liquidation.
func (c *Corporation) Reset() {
	c.Active = false
	c.Size = 0
	c.Safe = false
	c.RemainingShares = TotalShares
}

// Stats derives the price sheet row from tier base and size band.
func (c *Corporation) Stats() Stats {
	price := c.ID.basePrice() + sizeIncrement(c.Size)
	return Stats{
		Price:         price,
		MajorityBonus: 10 * price,
		MinorityBonus: 5 * price,
	}
}
