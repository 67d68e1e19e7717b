package game

import "encoding/json"

// ActivityKind tags one transcript entry.
type ActivityKind string

const (
	ActivityTilePlace         ActivityKind = "tile-place"
	ActivityEstablish         ActivityKind = "establish"
	ActivityBuyStocks         ActivityKind = "buy-stocks"
	ActivityMergeConflict     ActivityKind = "merge-conflict"
	ActivityAcquirerSelection ActivityKind = "acquirer-selection"
	ActivityDefunctSelection  ActivityKind = "defunct-selection"
	ActivityMerge             ActivityKind = "merge"
)

// Activity is one visible step of a turn. Data is kind-specific and frozen
// to its wire form at record time, so transcripts survive a serialization
// round trip unchanged.
type Activity struct {
	Kind ActivityKind    `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Turn is the transcript of one player's turn.
type Turn struct {
	Player     string     `json:"player"`
	Activities []Activity `json:"activities"`
}

// TurnRecorder keeps the current and the immediately previous transcript.
// Anything older is discarded.
type TurnRecorder struct {
	current  *Turn
	previous *Turn
}

func NewTurnRecorder() *TurnRecorder { return &TurnRecorder{} }

// RestoreTurnRecorder rebuilds a recorder from snapshot transcripts.
func RestoreTurnRecorder(current, previous *Turn) *TurnRecorder {
	return &TurnRecorder{current: current, previous: previous}
}

// Begin rotates the transcripts and opens a turn for player.
func (r *TurnRecorder) Begin(player string) {
	r.previous = r.current
	r.current = &Turn{Player: player}
}

// Record appends an activity to the current turn. An unmarshallable
// payload records the kind alone.
func (r *TurnRecorder) Record(kind ActivityKind, data map[string]any) {
	if r.current == nil {
		return
	}
	var raw json.RawMessage
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			raw = b
		}
	}
	r.current.Activities = append(r.current.Activities, Activity{Kind: kind, Data: raw})
}

func (r *TurnRecorder) Current() *Turn  { return r.current }
func (r *TurnRecorder) Previous() *Turn { return r.previous }
