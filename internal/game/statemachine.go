package game

import "acquire-backend/internal/apperr"

// GameState enumerates the turn-flow nodes.
type GameState string

const (
	StateSetup             GameState = "setup"
	StatePlaceTile         GameState = "place-tile"
	StateTilePlaced        GameState = "tile-placed"
	StateEstablishCorp     GameState = "establish-corporation"
	StateBuyStocks         GameState = "buy-stocks"
	StateMerge             GameState = "merge"
	StateMergeConflict     GameState = "merge-conflict"
	StateAcquirerSelection GameState = "acquirer-selection"
	StateDefunctSelection  GameState = "defunct-selection"
	StateGameEnd           GameState = "game-end"
)

// validTransitions is the complete turn-flow graph. Anything absent is
// rejected by Transition.
var validTransitions = map[GameState][]GameState{
	StateSetup:             {StatePlaceTile},
	StatePlaceTile:         {StateTilePlaced, StateEstablishCorp, StateBuyStocks, StateMerge, StateMergeConflict, StateAcquirerSelection},
	StateTilePlaced:        {StatePlaceTile, StateGameEnd},
	StateEstablishCorp:     {StateBuyStocks},
	StateBuyStocks:         {StateTilePlaced},
	StateMerge:             {StateBuyStocks, StateMerge, StateAcquirerSelection, StateDefunctSelection},
	StateMergeConflict:     {StateMerge},
	StateAcquirerSelection: {StateMerge, StateDefunctSelection},
	StateDefunctSelection:  {StateMerge},
	StateGameEnd:           {},
}

// StateMachine guards the current state. Transition validates against the
// table; Force is reserved for snapshot loads.
type StateMachine struct {
	current GameState
}

func NewStateMachine() *StateMachine {
	return &StateMachine{current: StateSetup}
}

func (sm *StateMachine) Current() GameState { return sm.current }

func (sm *StateMachine) Is(s GameState) bool { return sm.current == s }

// Transition moves to the target state if the table allows it.
func (sm *StateMachine) Transition(to GameState) error {
	for _, next := range validTransitions[sm.current] {
		if next == to {
			sm.current = to
			return nil
		}
	}
	return apperr.New(apperr.State, "cannot move from %s to %s", sm.current, to)
}

// Force sets the state without validation.
func (sm *StateMachine) Force(to GameState) { sm.current = to }
