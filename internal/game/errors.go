package game

import "errors"

// Rejections are values, never panics; the room loop turns them into
// action acks without unwinding.
var (
	ErrInvalidAction  = errors.New("invalid_action")
	ErrNotYourTurn    = errors.New("not_your_turn")
	ErrWrongPhase     = errors.New("wrong_phase")
	ErrUnknownPlayer  = errors.New("unknown_player")
	ErrGameOver       = errors.New("game_over")
	ErrWrongGameState = errors.New("wrong_game_state")
)
