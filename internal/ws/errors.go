package ws

import (
	"errors"

	"game-parlor/internal/game"
	"game-parlor/internal/room"
	"game-parlor/internal/store"
)

// wireErrors are the failures a client can act on; their messages are
// already stable snake_case codes. Anything else is an internal fault
// the client only needs to know happened.
var wireErrors = []error{
	game.ErrInvalidAction,
	game.ErrNotYourTurn,
	game.ErrWrongPhase,
	game.ErrUnknownPlayer,
	game.ErrGameOver,
	store.ErrInsufficientBalance,
	store.ErrWalletFrozen,
	store.ErrNotFound,
	room.ErrRoomClosed,
	room.ErrRoomFull,
	room.ErrRoomStarted,
	room.ErrNotInRoom,
	room.ErrAlreadyIn,
	room.ErrNotHost,
	room.ErrTooFew,
	room.ErrUnknownGameType,
}

func mapError(err error) string {
	if err == nil {
		return ""
	}
	for _, known := range wireErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "internal_error"
}
