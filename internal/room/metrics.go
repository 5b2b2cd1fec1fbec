package room

import "expvar"

var (
	metricRoomsCreated     = expvar.NewInt("room_created_total")
	metricRoomsClosed      = expvar.NewInt("room_closed_total")
	metricGamesStarted     = expvar.NewInt("room_games_started_total")
	metricGamesSettled     = expvar.NewInt("room_games_settled_total")
	metricRoundsSettled    = expvar.NewInt("room_rounds_settled_total")
	metricActionsApplied   = expvar.NewInt("room_actions_applied_total")
	metricTurnTimeouts     = expvar.NewInt("room_turn_timeouts_total")
	metricPlayersAbandoned = expvar.NewInt("room_players_abandoned_total")
)
