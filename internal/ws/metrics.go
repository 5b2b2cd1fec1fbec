package ws

import "expvar"

var (
	metricConnects      = expvar.NewInt("ws_connects_total")
	metricDisconnects   = expvar.NewInt("ws_disconnects_total")
	metricActions       = expvar.NewInt("ws_actions_total")
	metricEventsSent    = expvar.NewInt("ws_events_sent_total")
	metricEventsDropped = expvar.NewInt("ws_events_dropped_total")
)
