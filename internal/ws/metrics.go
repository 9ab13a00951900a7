package ws

import "expvar"

var (
	metricClients       = expvar.NewInt("ws_clients")
	metricEventsSent    = expvar.NewInt("ws_events_sent_total")
	metricEventsDropped = expvar.NewInt("ws_events_dropped_total")
)
