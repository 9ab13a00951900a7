package realtime

import "expvar"

var (
	metricChangesTotal       = expvar.NewInt("realtime_changes_total")
	metricChangeParseErrors  = expvar.NewInt("realtime_change_parse_errors_total")
	metricListenerReconnects = expvar.NewInt("realtime_listener_reconnects_total")
)
