package httptransport

import "expvar"

var (
	metricOperationsTotal = expvar.NewInt("http_session_operations_total")
	metricRequestErrors   = expvar.NewInt("http_internal_errors_total")
	metricBeaconsTotal    = expvar.NewInt("http_checkpoint_beacons_total")
)
