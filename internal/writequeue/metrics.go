package writequeue

import "expvar"

var (
	metricQueuedTotal = expvar.NewInt("write_queue_queued_total")
	metricDoneTotal   = expvar.NewInt("write_queue_done_total")
	metricFailedTotal = expvar.NewInt("write_queue_failed_total")
	metricRetryTotal  = expvar.NewInt("write_queue_retry_total")
	metricQueueDepth  = expvar.NewInt("write_queue_depth")
)
