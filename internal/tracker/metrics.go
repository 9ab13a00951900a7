package tracker

import "expvar"

var (
	metricStatsRecorded        = expvar.NewInt("tracker_stats_recorded_total")
	metricStatRollbacks        = expvar.NewInt("tracker_stat_rollbacks_total")
	metricStatReplays          = expvar.NewInt("tracker_stat_replays_total")
	metricUndoTotal            = expvar.NewInt("tracker_undo_total")
	metricReconcileTotal       = expvar.NewInt("tracker_reconcile_total")
	metricReconcileCorrections = expvar.NewInt("tracker_reconcile_corrections_total")
	metricCheckpointsSaved     = expvar.NewInt("tracker_checkpoints_saved_total")
	metricCheckpointsRestored  = expvar.NewInt("tracker_checkpoints_restored_total")
	metricShotClockViolations  = expvar.NewInt("tracker_shot_clock_violations_total")
	metricSessionsActive       = expvar.NewInt("tracker_sessions_active")
)
