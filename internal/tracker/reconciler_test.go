package tracker

import (
	"testing"
	"time"

	"courtside/internal/realtime"
)

func TestStatNotificationBurstReadsLogOnce(t *testing.T) {
	st := newFakeStore(baseGame())
	changes := &fakeChanges{}
	openTest(t, st, &fakeNotifier{}, func(d *Deps) {
		d.Changes = changes
		d.Config.ReconcileDebounce = 100 * time.Millisecond
	})
	waitFor(t, "startup reconciliation", func() bool { return st.statsReadCount() == 1 })

	for i := 0; i < 5; i++ {
		changes.emit(realtime.Change{Table: realtime.TableGameStats, GameID: "g1", Op: "INSERT"})
	}
	waitFor(t, "debounced reconciliation", func() bool { return st.statsReadCount() >= 2 })
	time.Sleep(300 * time.Millisecond)
	if got := st.statsReadCount(); got != 2 {
		t.Fatalf("expected one read for the burst, got %d", got-1)
	}
}

func TestReconcileWaitsForPendingStatWrite(t *testing.T) {
	st := newFakeStore(baseGame())
	st.gate = make(chan struct{})
	c := openTest(t, st, &fakeNotifier{})
	if _, err := c.RecordStat(madeTwo("A")); err != nil {
		t.Fatalf("record: %v", err)
	}
	c.recomputeScores()
	if got := st.statsReadCount(); got != 0 {
		t.Fatalf("log read while a stat write was pending: %d reads", got)
	}
	if got := c.Snapshot().Scores["A"]; got != 2 {
		t.Fatalf("pending stat overwritten, score %d", got)
	}
	close(st.gate)
	flush(t, c)
}

func TestReconcileDropsProjectionReadBeforeNewStat(t *testing.T) {
	st := newFakeStore(baseGame())
	c := openTest(t, st, &fakeNotifier{})
	if _, err := c.RecordStat(madeTwo("A")); err != nil {
		t.Fatalf("record: %v", err)
	}
	flush(t, c)

	// A second stat is recorded and settles while the log read is in
	// flight, so the projection misses it.
	st.mu.Lock()
	st.afterStatsRead = func() {
		if _, err := c.RecordStat(madeTwo("A")); err != nil {
			t.Errorf("record during read: %v", err)
		}
		flush(t, c)
	}
	st.mu.Unlock()
	c.recomputeScores()
	if got := c.Snapshot().Scores["A"]; got != 4 {
		t.Fatalf("stale projection replaced the score, got %d", got)
	}
	if st.statCount() != 2 {
		t.Fatalf("expected 2 stored stats, got %d", st.statCount())
	}
}
