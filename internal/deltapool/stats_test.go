package deltapool

import "testing"

func TestPoolStatsRunningPercentileEmpty(t *testing.T) {
	var s PoolStats
	if got := s.RunningPercentile(0.5); got != 0 {
		t.Fatalf("RunningPercentile on empty stats = %v, want 0", got)
	}
}

func TestPoolStatsRunningPercentileTracksSamples(t *testing.T) {
	var s PoolStats
	for _, v := range []float64{10, 20, 30, 40, 50} {
		s.RecordRTT(v)
	}
	if got := s.RunningPercentile(1.0); got != 50 {
		t.Fatalf("p100 = %v, want 50", got)
	}
	if got := s.RunningPercentile(0.0); got != 10 {
		t.Fatalf("p0 = %v, want 10", got)
	}
}

func TestPoolStatsRecordRTTEvictsOldestPastCapacity(t *testing.T) {
	var s PoolStats
	for i := 0; i < rttSampleCapacity+10; i++ {
		s.RecordRTT(float64(i))
	}
	if len(s.observedRTT) != rttSampleCapacity {
		t.Fatalf("len(observedRTT) = %d, want %d", len(s.observedRTT), rttSampleCapacity)
	}
	if s.observedRTT[0] != 10 {
		t.Fatalf("oldest retained sample = %v, want 10 (first 10 evicted)", s.observedRTT[0])
	}
}

func TestPoolAckRecordsRTTSample(t *testing.T) {
	restore := fixNow(1000)
	defer restore()

	p := NewPool(0)
	d := newDelta(KindObject, 1)
	d.Flags = MDFOrigin
	p.add(d)
	p.markForTransmission(mustFindNew(t, p, 1), false)

	fixNow(1400)
	p.ackSet(p.setDealer)

	if got := p.Stats().RunningPercentile(1.0); got != 400 {
		t.Fatalf("RunningPercentile(1.0) after ack = %v, want 400", got)
	}
}

func mustFindNew(t *testing.T, p *Pool, id uint32) *Delta {
	t.Helper()
	var found *Delta
	p.each(func(n *deltaNode) {
		if n.delta.ID == id && n.delta.State == StateNew {
			found = n.delta
		}
	})
	if found == nil {
		t.Fatalf("no NEW delta found for id %d", id)
	}
	return found
}
