package measure

import (
	"testing"
	"time"

	"ddarpd/internal/model"
	"github.com/stretchr/testify/require"
)

func sample(seq uint32, latencyMs int64) model.ProbeSample {
	send := time.Unix(1000, 0)
	return model.ProbeSample{
		SourceId: "a",
		DestId:   "b",
		Seq:      seq,
		SendTs:   send,
		RecvTs:   send.Add(time.Duration(latencyMs) * time.Millisecond),
	}
}

func TestWindowAtMinSamplesIsUsable(t *testing.T) {
	w := NewWindow()
	w.Insert(sample(1, 10))
	w.Insert(sample(2, 10))
	m := w.Insert(sample(3, 10))
	require.Equal(t, 3, m.SampleCount)
	require.True(t, m.Usable(MinSamplesForEdge))
}

func TestWindowMeanAndJitter(t *testing.T) {
	w := NewWindow()
	w.Insert(sample(1, 10))
	w.Insert(sample(2, 20))
	m := w.Insert(sample(3, 30))
	require.InDelta(t, 20.0, m.LatencyMs, 0.001)
	require.InDelta(t, 10.0, m.JitterMs, 0.001) // sample stdev of {10,20,30}
}

func TestWindowLossRatioFromSequenceGaps(t *testing.T) {
	w := NewWindow()
	w.Insert(sample(1, 10))
	w.Insert(sample(2, 10))
	m := w.Insert(sample(5, 10)) // seq 3,4 missing -> expected 5, got 3
	require.InDelta(t, 1-3.0/5.0, m.LossRatio, 0.001)
}

func TestWindowOutOfOrderCountsAsReceived(t *testing.T) {
	w := NewWindow()
	w.Insert(sample(2, 10))
	w.Insert(sample(1, 10))
	m := w.Insert(sample(3, 10))
	require.Equal(t, 3, m.SampleCount)
	require.InDelta(t, 0.0, m.LossRatio, 0.001)
}

func TestWindowEvictsOldestPastCapacity(t *testing.T) {
	w := NewWindow()
	for i := 0; i < WindowCap+10; i++ {
		w.Insert(sample(uint32(i), 10))
	}
	require.Equal(t, WindowCap, w.Len())
}
