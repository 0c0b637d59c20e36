package measure

import (
	"testing"
	"time"

	"ddarpd/internal/model"
	"github.com/stretchr/testify/require"
)

func TestBuildProbeAndVerifyRoundTrip(t *testing.T) {
	secret := []byte("shared-secret")
	payload := ProbePayload{
		Src:             "node-a",
		Dst:             "node-b",
		Seq:             7,
		SendTsMonotonic: 123,
		SendTsWall:      456,
	}

	raw, err := BuildProbe(payload, 7, secret)
	require.NoError(t, err)

	got, err := VerifyAndExtract(raw, secret)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestVerifyAndExtractRejectsWrongSecret(t *testing.T) {
	raw, err := BuildProbe(ProbePayload{Src: "a", Dst: "b", Seq: 1}, 1, []byte("secret-a"))
	require.NoError(t, err)

	_, err = VerifyAndExtract(raw, []byte("secret-b"))
	require.Error(t, err)
	authErr, ok := err.(*AuthError)
	require.True(t, ok)
	require.Equal(t, KindHmacMismatch, authErr.Kind)
}

func TestVerifyAndExtractRejectsTamperedBody(t *testing.T) {
	raw, err := BuildProbe(ProbePayload{Src: "a", Dst: "b", Seq: 1}, 1, []byte("secret"))
	require.NoError(t, err)
	raw[10] ^= 0xFF

	_, err = VerifyAndExtract(raw, []byte("secret"))
	require.Error(t, err)
}

func TestEngineRecordSampleDerivesMetrics(t *testing.T) {
	e := NewEngine()
	now := time.Unix(2000, 0)
	for i := uint32(1); i <= 3; i++ {
		e.RecordSample(model.ProbeSample{
			SourceId: "a",
			DestId:   "b",
			Seq:      i,
			SendTs:   now,
			RecvTs:   now.Add(5 * time.Millisecond),
		})
	}

	m, ok := e.Metrics("a", "b")
	require.True(t, ok)
	require.Equal(t, 3, m.SampleCount)
	require.InDelta(t, 5.0, m.LatencyMs, 0.001)
}

func TestEngineLivenessTransitions(t *testing.T) {
	e := NewEngine()
	base := time.Unix(3000, 0)
	e.RecordSample(model.ProbeSample{SourceId: "a", DestId: "b", Seq: 1, SendTs: base, RecvTs: base})

	require.Equal(t, model.LivenessAlive, e.Liveness("a", base.Add(1*time.Second)))
	require.Equal(t, model.LivenessSuspect, e.Liveness("a", base.Add(15*time.Second)))
	require.Equal(t, model.LivenessDead, e.Liveness("a", base.Add(45*time.Second)))
	require.Equal(t, model.LivenessUnknown, e.Liveness("unseen", base))
}

func TestEngineCountersTrackSentRecvAuthFail(t *testing.T) {
	e := NewEngine()
	e.RecordSent("a")
	e.RecordSent("a")
	e.RecordAuthFail("a")
	e.RecordSample(model.ProbeSample{SourceId: "a", DestId: "b", Seq: 1, SendTs: time.Now(), RecvTs: time.Now()})

	sent, recv, authFail := e.Counters()
	require.Equal(t, uint64(2), sent["a"])
	require.Equal(t, uint64(1), recv["a"])
	require.Equal(t, uint64(1), authFail["a"])
}

func TestEngineMetricsMatrixSnapshotsAllPairs(t *testing.T) {
	e := NewEngine()
	now := time.Now()
	e.RecordSample(model.ProbeSample{SourceId: "a", DestId: "b", Seq: 1, SendTs: now, RecvTs: now})
	e.RecordSample(model.ProbeSample{SourceId: "a", DestId: "c", Seq: 1, SendTs: now, RecvTs: now})

	matrix := e.MetricsMatrix()
	require.Contains(t, matrix, model.NodeId("a"))
	require.Contains(t, matrix["a"], model.NodeId("b"))
	require.Contains(t, matrix["a"], model.NodeId("c"))
}
