package measure

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildTopologyUpdateAndVerifyRoundTrip(t *testing.T) {
	secret := []byte("shared-secret")
	payload := TopologyUpdatePayload{
		Src:         "node-a",
		Dst:         "node-b",
		LatencyMs:   5,
		JitterMs:    0.5,
		LossRatio:   0.01,
		SampleCount: 4,
		Timestamp:   1700000000000,
	}

	raw, err := BuildTopologyUpdate(payload, 1, secret)
	require.NoError(t, err)

	got, err := VerifyAndExtractTopologyUpdate(raw, secret)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestVerifyAndExtractTopologyUpdateRejectsWrongSecret(t *testing.T) {
	raw, err := BuildTopologyUpdate(TopologyUpdatePayload{Src: "a", Dst: "b"}, 1, []byte("secret-a"))
	require.NoError(t, err)

	_, err = VerifyAndExtractTopologyUpdate(raw, []byte("secret-b"))
	require.Error(t, err)
	authErr, ok := err.(*AuthError)
	require.True(t, ok)
	require.Equal(t, KindHmacMismatch, authErr.Kind)
}
