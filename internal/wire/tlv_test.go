package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoutingInfoRoundTrip(t *testing.T) {
	want := RoutingInfoValue{Dest: "node-7", NextHop: "node-3", Metric: 4200}
	got, err := DecodeRoutingInfo(EncodeRoutingInfo(want))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestRoutingInfoTruncated(t *testing.T) {
	_, err := DecodeRoutingInfo([]byte{0x00, 0x01})
	require.True(t, IsKind(err, KindTruncatedTlv))
}

func TestRoutingInfoBadUtf8(t *testing.T) {
	bad := EncodeRoutingInfo(RoutingInfoValue{Dest: "ok", NextHop: "ok", Metric: 1})
	bad[4] = 0xff // corrupt first byte of dest
	_, err := DecodeRoutingInfo(bad)
	require.True(t, IsKind(err, KindBadUtf8))
}

func TestOwlMetricsRoundTrip(t *testing.T) {
	want := OwlMetricsValue{LatencyNs: 9, JitterNs: 1, Timestamp: 42}
	got, err := DecodeOwlMetrics(EncodeOwlMetrics(want))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestOwlMetricsWrongSize(t *testing.T) {
	_, err := DecodeOwlMetrics([]byte{1, 2, 3})
	require.True(t, IsKind(err, KindTruncatedTlv))
}

func TestDecodeJSONRejectsBadUtf8(t *testing.T) {
	var v map[string]any
	err := DecodeJSON([]byte{0xff, 0xfe}, &v)
	require.True(t, IsKind(err, KindBadUtf8))
}

func TestDecodeJSONRejectsMalformed(t *testing.T) {
	var v map[string]any
	err := DecodeJSON([]byte("{not json"), &v)
	require.True(t, IsKind(err, KindBadJson))
}

func TestIsKnownTypeAndExperimentalRange(t *testing.T) {
	require.True(t, IsKnownType(TypeCapabilities))
	require.False(t, IsKnownType(ExperimentalRangeStart))
	require.Equal(t, "OWL_METRICS", TypeName(TypeOwlMetrics))
	require.Equal(t, "", TypeName(0xABCD))
}
