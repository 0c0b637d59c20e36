package bgpseam

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommunityOfEncoding(t *testing.T) {
	lat, jit, loss := CommunityOf(12.5, 1.2, 0.0345)
	require.Equal(t, uint16(125), lat)
	require.Equal(t, uint16(12), jit)
	require.Equal(t, uint16(34), loss) // 0.0345*100=3.45%, *10=34.5 -> truncates to 34
}

func TestCommunityOfClampsToU16Range(t *testing.T) {
	lat, _, _ := CommunityOf(100000, 0, 0)
	require.Equal(t, uint16(65535), lat)

	lat, _, _ = CommunityOf(-5, 0, 0)
	require.Equal(t, uint16(0), lat)
}

func TestCommunitiesForReturnsThreeValues(t *testing.T) {
	cs := CommunitiesFor(10, 2, 0.01)
	require.Len(t, cs, 3)
	require.Equal(t, CommunityLatency, cs[0].ASN)
	require.Equal(t, CommunityJitter, cs[1].ASN)
	require.Equal(t, CommunityLoss, cs[2].ASN)
}
