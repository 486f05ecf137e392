package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStakeIDRoundTrip(t *testing.T) {
	cases := []struct {
		asset Asset
		rowID uint
		want  string
	}{
		{AssetTBTC, 1, "btc-1"},
		{AssetWBTC, 1, "wbtc-1"},
		{AssetTBTC, 48816, "btc-48816"},
	}
	for _, tc := range cases {
		id := FormatStakeID(tc.asset, tc.rowID)
		assert.Equal(t, tc.want, id)

		asset, rowID, err := ParseStakeID(id)
		require.NoError(t, err)
		assert.Equal(t, tc.asset, asset)
		assert.Equal(t, tc.rowID, rowID)
	}
}

func TestParseStakeIDMalformed(t *testing.T) {
	for _, id := range []string{"", "btc", "btc-", "btc-0", "btc-x", "doge-1", "-1"} {
		_, _, err := ParseStakeID(id)
		assert.Error(t, err, "id %q", id)
	}
}

func TestAssetNetworkDerivation(t *testing.T) {
	assert.Equal(t, NetworkBitcoinTestnet, AssetTBTC.Network())
	assert.Equal(t, NetworkEvmTestnet, AssetWBTC.Network())
	assert.Equal(t, ChainTagBtc, AssetTBTC.ChainTag())
	assert.Equal(t, ChainTagWbtc, AssetWBTC.ChainTag())
	assert.True(t, AssetTBTC.Valid())
	assert.True(t, AssetWBTC.Valid())
	assert.False(t, Asset("DOGE").Valid())
}

func TestLockEnd(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	record := &StakeRecord{Timestamp: start, LockDurationDays: 30}

	assert.Equal(t, start.Add(30*24*time.Hour), record.LockEnd())
	assert.False(t, record.Matured(start.Add(30*24*time.Hour-time.Millisecond)))
	assert.True(t, record.Matured(start.Add(30*24*time.Hour)))

	// Sub-day durations are valid.
	short := &StakeRecord{Timestamp: start, LockDurationDays: 5.0 / (24 * 60)}
	assert.Equal(t, start.Add(5*time.Minute), short.LockEnd())
}
