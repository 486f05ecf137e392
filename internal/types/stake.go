package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Asset identifies which sub-ledger a stake lives in and which chain
// confirms it.
type Asset string

const (
	AssetTBTC Asset = "tBTC"
	AssetWBTC Asset = "wBTC"
)

const (
	ChainTagBtc  = "btc"
	ChainTagWbtc = "wbtc"

	NetworkBitcoinTestnet = "Bitcoin Testnet"
	NetworkEvmTestnet     = "EVM Testnet"
)

func (a Asset) Valid() bool {
	return a == AssetTBTC || a == AssetWBTC
}

// ChainTag is the id prefix of the asset's storage partition.
func (a Asset) ChainTag() string {
	if a == AssetWBTC {
		return ChainTagWbtc
	}
	return ChainTagBtc
}

// Network is derived 1:1 from the asset, never set independently.
func (a Asset) Network() string {
	if a == AssetWBTC {
		return NetworkEvmTestnet
	}
	return NetworkBitcoinTestnet
}

func AssetFromTag(tag string) (Asset, error) {
	switch tag {
	case ChainTagBtc:
		return AssetTBTC, nil
	case ChainTagWbtc:
		return AssetWBTC, nil
	default:
		return "", fmt.Errorf("unknown chain tag: %s", tag)
	}
}

// FormatStakeID builds the composite identifier "<tag>-<rowID>".
func FormatStakeID(asset Asset, rowID uint) string {
	return fmt.Sprintf("%s-%d", asset.ChainTag(), rowID)
}

// ParseStakeID splits a composite identifier back into asset and row id.
// It must round-trip losslessly with FormatStakeID.
func ParseStakeID(id string) (Asset, uint, error) {
	tag, num, found := strings.Cut(id, "-")
	if !found {
		return "", 0, fmt.Errorf("malformed stake id: %s", id)
	}
	asset, err := AssetFromTag(tag)
	if err != nil {
		return "", 0, fmt.Errorf("malformed stake id %s: %w", id, err)
	}
	rowID, err := strconv.ParseUint(num, 10, 32)
	if err != nil || rowID == 0 {
		return "", 0, fmt.Errorf("malformed stake id: %s", id)
	}
	return asset, uint(rowID), nil
}

// StakeStatus carries the on-chain side of a stake record. StakeID is
// only present for wBTC stakes that need a buy-back reference.
type StakeStatus struct {
	Confirmed bool    `json:"confirmed"`
	StakeID   *uint64 `json:"stakeId,omitempty"`
}

// StakeRecord is the domain view of a stake, combining the row of one of
// the two sub-ledgers with its owner's addresses.
type StakeRecord struct {
	ID               string      `json:"id"`
	UserAddress      string      `json:"userAddress"`
	UserEvmAddress   string      `json:"userEvmAddress"`
	TxID             string      `json:"txId"`
	Amount           float64     `json:"amount"`
	Asset            Asset       `json:"asset"`
	Network          string      `json:"network"`
	LockDurationDays float64     `json:"lockDurationDays"`
	Timestamp        time.Time   `json:"timestamp"`
	BtcPriceAtTx     float64     `json:"btcPriceAtTx"`
	Status           StakeStatus `json:"status"`
	Claimed          bool        `json:"claimed"`
	ClaimedAt        *time.Time  `json:"claimedAt,omitempty"`
}

// LockEnd is the instant the lock period elapses, days of 86400000 ms.
func (r *StakeRecord) LockEnd() time.Time {
	lockMillis := math.Round(r.LockDurationDays * 86400000)
	return r.Timestamp.Add(time.Duration(lockMillis) * time.Millisecond)
}

// Matured reports whether the lock period has elapsed at the given time.
func (r *StakeRecord) Matured(now time.Time) bool {
	return !now.Before(r.LockEnd())
}
