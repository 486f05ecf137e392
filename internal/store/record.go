package store

import (
	"sort"

	"github.com/dualstake/stake-vault/internal/db"
	"github.com/dualstake/stake-vault/internal/types"
)

func recordFromBtc(stake *db.BtcStake, user *db.User) *types.StakeRecord {
	record := &types.StakeRecord{
		ID:               types.FormatStakeID(types.AssetTBTC, stake.ID),
		TxID:             stake.TxID,
		Amount:           stake.Amount,
		Asset:            types.AssetTBTC,
		Network:          types.AssetTBTC.Network(),
		LockDurationDays: stake.LockDurationDays,
		Timestamp:        stake.CreatedAt,
		BtcPriceAtTx:     stake.BtcPriceAtTx,
		Status:           types.StakeStatus{Confirmed: stake.Confirmed},
		Claimed:          stake.Claimed,
		ClaimedAt:        stake.ClaimedAt,
	}
	if user != nil {
		record.UserAddress = user.BtcAddress
		record.UserEvmAddress = user.EvmAddress
	}
	return record
}

func recordFromWbtc(stake *db.WbtcStake, user *db.User) *types.StakeRecord {
	record := &types.StakeRecord{
		ID:               types.FormatStakeID(types.AssetWBTC, stake.ID),
		TxID:             stake.TxID,
		Amount:           stake.Amount,
		Asset:            types.AssetWBTC,
		Network:          types.AssetWBTC.Network(),
		LockDurationDays: stake.LockDurationDays,
		Timestamp:        stake.CreatedAt,
		BtcPriceAtTx:     stake.BtcPriceAtTx,
		Status:           types.StakeStatus{Confirmed: stake.Confirmed, StakeID: stake.StakeID},
		Claimed:          stake.Claimed,
		ClaimedAt:        stake.ClaimedAt,
	}
	if user != nil {
		record.UserAddress = user.BtcAddress
		record.UserEvmAddress = user.EvmAddress
	}
	return record
}

func sortByTimestampDesc(records []*types.StakeRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}
