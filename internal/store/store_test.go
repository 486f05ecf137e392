package store

import (
	"sync"
	"testing"

	"github.com/dualstake/stake-vault/internal/config"
	"github.com/dualstake/stake-vault/internal/db"
	"github.com/dualstake/stake-vault/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBtcAddress = "tb1qemtt7nescd7alxcvv9694n2psxq9aetn9tyx6m"
	testEvmAddress = "0x39d2770abcc456f6c6be820705ed966592e0ad96"
)

func newTestStore(t *testing.T) *Store {
	t.Setenv("DB_DIR", t.TempDir())
	config.InitConfig()
	return NewStore(db.NewDatabaseManager())
}

func insertBtcStake(t *testing.T, s *Store) *types.StakeRecord {
	record, err := s.Insert(InsertParams{
		UserAddress:      testBtcAddress,
		UserEvmAddress:   testEvmAddress,
		TxID:             "f907189b2486178751aca399d7ad7a06deb9d360",
		Amount:           10,
		Asset:            types.AssetTBTC,
		LockDurationDays: 30,
		BtcPriceAtTx:     65000,
	})
	require.NoError(t, err)
	return record
}

func TestInsertAndGetByID(t *testing.T) {
	s := newTestStore(t)

	record := insertBtcStake(t, s)
	assert.Equal(t, "btc-1", record.ID)
	assert.Equal(t, types.AssetTBTC, record.Asset)
	assert.Equal(t, types.NetworkBitcoinTestnet, record.Network)
	assert.Equal(t, testBtcAddress, record.UserAddress)
	assert.Equal(t, testEvmAddress, record.UserEvmAddress)
	assert.False(t, record.Status.Confirmed)
	assert.False(t, record.Claimed)
	assert.Nil(t, record.ClaimedAt)

	loaded, err := s.GetByID("btc-1")
	require.NoError(t, err)
	assert.Equal(t, record.ID, loaded.ID)
	assert.Equal(t, record.Amount, loaded.Amount)
}

func TestInsertValidation(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Insert(InsertParams{UserAddress: testBtcAddress})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = s.Insert(InsertParams{
		UserAddress:      testBtcAddress,
		UserEvmAddress:   testEvmAddress,
		TxID:             "tx",
		Amount:           -1,
		Asset:            types.AssetTBTC,
		LockDurationDays: 30,
	})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = s.Insert(InsertParams{
		UserAddress:      testBtcAddress,
		UserEvmAddress:   testEvmAddress,
		TxID:             "tx",
		Amount:           1,
		Asset:            types.Asset("DOGE"),
		LockDurationDays: 30,
	})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestWbtcStakeReference(t *testing.T) {
	s := newTestStore(t)

	record, err := s.Insert(InsertParams{
		UserAddress:      testBtcAddress,
		UserEvmAddress:   testEvmAddress,
		TxID:             "0xabc",
		Amount:           2,
		Asset:            types.AssetWBTC,
		LockDurationDays: 90,
	})
	require.NoError(t, err)
	assert.Equal(t, "wbtc-1", record.ID)
	assert.Equal(t, types.NetworkEvmTestnet, record.Network)
	assert.Nil(t, record.Status.StakeID)

	// The reference is written with the row, one insert, no second write.
	stakeID := uint64(7)
	withRef, err := s.Insert(InsertParams{
		UserAddress:      testBtcAddress,
		UserEvmAddress:   testEvmAddress,
		TxID:             "0xdef",
		Amount:           2,
		Asset:            types.AssetWBTC,
		LockDurationDays: 90,
		StakeID:          &stakeID,
	})
	require.NoError(t, err)
	require.NotNil(t, withRef.Status.StakeID)
	assert.Equal(t, uint64(7), *withRef.Status.StakeID)

	loaded, err := s.GetByID(withRef.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Status.StakeID)
	assert.Equal(t, uint64(7), *loaded.Status.StakeID)

	// tBTC stakes carry no on-chain reference.
	_, err = s.Insert(InsertParams{
		UserAddress:      testBtcAddress,
		UserEvmAddress:   testEvmAddress,
		TxID:             "tx1",
		Amount:           1,
		Asset:            types.AssetTBTC,
		LockDurationDays: 30,
		StakeID:          &stakeID,
	})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestIDPartitioning(t *testing.T) {
	s := newTestStore(t)

	btcRecord := insertBtcStake(t, s)
	wbtcRecord, err := s.Insert(InsertParams{
		UserAddress:      testBtcAddress,
		UserEvmAddress:   testEvmAddress,
		TxID:             "0xabc",
		Amount:           2,
		Asset:            types.AssetWBTC,
		LockDurationDays: 90,
	})
	require.NoError(t, err)

	// Both sub-ledgers start at row 1; the chain tag keeps ids unique.
	assert.Equal(t, "btc-1", btcRecord.ID)
	assert.Equal(t, "wbtc-1", wbtcRecord.ID)
}

func TestConfirmIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	record := insertBtcStake(t, s)

	require.NoError(t, s.Confirm(record.ID))
	loaded, err := s.GetByID(record.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Status.Confirmed)

	// Confirming an already confirmed stake is a no-op, never an error.
	require.NoError(t, s.Confirm(record.ID))
	again, err := s.GetByID(record.ID)
	require.NoError(t, err)
	assert.True(t, again.Status.Confirmed)
	assert.Equal(t, loaded.Claimed, again.Claimed)
	assert.Equal(t, loaded.BtcPriceAtTx, again.BtcPriceAtTx)

	assert.ErrorIs(t, s.Confirm("btc-99"), types.ErrNotFound)
}

func TestListUnconfirmed(t *testing.T) {
	s := newTestStore(t)
	first := insertBtcStake(t, s)
	_, err := s.Insert(InsertParams{
		UserAddress:      testBtcAddress,
		UserEvmAddress:   testEvmAddress,
		TxID:             "0xabc",
		Amount:           2,
		Asset:            types.AssetWBTC,
		LockDurationDays: 90,
	})
	require.NoError(t, err)

	pending, err := s.ListUnconfirmed()
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, s.Confirm(first.ID))
	pending, err = s.ListUnconfirmed()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "wbtc-1", pending[0].ID)

	all, err := s.ListAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestClaimRequiresConfirmation(t *testing.T) {
	s := newTestStore(t)
	record := insertBtcStake(t, s)

	// Claiming a pending stake must fail, never confirm it implicitly.
	_, err := s.Claim(record.ID)
	assert.ErrorIs(t, err, types.ErrPrecondition)
	loaded, err := s.GetByID(record.ID)
	require.NoError(t, err)
	assert.False(t, loaded.Status.Confirmed)
	assert.False(t, loaded.Claimed)

	require.NoError(t, s.Confirm(record.ID))
	claimed, err := s.Claim(record.ID)
	require.NoError(t, err)
	assert.True(t, claimed.Claimed)
	require.NotNil(t, claimed.ClaimedAt)

	// claimed implies confirmed, always.
	assert.True(t, claimed.Status.Confirmed)
}

func TestDoubleClaimRejected(t *testing.T) {
	s := newTestStore(t)
	record := insertBtcStake(t, s)
	require.NoError(t, s.Confirm(record.ID))

	_, err := s.Claim(record.ID)
	require.NoError(t, err)
	_, err = s.Claim(record.ID)
	assert.ErrorIs(t, err, types.ErrPrecondition)
}

func TestConcurrentClaimsExactlyOneWins(t *testing.T) {
	s := newTestStore(t)
	record := insertBtcStake(t, s)
	require.NoError(t, s.Confirm(record.ID))

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Claim(record.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, types.ErrPrecondition)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestBackfillPriceWritesOnce(t *testing.T) {
	s := newTestStore(t)
	record, err := s.Insert(InsertParams{
		UserAddress:      testBtcAddress,
		UserEvmAddress:   testEvmAddress,
		TxID:             "tx-no-price",
		Amount:           1,
		Asset:            types.AssetTBTC,
		LockDurationDays: 30,
		BtcPriceAtTx:     0,
	})
	require.NoError(t, err)

	written, err := s.BackfillPrice(record.ID, 50000)
	require.NoError(t, err)
	assert.True(t, written)

	// A non-zero stamp is never overwritten.
	written, err = s.BackfillPrice(record.ID, 60000)
	require.NoError(t, err)
	assert.False(t, written)

	loaded, err := s.GetByID(record.ID)
	require.NoError(t, err)
	assert.Equal(t, 50000.0, loaded.BtcPriceAtTx)
}

func TestUserLinking(t *testing.T) {
	s := newTestStore(t)

	// Same pair of addresses resolves to the same user for both assets.
	insertBtcStake(t, s)
	record, err := s.Insert(InsertParams{
		UserAddress:      testBtcAddress,
		UserEvmAddress:   testEvmAddress,
		TxID:             "0xabc",
		Amount:           2,
		Asset:            types.AssetWBTC,
		LockDurationDays: 90,
	})
	require.NoError(t, err)
	assert.Equal(t, testBtcAddress, record.UserAddress)
	assert.Equal(t, testEvmAddress, record.UserEvmAddress)

	// EVM addresses match case-insensitively.
	upper := "0x39D2770ABCC456F6C6BE820705ED966592E0AD96"
	record, err = s.Insert(InsertParams{
		UserAddress:      testBtcAddress,
		UserEvmAddress:   upper,
		TxID:             "0xdef",
		Amount:           1,
		Asset:            types.AssetWBTC,
		LockDurationDays: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, testEvmAddress, record.UserEvmAddress)
}

func TestUserLinkingConflictRefused(t *testing.T) {
	s := newTestStore(t)
	insertBtcStake(t, s)

	// A known btc address presented with a different evm address would
	// silently relink the user; refuse instead.
	_, err := s.Insert(InsertParams{
		UserAddress:      testBtcAddress,
		UserEvmAddress:   "0x2ae8f3f41c991f0923f451744eaff186952a702b",
		TxID:             "0xother",
		Amount:           1,
		Asset:            types.AssetWBTC,
		LockDurationDays: 30,
	})
	assert.ErrorIs(t, err, types.ErrConflict)
}
