package store

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dualstake/stake-vault/internal/db"
	"github.com/dualstake/stake-vault/internal/types"
	"gorm.io/gorm"
)

// Store is the durable record of stakes. Records are addressed by the
// composite id "<tag>-<row>", which partitions writes across the two
// sub-ledger tables.
type Store struct {
	dbm *db.DatabaseManager

	// Guards the user find-or-create so two concurrent inserts cannot
	// race a duplicate user row into existence.
	userMu sync.Mutex
}

func NewStore(dbm *db.DatabaseManager) *Store {
	return &Store{dbm: dbm}
}

// InsertParams is a stake creation payload. Timestamp, claimed and the
// composite id are assigned by the store.
type InsertParams struct {
	UserAddress      string
	UserEvmAddress   string
	TxID             string
	Amount           float64
	Asset            types.Asset
	LockDurationDays float64
	BtcPriceAtTx     float64
	StakeID          *uint64 // wBTC settlement reference, written with the row
}

func (p *InsertParams) validate() error {
	if p.UserAddress == "" || p.UserEvmAddress == "" || p.TxID == "" {
		return fmt.Errorf("%w: missing required transaction fields", types.ErrValidation)
	}
	if !p.Asset.Valid() {
		return fmt.Errorf("%w: unknown asset %q", types.ErrValidation, p.Asset)
	}
	if p.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", types.ErrValidation)
	}
	if p.LockDurationDays <= 0 {
		return fmt.Errorf("%w: lock duration must be positive", types.ErrValidation)
	}
	if p.StakeID != nil && p.Asset != types.AssetWBTC {
		return fmt.Errorf("%w: on-chain stake reference is only valid for wBTC", types.ErrValidation)
	}
	return nil
}

// Insert validates the payload, resolves the owning user and creates a
// stake row in the asset's sub-ledger with confirmed=false, claimed=false.
func (s *Store) Insert(params InsertParams) (*types.StakeRecord, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	user, err := s.getOrCreateUser(params.UserAddress, params.UserEvmAddress)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var rowID uint
	switch params.Asset {
	case types.AssetTBTC:
		stake := &db.BtcStake{
			UserID:           user.ID,
			TxID:             params.TxID,
			Amount:           params.Amount,
			LockDurationDays: params.LockDurationDays,
			BtcPriceAtTx:     params.BtcPriceAtTx,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if result := s.dbm.GetVaultDB().Create(stake); result.Error != nil {
			return nil, result.Error
		}
		rowID = stake.ID
	case types.AssetWBTC:
		stake := &db.WbtcStake{
			UserID:           user.ID,
			TxID:             params.TxID,
			Amount:           params.Amount,
			LockDurationDays: params.LockDurationDays,
			BtcPriceAtTx:     params.BtcPriceAtTx,
			StakeID:          params.StakeID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if result := s.dbm.GetVaultDB().Create(stake); result.Error != nil {
			return nil, result.Error
		}
		rowID = stake.ID
	}

	return s.GetByID(types.FormatStakeID(params.Asset, rowID))
}

// getOrCreateUser resolves a user by either address. An existing
// non-empty address is never overwritten with a different value; if the
// two presented addresses resolve to two distinct users the insert is
// refused rather than silently merging them.
func (s *Store) getOrCreateUser(btcAddress, evmAddress string) (*db.User, error) {
	s.userMu.Lock()
	defer s.userMu.Unlock()

	evmAddress = strings.ToLower(evmAddress)
	conn := s.dbm.GetVaultDB()

	var byBtc, byEvm db.User
	btcErr := conn.Where("btc_address = ?", btcAddress).First(&byBtc).Error
	if btcErr != nil && btcErr != gorm.ErrRecordNotFound {
		return nil, btcErr
	}
	evmErr := conn.Where("evm_address = ?", evmAddress).First(&byEvm).Error
	if evmErr != nil && evmErr != gorm.ErrRecordNotFound {
		return nil, evmErr
	}

	if btcErr == nil && evmErr == nil && byBtc.ID != byEvm.ID {
		return nil, fmt.Errorf("%w: addresses belong to two different users (%d, %d)",
			types.ErrConflict, byBtc.ID, byEvm.ID)
	}

	var user *db.User
	switch {
	case btcErr == nil:
		user = &byBtc
	case evmErr == nil:
		user = &byEvm
	default:
		user = &db.User{BtcAddress: btcAddress, EvmAddress: evmAddress, UpdatedAt: time.Now()}
		if result := conn.Create(user); result.Error != nil {
			return nil, result.Error
		}
		return user, nil
	}

	if user.BtcAddress != "" && user.BtcAddress != btcAddress {
		return nil, fmt.Errorf("%w: user %d already linked to a different btc address", types.ErrConflict, user.ID)
	}
	if user.EvmAddress != "" && user.EvmAddress != evmAddress {
		return nil, fmt.Errorf("%w: user %d already linked to a different evm address", types.ErrConflict, user.ID)
	}
	if user.BtcAddress == "" || user.EvmAddress == "" {
		user.BtcAddress = btcAddress
		user.EvmAddress = evmAddress
		user.UpdatedAt = time.Now()
		if result := conn.Save(user); result.Error != nil {
			return nil, result.Error
		}
	}
	return user, nil
}

// GetByID returns the stake with the given composite id, or ErrNotFound.
func (s *Store) GetByID(id string) (*types.StakeRecord, error) {
	asset, rowID, err := types.ParseStakeID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrNotFound, err)
	}

	conn := s.dbm.GetVaultDB()
	if asset == types.AssetTBTC {
		var stake db.BtcStake
		if result := conn.First(&stake, rowID); result.Error != nil {
			return nil, wrapNotFound(result.Error, id)
		}
		user, err := s.userByID(stake.UserID)
		if err != nil {
			return nil, err
		}
		return recordFromBtc(&stake, user), nil
	}

	var stake db.WbtcStake
	if result := conn.First(&stake, rowID); result.Error != nil {
		return nil, wrapNotFound(result.Error, id)
	}
	user, err := s.userByID(stake.UserID)
	if err != nil {
		return nil, err
	}
	return recordFromWbtc(&stake, user), nil
}

// ListAll returns every stake from both sub-ledgers, newest first.
func (s *Store) ListAll() ([]*types.StakeRecord, error) {
	return s.list(false)
}

// ListUnconfirmed returns every stake with confirmed=false from both
// sub-ledgers, the working set of a reconciliation pass.
func (s *Store) ListUnconfirmed() ([]*types.StakeRecord, error) {
	return s.list(true)
}

func (s *Store) list(unconfirmedOnly bool) ([]*types.StakeRecord, error) {
	conn := s.dbm.GetVaultDB()

	btcQuery := conn.Order("created_at desc")
	wbtcQuery := conn.Order("created_at desc")
	if unconfirmedOnly {
		btcQuery = btcQuery.Where("confirmed = ?", false)
		wbtcQuery = wbtcQuery.Where("confirmed = ?", false)
	}

	var btcStakes []*db.BtcStake
	if result := btcQuery.Find(&btcStakes); result.Error != nil {
		return nil, result.Error
	}
	var wbtcStakes []*db.WbtcStake
	if result := wbtcQuery.Find(&wbtcStakes); result.Error != nil {
		return nil, result.Error
	}

	users, err := s.usersByID()
	if err != nil {
		return nil, err
	}

	records := make([]*types.StakeRecord, 0, len(btcStakes)+len(wbtcStakes))
	for _, stake := range btcStakes {
		records = append(records, recordFromBtc(stake, users[stake.UserID]))
	}
	for _, stake := range wbtcStakes {
		records = append(records, recordFromWbtc(stake, users[stake.UserID]))
	}
	sortByTimestampDesc(records)
	return records, nil
}

// Confirm flips confirmed to true for the given stake. It is idempotent:
// confirming an already confirmed stake is a no-op, never an error.
func (s *Store) Confirm(id string) error {
	asset, rowID, err := types.ParseStakeID(id)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrNotFound, err)
	}

	conn := s.dbm.GetVaultDB()
	updates := map[string]interface{}{"confirmed": true, "updated_at": time.Now()}
	var result *gorm.DB
	if asset == types.AssetTBTC {
		result = conn.Model(&db.BtcStake{}).Where("id = ?", rowID).Updates(updates)
	} else {
		result = conn.Model(&db.WbtcStake{}).Where("id = ?", rowID).Updates(updates)
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", types.ErrNotFound, id)
	}
	return nil
}

// Claim marks the stake's payout as executed. The write is conditional
// on claimed being currently false and confirmed being true, so two
// concurrent claims cannot both succeed.
func (s *Store) Claim(id string) (*types.StakeRecord, error) {
	asset, rowID, err := types.ParseStakeID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrNotFound, err)
	}

	conn := s.dbm.GetVaultDB()
	now := time.Now()
	updates := map[string]interface{}{"claimed": true, "claimed_at": now, "updated_at": now}
	var result *gorm.DB
	if asset == types.AssetTBTC {
		result = conn.Model(&db.BtcStake{}).
			Where("id = ? AND confirmed = ? AND claimed = ?", rowID, true, false).
			Updates(updates)
	} else {
		result = conn.Model(&db.WbtcStake{}).
			Where("id = ? AND confirmed = ? AND claimed = ?", rowID, true, false).
			Updates(updates)
	}
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Condition failed, report which precondition was violated.
		record, err := s.GetByID(id)
		if err != nil {
			return nil, err
		}
		if record.Claimed {
			return nil, fmt.Errorf("%w: stake %s already claimed", types.ErrPrecondition, id)
		}
		return nil, fmt.Errorf("%w: stake %s is not confirmed", types.ErrPrecondition, id)
	}
	return s.GetByID(id)
}

// BackfillPrice stamps the creation price on a stake whose stamp is
// still the 0 sentinel. A non-zero stamp is never overwritten. Returns
// whether a write happened.
func (s *Store) BackfillPrice(id string, price float64) (bool, error) {
	asset, rowID, err := types.ParseStakeID(id)
	if err != nil {
		return false, fmt.Errorf("%w: %v", types.ErrNotFound, err)
	}

	conn := s.dbm.GetVaultDB()
	updates := map[string]interface{}{"btc_price_at_tx": price, "updated_at": time.Now()}
	var result *gorm.DB
	if asset == types.AssetTBTC {
		result = conn.Model(&db.BtcStake{}).
			Where("id = ? AND btc_price_at_tx = 0", rowID).Updates(updates)
	} else {
		result = conn.Model(&db.WbtcStake{}).
			Where("id = ? AND btc_price_at_tx = 0", rowID).Updates(updates)
	}
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *Store) userByID(id uint) (*db.User, error) {
	var user db.User
	if result := s.dbm.GetVaultDB().First(&user, id); result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

func (s *Store) usersByID() (map[uint]*db.User, error) {
	var users []*db.User
	if result := s.dbm.GetVaultDB().Find(&users); result.Error != nil {
		return nil, result.Error
	}
	byID := make(map[uint]*db.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}
	return byID, nil
}

func wrapNotFound(err error, id string) error {
	if err == gorm.ErrRecordNotFound {
		return fmt.Errorf("%w: %s", types.ErrNotFound, id)
	}
	return err
}
