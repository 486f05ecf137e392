package db

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// User model, one row per logical user. A user is looked up by either
// address; the two columns link a native-chain identity and an EVM
// identity into one account.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BtcAddress string    `gorm:"index" json:"btc_address"`
	EvmAddress string    `gorm:"index" json:"evm_address"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

// BtcStake model (tBTC sub-ledger). Composite id is "btc-<ID>".
type BtcStake struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uint       `gorm:"not null;index" json:"user_id"`
	TxID             string     `gorm:"not null;index" json:"tx_id"`
	Amount           float64    `gorm:"type:decimal(20,8);not null" json:"amount"` // BTC precision up to 8 decimal places
	LockDurationDays float64    `gorm:"not null" json:"lock_duration_days"`        // may be sub-day
	Confirmed        bool       `gorm:"not null" json:"confirmed"`                 // monotone false -> true
	Claimed          bool       `gorm:"not null" json:"claimed"`                   // monotone false -> true
	ClaimedAt        *time.Time `json:"claimed_at"`
	BtcPriceAtTx     float64    `gorm:"type:decimal(20,2)" json:"btc_price_at_tx"` // 0 = not yet known, backfillable
	CreatedAt        time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null" json:"updated_at"`
}

// WbtcStake model (wBTC sub-ledger). Composite id is "wbtc-<ID>".
// StakeID references the stake on the settlement contract for buy-back.
type WbtcStake struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uint       `gorm:"not null;index" json:"user_id"`
	TxID             string     `gorm:"not null;index" json:"tx_id"`
	Amount           float64    `gorm:"type:decimal(20,8);not null" json:"amount"`
	LockDurationDays float64    `gorm:"not null" json:"lock_duration_days"`
	Confirmed        bool       `gorm:"not null" json:"confirmed"`
	Claimed          bool       `gorm:"not null" json:"claimed"`
	ClaimedAt        *time.Time `json:"claimed_at"`
	BtcPriceAtTx     float64    `gorm:"type:decimal(20,2)" json:"btc_price_at_tx"`
	StakeID          *uint64    `json:"stake_id"` // on-chain buy-back reference
	CreatedAt        time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null" json:"updated_at"`
}

func (dm *DatabaseManager) autoMigrate() {
	if err := dm.vaultDb.AutoMigrate(&User{}, &BtcStake{}, &WbtcStake{}); err != nil {
		log.Fatalf("Failed to migrate vault database: %v", err)
	}
}
