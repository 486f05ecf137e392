package migrations

import (
	"gorm.io/gorm"
)

// AddWbtcStakeOnchainId backfills rows created before the buy-back
// reference existed and normalizes stored EVM addresses to lower case so
// the user lookup and the admin allow-list compare consistently.
func AddWbtcStakeOnchainId(tx *gorm.DB) error {
	if !tx.Migrator().HasColumn("wbtc_stakes", "stake_id") {
		if err := tx.Exec("ALTER TABLE wbtc_stakes ADD COLUMN stake_id INTEGER").Error; err != nil {
			return err
		}
	}

	if err := tx.Exec("UPDATE users SET evm_address = LOWER(evm_address) WHERE evm_address IS NOT NULL").Error; err != nil {
		return err
	}

	return nil
}
