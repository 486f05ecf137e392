package db

import (
	"os"
	"path/filepath"

	"github.com/dualstake/stake-vault/internal/config"
	"github.com/dualstake/stake-vault/internal/db/migrations"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type DatabaseManager struct {
	vaultDb *gorm.DB
}

func NewDatabaseManager() *DatabaseManager {
	dm := &DatabaseManager{}
	dm.initDB()
	return dm
}

func (dm *DatabaseManager) initDB() {
	dbDir := config.AppConfig.DbDir
	if err := os.MkdirAll(dbDir, os.ModePerm); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	vaultPath := filepath.Join(dbDir, "vault.db")
	vaultDb, err := gorm.Open(sqlite.Open(vaultPath+"?_journal_mode=WAL&_busy_timeout=5000"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Fatalf("Failed to connect to vault database: %v", err)
	}
	dm.vaultDb = vaultDb
	log.Debugf("Vault database connected successfully, path: %s", vaultPath)

	dm.autoMigrate()
	dm.runMigrations()
	log.Debugf("Database migration completed successfully")
}

func (dm *DatabaseManager) runMigrations() {
	mgr := migrations.NewMigrationManager(dm.vaultDb)
	if err := mgr.EnsureMigrationTable(); err != nil {
		log.Fatalf("Failed to ensure migration table: %v", err)
	}
	if err := mgr.RunMigration("20250812_add_wbtc_stake_onchain_id", migrations.AddWbtcStakeOnchainId); err != nil {
		log.Fatalf("Failed to run migration: %v", err)
	}
}

func (dm *DatabaseManager) GetVaultDB() *gorm.DB {
	return dm.vaultDb
}
