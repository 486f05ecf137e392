package migrations

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migration represents a database migration record
type Migration struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// MigrationManager handles data migrations the auto-migrator cannot
// express, e.g. rewriting stored values.
type MigrationManager struct {
	db *gorm.DB
}

func NewMigrationManager(db *gorm.DB) *MigrationManager {
	return &MigrationManager{db: db}
}

// EnsureMigrationTable ensures the migrations table exists
func (m *MigrationManager) EnsureMigrationTable() error {
	if !m.db.Migrator().HasTable(&Migration{}) {
		log.Debugf("Creating migrations table")
		return m.db.AutoMigrate(&Migration{})
	}
	return nil
}

// RunMigration runs a migration if it hasn't been applied yet. The
// migration function and its record are committed in one transaction.
func (m *MigrationManager) RunMigration(name string, migrationFn func(*gorm.DB) error) error {
	var count int64
	if err := m.db.Model(&Migration{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}
	if count > 0 {
		log.Debugf("Migration %s has already been applied, skipping", name)
		return nil
	}

	log.Debugf("Running migration: %s", name)
	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := migrationFn(tx); err != nil {
			return fmt.Errorf("migration %s failed: %w", name, err)
		}
		record := &Migration{Name: name, AppliedAt: time.Now()}
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Debugf("Successfully completed migration: %s", name)
	return nil
}
