package main

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var db *gorm.DB

func initDatabase(dbPath string, debug bool) error {
	var err error

	gormConfig := &gorm.Config{}
	if !debug {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	} else {
		// In debug mode, only log warnings and errors, not "record not found" info messages
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	db, err = gorm.Open(sqlite.Open(dbPath), gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate the schema
	err = db.AutoMigrate(&User{}, &PasswordResetToken{}, &ResetRequestLog{}, &AnonCounter{}, &Contribution{})
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// cleanupExpiredResetTokens sweeps token rows past their expiry. Request-log
// rows are intentionally left alone: the rate-limit windows ignore stale
// rows at count time.
func cleanupExpiredResetTokens() (int64, error) {
	result := db.Where("expires_at < ?", time.Now()).Delete(&PasswordResetToken{})
	return result.RowsAffected, result.Error
}
