package db

import (
	"github.com/sirupsen/logrus"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"reviewhub/internal/domain"
)

// Connect opens the MySQL connection. TranslateError is on so unique
// constraint violations surface as gorm.ErrDuplicatedKey, which the
// handlers rely on for conflict detection.
func Connect(dsn string) (*gorm.DB, error) {
	return gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
}

// Migrate creates tables, foreign keys, unique constraints and indexes
// for the full entity set.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Category{},
		&domain.Genre{},
		&domain.Title{},
		&domain.Review{},
		&domain.Comment{},
	)
}

// MigrateDSN connects and migrates in one step, for the migrate command.
func MigrateDSN(dsn string) {
	conn, err := Connect(dsn)
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err)
	}
	if err := Migrate(conn); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}
	logrus.Info("Migration completed.")
}
