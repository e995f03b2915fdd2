package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/cliquepay/cliqued/internal/models"
)

// Migrate creates or updates the schema for all entities.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.User{},
		&models.Clique{},
		&models.Member{},
		&models.LedgerEntry{},
		&models.Transaction{},
		&models.Media{},
	)
}
