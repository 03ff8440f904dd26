package services

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"group-market/internal/models"
)

// setupTestDB opens a fresh in-memory database per test. TranslateError is
// on so errors.Is(err, gorm.ErrDuplicatedKey) works like it does against
// postgres.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.ReferralRelation{},
		&models.ReferralCommission{},
		&models.GroupBuy{},
		&models.GroupParticipant{},
		&models.Order{},
		&models.Coupon{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, id uint, code string) *models.User {
	t.Helper()

	user := models.User{
		ID:            id,
		WalletAddress: "wallet-" + code,
		Nickname:      "user-" + code,
		InviteCode:    code,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %d: %v", id, err)
	}
	return &user
}
