package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"group-market/internal/models"
	"group-market/internal/utils"
)

// AuthService handles authentication business logic
type AuthService struct {
	db        *gorm.DB
	referrals *ReferralService
}

// NewAuthService creates a new AuthService
func NewAuthService(db *gorm.DB, referrals *ReferralService) *AuthService {
	return &AuthService{
		db:        db,
		referrals: referrals,
	}
}

// ProcessWalletLogin finds or creates a user by wallet address. A supplied
// invite code binds the referral relation for brand-new users; binding
// problems never fail the login.
func (s *AuthService) ProcessWalletLogin(ctx context.Context, walletAddress, inviteCode string) (*models.User, error) {
	var user models.User

	err := s.db.WithContext(ctx).Where("wallet_address = ?", walletAddress).First(&user).Error
	if err == nil {
		log.Printf("User logged in: wallet=%s (ID: %d)", walletAddress, user.ID)
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	nickname, err := utils.GenerateNickname()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nickname: %w", err)
	}
	ownCode, err := generateInviteCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite code: %w", err)
	}

	user = models.User{
		WalletAddress: walletAddress,
		Nickname:      nickname,
		InviteCode:    ownCode,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if inviteCode != "" {
		if _, err := s.referrals.BindReferral(ctx, user.ID, inviteCode); err != nil {
			log.Printf("Warning: failed to bind referral for user %d: %v", user.ID, err)
		}
	}

	log.Printf("New user created: wallet=%s (ID: %d)", walletAddress, user.ID)
	return &user, nil
}

// GetUserByID retrieves a user by their ID
func (s *AuthService) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
