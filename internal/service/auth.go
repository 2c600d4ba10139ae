package service

import (
	"context"
	"fmt"
	"time"

	"anjoman/internal/auth"
	apperrors "anjoman/internal/errors"
	"anjoman/internal/models"
	"anjoman/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	userRepo  *repository.UserRepository
	tokenRepo *repository.TokenRepository
	manager   *auth.Manager
}

func NewAuthService(userRepo *repository.UserRepository, tokenRepo *repository.TokenRepository, manager *auth.Manager) *AuthService {
	return &AuthService{userRepo: userRepo, tokenRepo: tokenRepo, manager: manager}
}

// Login checks the credentials and issues a fresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.TokenPairResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	access, err := s.manager.MintAccessToken(user.ID, user.IsStaff, now)
	if err != nil {
		return nil, err
	}

	refresh, hash := s.manager.NewRefreshToken()
	if err := s.tokenRepo.Store(ctx, user.ID, hash, now.Add(s.manager.RefreshTokenTTL())); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.TokenPairResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.manager.AccessTokenTTL().Seconds()),
	}, nil
}

// Refresh rotates the presented refresh token and mints a new access token.
// The old refresh token is revoked in the same transaction as the new one is
// stored, so a replayed token fails validation.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPairResponse, error) {
	oldHash := auth.HashRefreshToken(refreshToken)

	userID, ok, err := s.tokenRepo.Validate(ctx, oldHash)
	if err != nil {
		return nil, fmt.Errorf("failed to validate refresh token: %w", err)
	}
	if !ok {
		return nil, apperrors.ErrInvalidRefreshToken
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, apperrors.ErrInvalidRefreshToken
	}

	now := time.Now().UTC()
	access, err := s.manager.MintAccessToken(user.ID, user.IsStaff, now)
	if err != nil {
		return nil, err
	}

	refresh, newHash := s.manager.NewRefreshToken()
	if err := s.tokenRepo.Rotate(ctx, oldHash, user.ID, newHash, now.Add(s.manager.RefreshTokenTTL())); err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return &models.TokenPairResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.manager.AccessTokenTTL().Seconds()),
	}, nil
}

// Logout revokes every refresh token the user holds.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	return s.tokenRepo.RevokeAllForUser(ctx, userID)
}
