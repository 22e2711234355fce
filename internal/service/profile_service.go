package service

import (
	"context"

	"github.com/gasmarket/marketplace-api/internal/auth"
	"github.com/gasmarket/marketplace-api/internal/models"
	apperrors "github.com/gasmarket/marketplace-api/pkg/errors"
	"github.com/gasmarket/marketplace-api/pkg/logger"
)

// ProfileStore is the profile persistence the service needs
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error)
	Create(ctx context.Context, profile *models.UserProfile) error
}

// CreateProfileInput holds the fields of a provisioned profile
type CreateProfileInput struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
}

// ProfileService implements profile reads and admin provisioning
type ProfileService struct {
	profiles ProfileStore
	logger   logger.Logger
}

// NewProfileService creates a new ProfileService
func NewProfileService(profiles ProfileStore, logger logger.Logger) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		logger:   logger,
	}
}

// Me returns the caller's own profile
func (s *ProfileService) Me(ctx context.Context, principal *auth.Principal) (*models.UserProfile, error) {
	profile, err := s.profiles.GetByUserID(ctx, principal.UserID)
	if err != nil {
		return nil, translateStoreError(err, "profile not found")
	}
	return profile, nil
}

// Create provisions a marketplace profile for a gateway user. Admin only.
func (s *ProfileService) Create(ctx context.Context, principal *auth.Principal, input CreateProfileInput) (*models.UserProfile, error) {
	if !principal.IsAdmin() {
		return nil, apperrors.NewForbiddenError("only admins can provision profiles")
	}

	if input.UserID == "" || input.Username == "" {
		return nil, apperrors.NewInvalidInputError("user_id and username are required")
	}

	role, err := models.ParseRole(input.Role)
	if err != nil {
		return nil, apperrors.NewInvalidInputError("role must be one of BUYER, SELLER, ADMIN")
	}

	profile := &models.UserProfile{
		UserID:      input.UserID,
		Username:    input.Username,
		Role:        role,
		PhoneNumber: input.PhoneNumber,
		Address:     input.Address,
		CreatedAt:   models.GetCurrentTime(),
	}

	if err := s.profiles.Create(ctx, profile); err != nil {
		s.logger.Error("Failed to create profile", "error", err, "userID", input.UserID)
		return nil, apperrors.NewInternalError("failed to create profile")
	}

	s.logger.Info("Profile provisioned", "userID", profile.UserID, "role", string(profile.Role))
	return profile, nil
}
