package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gasmarket/marketplace-api/internal/database"
	"github.com/gasmarket/marketplace-api/internal/models"
	"github.com/gasmarket/marketplace-api/pkg/logger"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDatabase          = errors.New("database error")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStatusConflict    = errors.New("status conflict")
	ErrDuplicate         = errors.New("duplicate record")
)

// ProfileRepository handles database operations for user profiles. The
// profiles are written by the identity substrate; this service only reads
// them to resolve roles, plus a create used for provisioning.
type ProfileRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *database.Database, logger logger.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger,
	}
}

// GetByUserID retrieves the profile for an authenticated user
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	query := `
		SELECT user_id, username, role, phone_number, address, created_at
		FROM user_profiles
		WHERE user_id = $1
	`

	var profile models.UserProfile
	err := r.db.DB.GetContext(ctx, &profile, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get profile", "error", err, "userID", userID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &profile, nil
}

// Create inserts a new user profile
func (r *ProfileRepository) Create(ctx context.Context, profile *models.UserProfile) error {
	query := `
		INSERT INTO user_profiles (user_id, username, role, phone_number, address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.DB.ExecContext(
		ctx,
		query,
		profile.UserID,
		profile.Username,
		profile.Role,
		profile.PhoneNumber,
		profile.Address,
		profile.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create profile", "error", err, "userID", profile.UserID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}
