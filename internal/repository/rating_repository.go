package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/gasmarket/marketplace-api/internal/database"
	"github.com/gasmarket/marketplace-api/internal/models"
	"github.com/gasmarket/marketplace-api/pkg/logger"
)

// RatingRepository handles database operations for order ratings
type RatingRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewRatingRepository creates a new RatingRepository
func NewRatingRepository(db *database.Database, logger logger.Logger) *RatingRepository {
	return &RatingRepository{
		db:     db,
		logger: logger,
	}
}

const ratingColumns = `id, order_id, score, comment, created_at`

// Create inserts a rating. The unique constraint on order_id backs the
// once-per-order invariant even under concurrent submissions; the loser
// gets ErrDuplicate.
func (r *RatingRepository) Create(ctx context.Context, rating *models.Rating) error {
	query := `
		INSERT INTO ratings (id, order_id, score, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.DB.ExecContext(
		ctx,
		query,
		rating.ID,
		rating.OrderID,
		rating.Score,
		rating.Comment,
		rating.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicate
		}
		r.logger.Error("Failed to create rating", "error", err, "ratingID", rating.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByOrderID retrieves the rating for an order
func (r *RatingRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Rating, error) {
	query := `SELECT ` + ratingColumns + ` FROM ratings WHERE order_id = $1`

	var rating models.Rating
	err := r.db.DB.GetContext(ctx, &rating, query, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get rating by order ID", "error", err, "orderID", orderID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &rating, nil
}

// GetAll retrieves all ratings with limit and offset
func (r *RatingRepository) GetAll(ctx context.Context, limit, offset int) ([]*models.Rating, error) {
	query := `SELECT ` + ratingColumns + ` FROM ratings ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	var ratings []*models.Rating
	err := r.db.DB.SelectContext(ctx, &ratings, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get all ratings", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return ratings, nil
}

// GetForUser retrieves ratings on orders the user placed or received
func (r *RatingRepository) GetForUser(ctx context.Context, userID string, limit, offset int) ([]*models.Rating, error) {
	query := `
		SELECT rt.id, rt.order_id, rt.score, rt.comment, rt.created_at
		FROM ratings rt
		JOIN orders o ON o.id = rt.order_id
		JOIN gas_listings l ON l.id = o.listing_id
		WHERE o.buyer_id = $1 OR l.seller_id = $1
		ORDER BY rt.created_at DESC
		LIMIT $2 OFFSET $3
	`

	var ratings []*models.Rating
	err := r.db.DB.SelectContext(ctx, &ratings, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get ratings for user", "error", err, "userID", userID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return ratings, nil
}
