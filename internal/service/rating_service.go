package service

import (
	"context"
	"errors"

	"github.com/gasmarket/marketplace-api/internal/auth"
	"github.com/gasmarket/marketplace-api/internal/models"
	"github.com/gasmarket/marketplace-api/internal/repository"
	apperrors "github.com/gasmarket/marketplace-api/pkg/errors"
	"github.com/gasmarket/marketplace-api/pkg/logger"
)

// RatingStore is the rating persistence the service needs
type RatingStore interface {
	Create(ctx context.Context, rating *models.Rating) error
	GetByOrderID(ctx context.Context, orderID string) (*models.Rating, error)
	GetAll(ctx context.Context, limit, offset int) ([]*models.Rating, error)
	GetForUser(ctx context.Context, userID string, limit, offset int) ([]*models.Rating, error)
}

// RateOrderInput holds a buyer's rating submission
type RateOrderInput struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// RatingService implements the rating gate: the buyer of a delivered
// order may rate it once.
type RatingService struct {
	ratings  RatingStore
	orders   OrderLookup
	listings ListingStore
	logger   logger.Logger
}

// NewRatingService creates a new RatingService
func NewRatingService(ratings RatingStore, orders OrderLookup, listings ListingStore, logger logger.Logger) *RatingService {
	return &RatingService{
		ratings:  ratings,
		orders:   orders,
		listings: listings,
		logger:   logger,
	}
}

// Rate records the buyer's rating of a delivered order. The unique
// constraint on order_id decides concurrent submissions; the loser gets
// AlreadyRated.
func (s *RatingService) Rate(ctx context.Context, principal *auth.Principal, orderID string, input RateOrderInput) (*models.Rating, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, translateStoreError(err, "order not found")
	}

	if order.BuyerID != principal.UserID {
		return nil, apperrors.NewForbiddenError("only the buyer can rate an order")
	}

	if order.Status != models.OrderStatusDelivered {
		return nil, apperrors.NewInvalidTransitionError("only delivered orders can be rated")
	}

	if !models.ValidScore(input.Score) {
		return nil, apperrors.NewInvalidInputError("score must be between 1 and 5")
	}

	rating := models.NewRating(orderID, input.Score, input.Comment)

	if err := s.ratings.Create(ctx, rating); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewAlreadyRatedError("order is already rated")
		}
		s.logger.Error("Failed to create rating", "error", err, "orderID", orderID)
		return nil, apperrors.NewInternalError("failed to create rating")
	}

	s.logger.Info("Order rated", "orderID", orderID, "score", input.Score)
	return rating, nil
}

// GetByOrder retrieves the rating on an order, visible to its parties and
// admins
func (s *RatingService) GetByOrder(ctx context.Context, principal *auth.Principal, orderID string) (*models.Rating, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, translateStoreError(err, "order not found")
	}

	if !principal.IsAdmin() && order.BuyerID != principal.UserID {
		listing, err := s.listings.GetByID(ctx, order.ListingID)
		if err != nil {
			return nil, translateStoreError(err, "listing not found")
		}
		if listing.SellerID != principal.UserID {
			return nil, apperrors.NewForbiddenError("not a party to this order")
		}
	}

	rating, err := s.ratings.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, translateStoreError(err, "rating not found")
	}

	return rating, nil
}

// List retrieves the ratings visible to the caller
func (s *RatingService) List(ctx context.Context, principal *auth.Principal, limit, offset int) ([]*models.Rating, error) {
	var ratings []*models.Rating
	var err error

	if principal.IsAdmin() {
		ratings, err = s.ratings.GetAll(ctx, limit, offset)
	} else {
		ratings, err = s.ratings.GetForUser(ctx, principal.UserID, limit, offset)
	}

	if err != nil {
		s.logger.Error("Failed to list ratings", "error", err, "userID", principal.UserID)
		return nil, apperrors.NewInternalError("failed to list ratings")
	}

	return ratings, nil
}
