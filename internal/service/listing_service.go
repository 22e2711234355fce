package service

import (
	"context"

	"github.com/gasmarket/marketplace-api/internal/auth"
	"github.com/gasmarket/marketplace-api/internal/models"
	"github.com/gasmarket/marketplace-api/internal/repository"
	apperrors "github.com/gasmarket/marketplace-api/pkg/errors"
	"github.com/gasmarket/marketplace-api/pkg/logger"
)

// ListingStore is the listing persistence the service needs. The wired
// implementation is the Redis-cached repository; Invalidate drops the
// cached copy after an order transition moves stock.
type ListingStore interface {
	Create(ctx context.Context, listing *models.GasListing) error
	GetByID(ctx context.Context, id string) (*models.GasListing, error)
	Update(ctx context.Context, listing *models.GasListing) error
	List(ctx context.Context, filter repository.ListingFilter) ([]*models.GasListing, error)
	Invalidate(ctx context.Context, id string)
}

// CreateListingInput holds the seller-supplied fields of a new listing
type CreateListingInput struct {
	Brand     string  `json:"brand"`
	WeightKg  float64 `json:"weight_kg"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Location  string  `json:"location"`
}

// UpdateListingInput holds the editable fields of a listing. Nil fields
// are left unchanged.
type UpdateListingInput struct {
	Brand     *string  `json:"brand,omitempty"`
	WeightKg  *float64 `json:"weight_kg,omitempty"`
	Quantity  *int     `json:"quantity,omitempty"`
	UnitPrice *float64 `json:"unit_price,omitempty"`
	Location  *string  `json:"location,omitempty"`
}

// ListingService implements the catalog operations
type ListingService struct {
	listings ListingStore
	logger   logger.Logger
}

// NewListingService creates a new ListingService
func NewListingService(listings ListingStore, logger logger.Logger) *ListingService {
	return &ListingService{
		listings: listings,
		logger:   logger,
	}
}

// Create publishes a new listing owned by the calling seller
func (s *ListingService) Create(ctx context.Context, principal *auth.Principal, input CreateListingInput) (*models.GasListing, error) {
	if !principal.IsSeller() {
		return nil, apperrors.NewForbiddenError("only sellers can publish listings")
	}

	brand := models.GasBrand(input.Brand)
	if !brand.Valid() {
		return nil, apperrors.NewInvalidInputError("unknown gas brand")
	}
	if input.WeightKg <= 0 {
		return nil, apperrors.NewInvalidInputError("weight must be positive")
	}
	if input.Quantity < 0 {
		return nil, apperrors.NewInvalidInputError("quantity cannot be negative")
	}
	if input.UnitPrice <= 0 {
		return nil, apperrors.NewInvalidInputError("unit price must be positive")
	}
	if input.Location == "" {
		return nil, apperrors.NewInvalidInputError("location is required")
	}

	listing := models.NewGasListing(principal.UserID, brand, input.WeightKg, input.Quantity, input.UnitPrice, input.Location)

	if err := s.listings.Create(ctx, listing); err != nil {
		s.logger.Error("Failed to create listing", "error", err, "sellerID", principal.UserID)
		return nil, apperrors.NewInternalError("failed to create listing")
	}

	s.logger.Info("Listing created", "listingID", listing.ID, "sellerID", principal.UserID)
	return listing, nil
}

// Update edits a listing. Only the owning seller or an admin may edit.
func (s *ListingService) Update(ctx context.Context, principal *auth.Principal, listingID string, input UpdateListingInput) (*models.GasListing, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, translateStoreError(err, "listing not found")
	}

	if listing.SellerID != principal.UserID && !principal.IsAdmin() {
		return nil, apperrors.NewForbiddenError("not the owner of this listing")
	}

	if input.Brand != nil {
		brand := models.GasBrand(*input.Brand)
		if !brand.Valid() {
			return nil, apperrors.NewInvalidInputError("unknown gas brand")
		}
		listing.Brand = brand
	}
	if input.WeightKg != nil {
		if *input.WeightKg <= 0 {
			return nil, apperrors.NewInvalidInputError("weight must be positive")
		}
		listing.WeightKg = *input.WeightKg
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, apperrors.NewInvalidInputError("quantity cannot be negative")
		}
		listing.Quantity = *input.Quantity
	}
	if input.UnitPrice != nil {
		if *input.UnitPrice <= 0 {
			return nil, apperrors.NewInvalidInputError("unit price must be positive")
		}
		listing.UnitPrice = *input.UnitPrice
	}
	if input.Location != nil {
		if *input.Location == "" {
			return nil, apperrors.NewInvalidInputError("location is required")
		}
		listing.Location = *input.Location
	}

	if err := s.listings.Update(ctx, listing); err != nil {
		return nil, translateStoreError(err, "listing not found")
	}

	return listing, nil
}

// Get retrieves one listing
func (s *ListingService) Get(ctx context.Context, listingID string) (*models.GasListing, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, translateStoreError(err, "listing not found")
	}
	return listing, nil
}

// List searches the catalog
func (s *ListingService) List(ctx context.Context, filter repository.ListingFilter) ([]*models.GasListing, error) {
	listings, err := s.listings.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list listings", "error", err)
		return nil, apperrors.NewInternalError("failed to list listings")
	}
	return listings, nil
}

// Mine retrieves the calling seller's own listings, in or out of stock
func (s *ListingService) Mine(ctx context.Context, principal *auth.Principal, limit, offset int) ([]*models.GasListing, error) {
	if !principal.IsSeller() && !principal.IsAdmin() {
		return nil, apperrors.NewForbiddenError("only sellers have listings")
	}

	return s.List(ctx, repository.ListingFilter{
		SellerID: principal.UserID,
		Limit:    limit,
		Offset:   offset,
	})
}
