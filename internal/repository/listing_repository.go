package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/gasmarket/marketplace-api/internal/database"
	"github.com/gasmarket/marketplace-api/internal/models"
	"github.com/gasmarket/marketplace-api/pkg/logger"
)

// ListingFilter holds the catalog search predicates. Zero values mean
// "no constraint".
type ListingFilter struct {
	Brand       string
	WeightKg    float64
	Location    string
	MinPrice    float64
	MaxPrice    float64
	SellerID    string
	InStockOnly bool
	OrderBy     string // one of: unit_price, weight_kg, created_at
	Limit       int
	Offset      int
}

// ListingRepository handles database operations for gas listings,
// including the inventory ledger queries used by order transitions.
type ListingRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewListingRepository creates a new ListingRepository
func NewListingRepository(db *database.Database, logger logger.Logger) *ListingRepository {
	return &ListingRepository{
		db:     db,
		logger: logger,
	}
}

const listingColumns = `id, brand, weight_kg, quantity, unit_price, seller_id, location, created_at, updated_at`

// Create inserts a new listing
func (r *ListingRepository) Create(ctx context.Context, listing *models.GasListing) error {
	query := `
		INSERT INTO gas_listings (id, brand, weight_kg, quantity, unit_price, seller_id, location, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.DB.ExecContext(
		ctx,
		query,
		listing.ID,
		listing.Brand,
		listing.WeightKg,
		listing.Quantity,
		listing.UnitPrice,
		listing.SellerID,
		listing.Location,
		listing.CreatedAt,
		listing.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create listing", "error", err, "listingID", listing.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByID retrieves a listing by its ID
func (r *ListingRepository) GetByID(ctx context.Context, id string) (*models.GasListing, error) {
	query := `SELECT ` + listingColumns + ` FROM gas_listings WHERE id = $1`

	var listing models.GasListing
	err := r.db.DB.GetContext(ctx, &listing, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get listing by ID", "error", err, "listingID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &listing, nil
}

// Update overwrites a listing's seller-editable fields
func (r *ListingRepository) Update(ctx context.Context, listing *models.GasListing) error {
	query := `
		UPDATE gas_listings
		SET brand = $1, weight_kg = $2, quantity = $3, unit_price = $4, location = $5, updated_at = $6
		WHERE id = $7
	`

	result, err := r.db.DB.ExecContext(
		ctx,
		query,
		listing.Brand,
		listing.WeightKg,
		listing.Quantity,
		listing.UnitPrice,
		listing.Location,
		models.GetCurrentTime(),
		listing.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update listing", "error", err, "listingID", listing.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// List retrieves listings matching the filter
func (r *ListingRepository) List(ctx context.Context, filter ListingFilter) ([]*models.GasListing, error) {
	var conditions []string
	var args []interface{}

	addCondition := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.Brand != "" {
		addCondition("UPPER(brand) = UPPER($%d)", filter.Brand)
	}
	if filter.WeightKg > 0 {
		addCondition("weight_kg = $%d", filter.WeightKg)
	}
	if filter.Location != "" {
		addCondition("location ILIKE $%d", "%"+filter.Location+"%")
	}
	if filter.MinPrice > 0 {
		addCondition("unit_price >= $%d", filter.MinPrice)
	}
	if filter.MaxPrice > 0 {
		addCondition("unit_price <= $%d", filter.MaxPrice)
	}
	if filter.SellerID != "" {
		addCondition("seller_id = $%d", filter.SellerID)
	}
	if filter.InStockOnly {
		conditions = append(conditions, "quantity > 0")
	}

	query := `SELECT ` + listingColumns + ` FROM gas_listings`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	switch filter.OrderBy {
	case "unit_price", "weight_kg":
		query += " ORDER BY " + filter.OrderBy + " ASC"
	default:
		query += " ORDER BY created_at DESC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	var listings []*models.GasListing
	err := r.db.DB.SelectContext(ctx, &listings, query, args...)
	if err != nil {
		r.logger.Error("Failed to list listings", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return listings, nil
}

// ReserveInTx decrements a listing's available quantity inside the given
// transaction. The decrement is conditional on sufficient stock, so two
// racing reservations can never oversell: the losing statement matches
// zero rows.
func (r *ListingRepository) ReserveInTx(ctx context.Context, tx *sqlx.Tx, listingID string, quantity int) error {
	query := `
		UPDATE gas_listings
		SET quantity = quantity - $2, updated_at = $3
		WHERE id = $1 AND quantity >= $2
	`

	result, err := tx.ExecContext(ctx, query, listingID, quantity, models.GetCurrentTime())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return ErrInsufficientStock
	}

	return nil
}

// ReleaseInTx returns previously reserved quantity to a listing inside the
// given transaction. Unconditional: it only ever undoes a reservation.
func (r *ListingRepository) ReleaseInTx(ctx context.Context, tx *sqlx.Tx, listingID string, quantity int) error {
	query := `
		UPDATE gas_listings
		SET quantity = quantity + $2, updated_at = $3
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query, listingID, quantity, models.GetCurrentTime())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
