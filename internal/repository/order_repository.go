package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/gasmarket/marketplace-api/internal/database"
	"github.com/gasmarket/marketplace-api/internal/models"
	"github.com/gasmarket/marketplace-api/pkg/logger"
)

// OrderRepository handles database operations for orders. The lifecycle
// transitions own their transactions: a transition, its inventory effect,
// any derived invoice and its outbox event commit as one unit or not at
// all.
type OrderRepository struct {
	db       *database.Database
	listings *ListingRepository
	invoices *InvoiceRepository
	outbox   *OutboxRepository
	logger   logger.Logger
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(
	db *database.Database,
	listings *ListingRepository,
	invoices *InvoiceRepository,
	outbox *OutboxRepository,
	logger logger.Logger,
) *OrderRepository {
	return &OrderRepository{
		db:       db,
		listings: listings,
		invoices: invoices,
		outbox:   outbox,
		logger:   logger,
	}
}

const orderColumns = `id, listing_id, buyer_id, quantity, total_price, status, delivery_address, contact_phone, created_at, updated_at`

// Create inserts a new order and its created event in one transaction
func (r *OrderRepository) Create(ctx context.Context, order *models.Order, msg *models.OutboxMessage) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO orders (id, listing_id, buyer_id, quantity, total_price, status, delivery_address, contact_phone, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`

		_, err := tx.ExecContext(
			ctx,
			query,
			order.ID,
			order.ListingID,
			order.BuyerID,
			order.Quantity,
			order.TotalPrice,
			order.Status,
			order.DeliveryAddress,
			order.ContactPhone,
			order.CreatedAt,
			order.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create order", "error", err, "orderID", order.ID)
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}

		return r.outbox.CreateInTx(ctx, tx, msg)
	})
}

// GetByID retrieves an order by its ID
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var order models.Order
	err := r.db.DB.GetContext(ctx, &order, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get order by ID", "error", err, "orderID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &order, nil
}

// GetAll retrieves all orders with limit and offset
func (r *OrderRepository) GetAll(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	var orders []*models.Order
	err := r.db.DB.SelectContext(ctx, &orders, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get all orders", "error", err, "limit", limit, "offset", offset)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return orders, nil
}

// GetByBuyerID retrieves all orders placed by a buyer
func (r *OrderRepository) GetByBuyerID(ctx context.Context, buyerID string, limit, offset int) ([]*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE buyer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var orders []*models.Order
	err := r.db.DB.SelectContext(ctx, &orders, query, buyerID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get orders by buyer ID", "error", err, "buyerID", buyerID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return orders, nil
}

// GetBySellerID retrieves all orders placed against a seller's listings
func (r *OrderRepository) GetBySellerID(ctx context.Context, sellerID string, limit, offset int) ([]*models.Order, error) {
	query := `
		SELECT o.id, o.listing_id, o.buyer_id, o.quantity, o.total_price, o.status, o.delivery_address, o.contact_phone, o.created_at, o.updated_at
		FROM orders o
		JOIN gas_listings l ON l.id = o.listing_id
		WHERE l.seller_id = $1
		ORDER BY o.created_at DESC
		LIMIT $2 OFFSET $3
	`

	var orders []*models.Order
	err := r.db.DB.SelectContext(ctx, &orders, query, sellerID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get orders by seller ID", "error", err, "sellerID", sellerID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return orders, nil
}

// Approve moves a PENDING order to APPROVED, reserves the stock and
// creates the derived invoice (when one is passed) in a single
// transaction. Returns ErrStatusConflict if the order left PENDING
// concurrently and ErrInsufficientStock if the reservation loses the
// stock race; in both cases nothing is committed.
func (r *OrderRepository) Approve(ctx context.Context, order *models.Order, invoice *models.Invoice, msg *models.OutboxMessage) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.updateStatusInTx(ctx, tx, order.ID, models.OrderStatusPending, models.OrderStatusApproved); err != nil {
			return err
		}

		if err := r.listings.ReserveInTx(ctx, tx, order.ListingID, order.Quantity); err != nil {
			return err
		}

		if invoice != nil {
			if err := r.invoices.CreateInTx(ctx, tx, invoice); err != nil {
				return err
			}
		}

		return r.outbox.CreateInTx(ctx, tx, msg)
	})
}

// Cancel moves an order to CANCELLED from the given prior status. When the
// prior status is APPROVED the reserved quantity is returned to the
// listing in the same transaction; a still-pending order never reserved
// stock, so nothing is released.
func (r *OrderRepository) Cancel(ctx context.Context, order *models.Order, from models.OrderStatus, msg *models.OutboxMessage) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.updateStatusInTx(ctx, tx, order.ID, from, models.OrderStatusCancelled); err != nil {
			return err
		}

		if from == models.OrderStatusApproved {
			if err := r.listings.ReleaseInTx(ctx, tx, order.ListingID, order.Quantity); err != nil {
				return err
			}
		}

		return r.outbox.CreateInTx(ctx, tx, msg)
	})
}

// UpdateStatus performs a plain transition with no inventory effect
// (reject, mark delivered) plus its event, in one transaction
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, from, to models.OrderStatus, msg *models.OutboxMessage) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.updateStatusInTx(ctx, tx, orderID, from, to); err != nil {
			return err
		}

		return r.outbox.CreateInTx(ctx, tx, msg)
	})
}

// updateStatusInTx is a compare-and-set on the order status. Matching zero
// rows means the order moved concurrently (or does not exist); the caller's
// transaction rolls back.
func (r *OrderRepository) updateStatusInTx(ctx context.Context, tx *sqlx.Tx, orderID string, from, to models.OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`

	result, err := tx.ExecContext(ctx, query, orderID, from, to, models.GetCurrentTime())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return ErrStatusConflict
	}

	return nil
}

// inTx runs fn in a transaction, rolling back on error
func (r *OrderRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("Failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit transaction", "error", err)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}
