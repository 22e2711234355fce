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

// PaymentRepository handles database operations for payments. Payments
// are immutable once written.
type PaymentRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *database.Database, logger logger.Logger) *PaymentRepository {
	return &PaymentRepository{
		db:     db,
		logger: logger,
	}
}

const paymentColumns = `id, invoice_id, amount, status, transaction_id, payment_method, created_at`

// CreateInTx inserts a payment record inside the given transaction
func (r *PaymentRepository) CreateInTx(ctx context.Context, tx *sqlx.Tx, payment *models.Payment) error {
	query := `
		INSERT INTO payments (id, invoice_id, amount, status, transaction_id, payment_method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		payment.ID,
		payment.InvoiceID,
		payment.Amount,
		payment.Status,
		payment.TransactionID,
		payment.PaymentMethod,
		payment.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create payment", "error", err, "paymentID", payment.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByID retrieves a payment by its ID
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	var payment models.Payment
	err := r.db.DB.GetContext(ctx, &payment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get payment by ID", "error", err, "paymentID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &payment, nil
}

// GetByInvoiceID retrieves the payment settling an invoice
func (r *PaymentRepository) GetByInvoiceID(ctx context.Context, invoiceID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE invoice_id = $1`

	var payment models.Payment
	err := r.db.DB.GetContext(ctx, &payment, query, invoiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get payment by invoice ID", "error", err, "invoiceID", invoiceID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &payment, nil
}

// GetAll retrieves all payments with limit and offset
func (r *PaymentRepository) GetAll(ctx context.Context, limit, offset int) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	var payments []*models.Payment
	err := r.db.DB.SelectContext(ctx, &payments, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get all payments", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return payments, nil
}

// GetForUser retrieves payments visible to a non-admin user: those on
// invoices for orders they placed or received
func (r *PaymentRepository) GetForUser(ctx context.Context, userID string, limit, offset int) ([]*models.Payment, error) {
	query := `
		SELECT p.id, p.invoice_id, p.amount, p.status, p.transaction_id, p.payment_method, p.created_at
		FROM payments p
		JOIN invoices i ON i.id = p.invoice_id
		JOIN orders o ON o.id = i.order_id
		JOIN gas_listings l ON l.id = o.listing_id
		WHERE o.buyer_id = $1 OR l.seller_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3
	`

	var payments []*models.Payment
	err := r.db.DB.SelectContext(ctx, &payments, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get payments for user", "error", err, "userID", userID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return payments, nil
}
