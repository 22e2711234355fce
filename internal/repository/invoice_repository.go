package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/gasmarket/marketplace-api/internal/database"
	"github.com/gasmarket/marketplace-api/internal/models"
	"github.com/gasmarket/marketplace-api/pkg/logger"
)

// InvoiceRepository handles database operations for invoices
type InvoiceRepository struct {
	db       *database.Database
	payments *PaymentRepository
	outbox   *OutboxRepository
	logger   logger.Logger
}

// NewInvoiceRepository creates a new InvoiceRepository
func NewInvoiceRepository(
	db *database.Database,
	payments *PaymentRepository,
	outbox *OutboxRepository,
	logger logger.Logger,
) *InvoiceRepository {
	return &InvoiceRepository{
		db:       db,
		payments: payments,
		outbox:   outbox,
		logger:   logger,
	}
}

const invoiceColumns = `id, order_id, invoice_number, amount, due_date, is_paid, payment_date, admin_approval, admin_approval_date, created_at`

// Create inserts a new invoice
func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := r.CreateInTx(ctx, tx, invoice); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("Failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// CreateInTx inserts a new invoice inside the given transaction. A second
// invoice for the same order violates the one-to-one constraint and is
// surfaced as ErrDuplicate.
func (r *InvoiceRepository) CreateInTx(ctx context.Context, tx *sqlx.Tx, invoice *models.Invoice) error {
	query := `
		INSERT INTO invoices (id, order_id, invoice_number, amount, due_date, is_paid, payment_date, admin_approval, admin_approval_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		invoice.ID,
		invoice.OrderID,
		invoice.InvoiceNumber,
		invoice.Amount,
		invoice.DueDate,
		invoice.IsPaid,
		invoice.PaymentDate,
		invoice.AdminApproval,
		invoice.AdminApprovalDate,
		invoice.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicate
		}
		r.logger.Error("Failed to create invoice", "error", err, "invoiceID", invoice.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByID retrieves an invoice by its ID
func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`

	var invoice models.Invoice
	err := r.db.DB.GetContext(ctx, &invoice, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get invoice by ID", "error", err, "invoiceID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &invoice, nil
}

// GetByOrderID retrieves the invoice derived from an order
func (r *InvoiceRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE order_id = $1`

	var invoice models.Invoice
	err := r.db.DB.GetContext(ctx, &invoice, query, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get invoice by order ID", "error", err, "orderID", orderID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &invoice, nil
}

// GetAll retrieves all invoices with limit and offset
func (r *InvoiceRepository) GetAll(ctx context.Context, limit, offset int) ([]*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	var invoices []*models.Invoice
	err := r.db.DB.SelectContext(ctx, &invoices, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get all invoices", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return invoices, nil
}

// GetForUser retrieves the invoices visible to a non-admin user: those on
// orders they placed or on orders against their listings
func (r *InvoiceRepository) GetForUser(ctx context.Context, userID string, limit, offset int) ([]*models.Invoice, error) {
	query := `
		SELECT i.id, i.order_id, i.invoice_number, i.amount, i.due_date, i.is_paid, i.payment_date, i.admin_approval, i.admin_approval_date, i.created_at
		FROM invoices i
		JOIN orders o ON o.id = i.order_id
		JOIN gas_listings l ON l.id = o.listing_id
		WHERE o.buyer_id = $1 OR l.seller_id = $1
		ORDER BY i.created_at DESC
		LIMIT $2 OFFSET $3
	`

	var invoices []*models.Invoice
	err := r.db.DB.SelectContext(ctx, &invoices, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get invoices for user", "error", err, "userID", userID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return invoices, nil
}

// MarkApproved flips the admin approval flag. The guard on the current
// flag makes concurrent approvals idempotent-safe: the loser matches zero
// rows and gets ErrStatusConflict.
func (r *InvoiceRepository) MarkApproved(ctx context.Context, invoiceID string) error {
	query := `
		UPDATE invoices
		SET admin_approval = TRUE, admin_approval_date = $2
		WHERE id = $1 AND admin_approval = FALSE
	`

	result, err := r.db.DB.ExecContext(ctx, query, invoiceID, models.GetCurrentTime())
	if err != nil {
		r.logger.Error("Failed to approve invoice", "error", err, "invoiceID", invoiceID)
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

// MarkPaid settles an invoice: flips the paid flag, records the payment
// and writes the invoice_paid event in a single transaction. The guard on
// is_paid ensures at most one settlement ever commits.
func (r *InvoiceRepository) MarkPaid(ctx context.Context, invoice *models.Invoice, payment *models.Payment, msg *models.OutboxMessage) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	err = func() error {
		query := `
			UPDATE invoices
			SET is_paid = TRUE, payment_date = $2
			WHERE id = $1 AND is_paid = FALSE
		`

		result, err := tx.ExecContext(ctx, query, invoice.ID, payment.CreatedAt)
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

		if err := r.payments.CreateInTx(ctx, tx, payment); err != nil {
			return err
		}

		return r.outbox.CreateInTx(ctx, tx, msg)
	}()

	if err != nil {
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
