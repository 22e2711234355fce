package service

import (
	"context"
	"errors"

	"github.com/gasmarket/marketplace-api/internal/auth"
	"github.com/gasmarket/marketplace-api/internal/metrics"
	"github.com/gasmarket/marketplace-api/internal/models"
	"github.com/gasmarket/marketplace-api/internal/repository"
	apperrors "github.com/gasmarket/marketplace-api/pkg/errors"
	"github.com/gasmarket/marketplace-api/pkg/logger"
)

// InvoiceStore is the invoice persistence the service needs
type InvoiceStore interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, id string) (*models.Invoice, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.Invoice, error)
	GetAll(ctx context.Context, limit, offset int) ([]*models.Invoice, error)
	GetForUser(ctx context.Context, userID string, limit, offset int) ([]*models.Invoice, error)
	MarkApproved(ctx context.Context, invoiceID string) error
	MarkPaid(ctx context.Context, invoice *models.Invoice, payment *models.Payment, msg *models.OutboxMessage) error
}

// PaymentStore is the payment read surface the service needs
type PaymentStore interface {
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	GetByInvoiceID(ctx context.Context, invoiceID string) (*models.Payment, error)
	GetAll(ctx context.Context, limit, offset int) ([]*models.Payment, error)
	GetForUser(ctx context.Context, userID string, limit, offset int) ([]*models.Payment, error)
}

// OrderLookup is the order read the invoice guards need
type OrderLookup interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
}

// InvoiceService implements the billing operations
type InvoiceService struct {
	invoices InvoiceStore
	payments PaymentStore
	orders   OrderLookup
	listings ListingStore
	logger   logger.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(invoices InvoiceStore, payments PaymentStore, orders OrderLookup, listings ListingStore, logger logger.Logger) *InvoiceService {
	return &InvoiceService{
		invoices: invoices,
		payments: payments,
		orders:   orders,
		listings: listings,
		logger:   logger,
	}
}

// Get retrieves one invoice, visible to the parties of its order and admins
func (s *InvoiceService) Get(ctx context.Context, principal *auth.Principal, invoiceID string) (*models.Invoice, error) {
	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, translateStoreError(err, "invoice not found")
	}

	if err := s.checkVisibility(ctx, principal, invoice); err != nil {
		return nil, err
	}

	return invoice, nil
}

// GetByOrder retrieves the invoice derived from an order
func (s *InvoiceService) GetByOrder(ctx context.Context, principal *auth.Principal, orderID string) (*models.Invoice, error) {
	invoice, err := s.invoices.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, translateStoreError(err, "invoice not found")
	}

	if err := s.checkVisibility(ctx, principal, invoice); err != nil {
		return nil, err
	}

	return invoice, nil
}

// List retrieves the invoices visible to the caller
func (s *InvoiceService) List(ctx context.Context, principal *auth.Principal, limit, offset int) ([]*models.Invoice, error) {
	var invoices []*models.Invoice
	var err error

	if principal.IsAdmin() {
		invoices, err = s.invoices.GetAll(ctx, limit, offset)
	} else {
		invoices, err = s.invoices.GetForUser(ctx, principal.UserID, limit, offset)
	}

	if err != nil {
		s.logger.Error("Failed to list invoices", "error", err, "userID", principal.UserID)
		return nil, apperrors.NewInternalError("failed to list invoices")
	}

	return invoices, nil
}

// CreateForOrder creates the invoice for an approved order that is missing
// one. Idempotent: if an invoice already exists it is returned as-is.
// Allowed to the listing's seller and admins.
func (s *InvoiceService) CreateForOrder(ctx context.Context, principal *auth.Principal, orderID string) (*models.Invoice, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, translateStoreError(err, "order not found")
	}

	if !principal.IsAdmin() {
		listing, err := s.listings.GetByID(ctx, order.ListingID)
		if err != nil {
			return nil, translateStoreError(err, "listing not found")
		}
		if listing.SellerID != principal.UserID {
			return nil, apperrors.NewForbiddenError("only the seller can invoice an order")
		}
	}

	if order.Status != models.OrderStatusApproved {
		return nil, apperrors.NewInvalidTransitionError("only approved orders can be invoiced")
	}

	if existing, err := s.invoices.GetByOrderID(ctx, orderID); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError("failed to check for existing invoice")
	}

	invoice := models.NewInvoiceForOrder(order)
	if err := s.invoices.Create(ctx, invoice); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.GetByOrder(ctx, principal, orderID)
		}
		s.logger.Error("Failed to create invoice", "error", err, "orderID", orderID)
		return nil, apperrors.NewInternalError("failed to create invoice")
	}

	s.logger.Info("Invoice created", "invoiceID", invoice.ID, "orderID", orderID)
	return invoice, nil
}

// Approve records admin approval of an invoice. The parent order must
// still be APPROVED, and approval happens at most once.
func (s *InvoiceService) Approve(ctx context.Context, principal *auth.Principal, invoiceID string) (*models.Invoice, error) {
	if !principal.IsAdmin() {
		return nil, apperrors.NewForbiddenError("only admins can approve invoices")
	}

	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, translateStoreError(err, "invoice not found")
	}

	if invoice.AdminApproval {
		return nil, apperrors.NewAlreadyApprovedError("invoice is already approved")
	}

	order, err := s.orders.GetByID(ctx, invoice.OrderID)
	if err != nil {
		return nil, translateStoreError(err, "order not found")
	}
	if order.Status != models.OrderStatusApproved {
		return nil, apperrors.NewInvalidTransitionError("parent order is not approved")
	}

	if err := s.invoices.MarkApproved(ctx, invoiceID); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, apperrors.NewAlreadyApprovedError("invoice is already approved")
		}
		s.logger.Error("Failed to approve invoice", "error", err, "invoiceID", invoiceID)
		return nil, apperrors.NewInternalError("failed to approve invoice")
	}

	now := models.GetCurrentTime()
	invoice.AdminApproval = true
	invoice.AdminApprovalDate = &now

	s.logger.Info("Invoice approved", "invoiceID", invoiceID, "orderID", invoice.OrderID)
	return invoice, nil
}

// MarkPaid settles an invoice, recording a completed payment for the
// frozen order total in the same transaction. At most one settlement ever
// commits; the loser of a concurrent pay gets AlreadyPaid.
func (s *InvoiceService) MarkPaid(ctx context.Context, principal *auth.Principal, invoiceID string) (*models.Invoice, *models.Payment, error) {
	if !principal.IsAdmin() {
		return nil, nil, apperrors.NewForbiddenError("only admins can record payments")
	}

	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, translateStoreError(err, "invoice not found")
	}

	if invoice.IsPaid {
		return nil, nil, apperrors.NewAlreadyPaidError("invoice is already paid")
	}

	payment := models.NewSettlementPayment(invoice, invoice.Amount)

	msg, err := models.NewInvoicePaidEvent(invoice, payment)
	if err != nil {
		return nil, nil, apperrors.NewInternalError("failed to encode invoice event")
	}

	if err := s.invoices.MarkPaid(ctx, invoice, payment, msg); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, nil, apperrors.NewAlreadyPaidError("invoice is already paid")
		}
		s.logger.Error("Failed to mark invoice paid", "error", err, "invoiceID", invoiceID)
		return nil, nil, apperrors.NewInternalError("failed to mark invoice paid")
	}

	invoice.IsPaid = true
	invoice.PaymentDate = &payment.CreatedAt

	metrics.InvoicesPaid.Inc()
	s.logger.Info("Invoice paid", "invoiceID", invoiceID, "paymentID", payment.ID, "amount", payment.Amount)
	return invoice, payment, nil
}

// GetPayment retrieves one payment, scoped like its invoice
func (s *InvoiceService) GetPayment(ctx context.Context, principal *auth.Principal, paymentID string) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, translateStoreError(err, "payment not found")
	}

	invoice, err := s.invoices.GetByID(ctx, payment.InvoiceID)
	if err != nil {
		return nil, translateStoreError(err, "invoice not found")
	}
	if err := s.checkVisibility(ctx, principal, invoice); err != nil {
		return nil, err
	}

	return payment, nil
}

// ListPayments retrieves the payments visible to the caller
func (s *InvoiceService) ListPayments(ctx context.Context, principal *auth.Principal, limit, offset int) ([]*models.Payment, error) {
	var payments []*models.Payment
	var err error

	if principal.IsAdmin() {
		payments, err = s.payments.GetAll(ctx, limit, offset)
	} else {
		payments, err = s.payments.GetForUser(ctx, principal.UserID, limit, offset)
	}

	if err != nil {
		s.logger.Error("Failed to list payments", "error", err, "userID", principal.UserID)
		return nil, apperrors.NewInternalError("failed to list payments")
	}

	return payments, nil
}

// checkVisibility enforces the read scope on a single invoice
func (s *InvoiceService) checkVisibility(ctx context.Context, principal *auth.Principal, invoice *models.Invoice) error {
	if principal.IsAdmin() {
		return nil
	}

	order, err := s.orders.GetByID(ctx, invoice.OrderID)
	if err != nil {
		return translateStoreError(err, "order not found")
	}
	if order.BuyerID == principal.UserID {
		return nil
	}

	listing, err := s.listings.GetByID(ctx, order.ListingID)
	if err != nil {
		return translateStoreError(err, "listing not found")
	}
	if listing.SellerID == principal.UserID {
		return nil
	}

	return apperrors.NewForbiddenError("not a party to this invoice")
}
