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

// OrderStore is the order persistence the service needs. The composite
// transitions (Approve, Cancel) own their transactions: status change,
// inventory effect, derived invoice and outbox event commit together.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order, msg *models.OutboxMessage) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetAll(ctx context.Context, limit, offset int) ([]*models.Order, error)
	GetByBuyerID(ctx context.Context, buyerID string, limit, offset int) ([]*models.Order, error)
	GetBySellerID(ctx context.Context, sellerID string, limit, offset int) ([]*models.Order, error)
	Approve(ctx context.Context, order *models.Order, invoice *models.Invoice, msg *models.OutboxMessage) error
	Cancel(ctx context.Context, order *models.Order, from models.OrderStatus, msg *models.OutboxMessage) error
	UpdateStatus(ctx context.Context, orderID string, from, to models.OrderStatus, msg *models.OutboxMessage) error
}

// InvoiceLookup is the invoice read the approve path needs
type InvoiceLookup interface {
	GetByOrderID(ctx context.Context, orderID string) (*models.Invoice, error)
}

// CreateOrderInput holds the buyer-supplied fields of a new order
type CreateOrderInput struct {
	ListingID       string `json:"listing_id"`
	Quantity        int    `json:"quantity"`
	DeliveryAddress string `json:"delivery_address"`
	ContactPhone    string `json:"contact_phone"`
}

// OrderService implements the order lifecycle
type OrderService struct {
	orders   OrderStore
	listings ListingStore
	invoices InvoiceLookup
	logger   logger.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(orders OrderStore, listings ListingStore, invoices InvoiceLookup, logger logger.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		listings: listings,
		invoices: invoices,
		logger:   logger,
	}
}

// Create places a pending order against a listing. The stock check here is
// advisory; the binding check is the conditional decrement at approval.
func (s *OrderService) Create(ctx context.Context, principal *auth.Principal, input CreateOrderInput) (*models.Order, error) {
	if !principal.IsBuyer() {
		return nil, apperrors.NewForbiddenError("only buyers can place orders")
	}
	if input.Quantity <= 0 {
		return nil, apperrors.NewInvalidQuantityError("quantity must be positive")
	}

	listing, err := s.listings.GetByID(ctx, input.ListingID)
	if err != nil {
		return nil, translateStoreError(err, "listing not found")
	}

	if input.Quantity > listing.Quantity {
		return nil, apperrors.NewOutOfStockError("not enough cylinders in stock")
	}

	order := models.NewOrder(listing, principal.UserID, input.Quantity, input.DeliveryAddress, input.ContactPhone)

	msg, err := models.NewOrderCreatedEvent(order)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode order event")
	}

	if err := s.orders.Create(ctx, order, msg); err != nil {
		s.logger.Error("Failed to create order", "error", err, "buyerID", principal.UserID)
		return nil, apperrors.NewInternalError("failed to create order")
	}

	metrics.OrdersCreated.Inc()
	s.logger.Info("Order created", "orderID", order.ID, "listingID", listing.ID, "buyerID", principal.UserID)
	return order, nil
}

// Get retrieves one order, visible to its buyer, the listing's seller and
// admins
func (s *OrderService) Get(ctx context.Context, principal *auth.Principal, orderID string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, translateStoreError(err, "order not found")
	}

	if err := s.checkVisibility(ctx, principal, order); err != nil {
		return nil, err
	}

	return order, nil
}

// List retrieves the orders visible to the caller: admins see all, buyers
// their own, sellers those placed against their listings
func (s *OrderService) List(ctx context.Context, principal *auth.Principal, limit, offset int) ([]*models.Order, error) {
	var orders []*models.Order
	var err error

	switch {
	case principal.IsAdmin():
		orders, err = s.orders.GetAll(ctx, limit, offset)
	case principal.IsSeller():
		orders, err = s.orders.GetBySellerID(ctx, principal.UserID, limit, offset)
	default:
		orders, err = s.orders.GetByBuyerID(ctx, principal.UserID, limit, offset)
	}

	if err != nil {
		s.logger.Error("Failed to list orders", "error", err, "userID", principal.UserID)
		return nil, apperrors.NewInternalError("failed to list orders")
	}

	return orders, nil
}

// Approve moves a pending order to APPROVED. In one transaction the stock
// is reserved and an invoice for the frozen total is created when the
// order has none yet. Losing the stock race surfaces as OutOfStock with
// nothing committed.
func (s *OrderService) Approve(ctx context.Context, principal *auth.Principal, orderID string) (*models.Order, error) {
	if !principal.IsAdmin() {
		return nil, apperrors.NewForbiddenError("only admins can approve orders")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, translateStoreError(err, "order not found")
	}

	if !models.CanTransition(order.Status, models.OrderStatusApproved) {
		return nil, apperrors.NewInvalidTransitionError("order cannot be approved from status " + string(order.Status))
	}

	var invoice *models.Invoice
	if _, err := s.invoices.GetByOrderID(ctx, orderID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInternalError("failed to check for existing invoice")
		}
		invoice = models.NewInvoiceForOrder(order)
	}

	oldStatus := order.Status
	order.Status = models.OrderStatusApproved

	msg, err := models.NewOrderStatusChangedEvent(order, oldStatus)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode order event")
	}

	if err := s.orders.Approve(ctx, order, invoice, msg); err != nil {
		order.Status = oldStatus
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			return nil, apperrors.NewInvalidTransitionError("order left PENDING concurrently")
		case errors.Is(err, repository.ErrInsufficientStock):
			metrics.StockRejections.Inc()
			return nil, apperrors.NewOutOfStockError("not enough cylinders in stock")
		default:
			s.logger.Error("Failed to approve order", "error", err, "orderID", orderID)
			return nil, apperrors.NewInternalError("failed to approve order")
		}
	}

	s.listings.Invalidate(ctx, order.ListingID)
	metrics.OrdersApproved.Inc()
	s.logger.Info("Order approved", "orderID", order.ID, "listingID", order.ListingID)
	return order, nil
}

// Reject moves a pending order to REJECTED. No stock was reserved, so
// nothing is released.
func (s *OrderService) Reject(ctx context.Context, principal *auth.Principal, orderID string) (*models.Order, error) {
	if !principal.IsAdmin() {
		return nil, apperrors.NewForbiddenError("only admins can reject orders")
	}

	return s.transition(ctx, orderID, models.OrderStatusRejected)
}

// Cancel moves a buyer's own order to CANCELLED. Stock reserved at
// approval is released in the same transaction; a still-pending order
// never reserved any.
func (s *OrderService) Cancel(ctx context.Context, principal *auth.Principal, orderID string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, translateStoreError(err, "order not found")
	}

	if order.BuyerID != principal.UserID {
		return nil, apperrors.NewForbiddenError("only the buyer can cancel an order")
	}

	if !models.CanTransition(order.Status, models.OrderStatusCancelled) {
		return nil, apperrors.NewInvalidTransitionError("order cannot be cancelled from status " + string(order.Status))
	}

	oldStatus := order.Status
	order.Status = models.OrderStatusCancelled

	msg, err := models.NewOrderStatusChangedEvent(order, oldStatus)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode order event")
	}

	if err := s.orders.Cancel(ctx, order, oldStatus, msg); err != nil {
		order.Status = oldStatus
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, apperrors.NewInvalidTransitionError("order status changed concurrently")
		}
		s.logger.Error("Failed to cancel order", "error", err, "orderID", orderID)
		return nil, apperrors.NewInternalError("failed to cancel order")
	}

	if oldStatus == models.OrderStatusApproved {
		s.listings.Invalidate(ctx, order.ListingID)
	}

	s.logger.Info("Order cancelled", "orderID", order.ID, "fromStatus", string(oldStatus))
	return order, nil
}

// MarkDelivered moves an approved order to DELIVERED, opening the rating
// window. Allowed to the listing's seller and admins.
func (s *OrderService) MarkDelivered(ctx context.Context, principal *auth.Principal, orderID string) (*models.Order, error) {
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
			return nil, apperrors.NewForbiddenError("only the seller can mark an order delivered")
		}
	}

	if !models.CanTransition(order.Status, models.OrderStatusDelivered) {
		return nil, apperrors.NewInvalidTransitionError("order cannot be delivered from status " + string(order.Status))
	}

	return s.applyTransition(ctx, order, models.OrderStatusDelivered)
}

// transition performs an admin transition after re-reading the order and
// validating the move
func (s *OrderService) transition(ctx context.Context, orderID string, to models.OrderStatus) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, translateStoreError(err, "order not found")
	}

	if !models.CanTransition(order.Status, to) {
		return nil, apperrors.NewInvalidTransitionError("order cannot move from " + string(order.Status) + " to " + string(to))
	}

	return s.applyTransition(ctx, order, to)
}

func (s *OrderService) applyTransition(ctx context.Context, order *models.Order, to models.OrderStatus) (*models.Order, error) {
	oldStatus := order.Status
	order.Status = to

	msg, err := models.NewOrderStatusChangedEvent(order, oldStatus)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode order event")
	}

	if err := s.orders.UpdateStatus(ctx, order.ID, oldStatus, to, msg); err != nil {
		order.Status = oldStatus
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, apperrors.NewInvalidTransitionError("order status changed concurrently")
		}
		s.logger.Error("Failed to update order status", "error", err, "orderID", order.ID)
		return nil, apperrors.NewInternalError("failed to update order status")
	}

	s.logger.Info("Order status updated", "orderID", order.ID, "fromStatus", string(oldStatus), "toStatus", string(to))
	return order, nil
}

// checkVisibility enforces the read scope on a single order
func (s *OrderService) checkVisibility(ctx context.Context, principal *auth.Principal, order *models.Order) error {
	if principal.IsAdmin() || order.BuyerID == principal.UserID {
		return nil
	}

	listing, err := s.listings.GetByID(ctx, order.ListingID)
	if err != nil {
		return translateStoreError(err, "listing not found")
	}
	if listing.SellerID == principal.UserID {
		return nil
	}

	return apperrors.NewForbiddenError("not a party to this order")
}
