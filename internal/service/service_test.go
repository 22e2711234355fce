package service

import (
	"context"
	"sync"

	"github.com/gasmarket/marketplace-api/internal/auth"
	"github.com/gasmarket/marketplace-api/internal/models"
	"github.com/gasmarket/marketplace-api/internal/repository"
	"github.com/gasmarket/marketplace-api/pkg/logger"
)

// memStore is an in-memory implementation of the store interfaces with
// the same race semantics as the SQL repositories: status changes are
// compare-and-set and stock decrements are conditional, all under one
// lock so concurrent service calls contend the way transactions do.
type memStore struct {
	mu       sync.Mutex
	listings map[string]*models.GasListing
	orders   map[string]*models.Order
	invoices map[string]*models.Invoice
	payments map[string]*models.Payment
	ratings  map[string]*models.Rating
	events   []*models.OutboxMessage
}

func newMemStore() *memStore {
	return &memStore{
		listings: make(map[string]*models.GasListing),
		orders:   make(map[string]*models.Order),
		invoices: make(map[string]*models.Invoice),
		payments: make(map[string]*models.Payment),
		ratings:  make(map[string]*models.Rating),
	}
}

func copyListing(l *models.GasListing) *models.GasListing { c := *l; return &c }
func copyOrder(o *models.Order) *models.Order             { c := *o; return &c }
func copyInvoice(i *models.Invoice) *models.Invoice       { c := *i; return &c }
func copyPayment(p *models.Payment) *models.Payment       { c := *p; return &c }
func copyRating(r *models.Rating) *models.Rating          { c := *r; return &c }

func (s *memStore) addListing(l *models.GasListing) { s.listings[l.ID] = copyListing(l) }
func (s *memStore) addOrder(o *models.Order)        { s.orders[o.ID] = copyOrder(o) }
func (s *memStore) addInvoice(i *models.Invoice)    { s.invoices[i.ID] = copyInvoice(i) }

func (s *memStore) listingQuantity(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listings[id].Quantity
}

func (s *memStore) eventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// ListingStore

func (s *memStore) Create(ctx context.Context, l *models.GasListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.ID] = copyListing(l)
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (*models.GasListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyListing(l), nil
}

func (s *memStore) Update(ctx context.Context, l *models.GasListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[l.ID]; !ok {
		return repository.ErrNotFound
	}
	s.listings[l.ID] = copyListing(l)
	return nil
}

func (s *memStore) List(ctx context.Context, filter repository.ListingFilter) ([]*models.GasListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.GasListing
	for _, l := range s.listings {
		if filter.SellerID != "" && l.SellerID != filter.SellerID {
			continue
		}
		if filter.InStockOnly && l.Quantity == 0 {
			continue
		}
		out = append(out, copyListing(l))
	}
	return out, nil
}

func (s *memStore) Invalidate(ctx context.Context, id string) {}

// OrderStore

type orderStore struct{ *memStore }

func (s *memStore) orderStore() *orderStore { return &orderStore{s} }

func (s *orderStore) Create(ctx context.Context, order *models.Order, msg *models.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = copyOrder(order)
	s.events = append(s.events, msg)
	return nil
}

func (s *orderStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyOrder(o), nil
}

func (s *orderStore) GetAll(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Order
	for _, o := range s.orders {
		out = append(out, copyOrder(o))
	}
	return out, nil
}

func (s *orderStore) GetByBuyerID(ctx context.Context, buyerID string, limit, offset int) ([]*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Order
	for _, o := range s.orders {
		if o.BuyerID == buyerID {
			out = append(out, copyOrder(o))
		}
	}
	return out, nil
}

func (s *orderStore) GetBySellerID(ctx context.Context, sellerID string, limit, offset int) ([]*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Order
	for _, o := range s.orders {
		if l, ok := s.listings[o.ListingID]; ok && l.SellerID == sellerID {
			out = append(out, copyOrder(o))
		}
	}
	return out, nil
}

func (s *orderStore) Approve(ctx context.Context, order *models.Order, invoice *models.Invoice, msg *models.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[order.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status != models.OrderStatusPending {
		return repository.ErrStatusConflict
	}

	listing, ok := s.listings[order.ListingID]
	if !ok {
		return repository.ErrNotFound
	}
	if listing.Quantity < order.Quantity {
		return repository.ErrInsufficientStock
	}

	listing.Quantity -= order.Quantity
	stored.Status = models.OrderStatusApproved
	if invoice != nil {
		s.invoices[invoice.ID] = copyInvoice(invoice)
	}
	s.events = append(s.events, msg)
	return nil
}

func (s *orderStore) Cancel(ctx context.Context, order *models.Order, from models.OrderStatus, msg *models.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[order.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status != from {
		return repository.ErrStatusConflict
	}

	stored.Status = models.OrderStatusCancelled
	if from == models.OrderStatusApproved {
		s.listings[order.ListingID].Quantity += order.Quantity
	}
	s.events = append(s.events, msg)
	return nil
}

func (s *orderStore) UpdateStatus(ctx context.Context, orderID string, from, to models.OrderStatus, msg *models.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status != from {
		return repository.ErrStatusConflict
	}

	stored.Status = to
	s.events = append(s.events, msg)
	return nil
}

// InvoiceStore

type invoiceStore struct{ *memStore }

func (s *memStore) invoiceStore() *invoiceStore { return &invoiceStore{s} }

func (s *invoiceStore) Create(ctx context.Context, invoice *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.invoices {
		if i.OrderID == invoice.OrderID {
			return repository.ErrDuplicate
		}
	}
	s.invoices[invoice.ID] = copyInvoice(invoice)
	return nil
}

func (s *invoiceStore) GetByID(ctx context.Context, id string) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.invoices[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyInvoice(i), nil
}

func (s *invoiceStore) GetByOrderID(ctx context.Context, orderID string) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.invoices {
		if i.OrderID == orderID {
			return copyInvoice(i), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *invoiceStore) GetAll(ctx context.Context, limit, offset int) ([]*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Invoice
	for _, i := range s.invoices {
		out = append(out, copyInvoice(i))
	}
	return out, nil
}

func (s *invoiceStore) GetForUser(ctx context.Context, userID string, limit, offset int) ([]*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Invoice
	for _, i := range s.invoices {
		o, ok := s.orders[i.OrderID]
		if !ok {
			continue
		}
		l := s.listings[o.ListingID]
		if o.BuyerID == userID || (l != nil && l.SellerID == userID) {
			out = append(out, copyInvoice(i))
		}
	}
	return out, nil
}

func (s *invoiceStore) MarkApproved(ctx context.Context, invoiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.invoices[invoiceID]
	if !ok {
		return repository.ErrNotFound
	}
	if i.AdminApproval {
		return repository.ErrStatusConflict
	}
	now := models.GetCurrentTime()
	i.AdminApproval = true
	i.AdminApprovalDate = &now
	return nil
}

func (s *invoiceStore) MarkPaid(ctx context.Context, invoice *models.Invoice, payment *models.Payment, msg *models.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.invoices[invoice.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.IsPaid {
		return repository.ErrStatusConflict
	}
	stored.IsPaid = true
	stored.PaymentDate = &payment.CreatedAt
	s.payments[payment.ID] = copyPayment(payment)
	s.events = append(s.events, msg)
	return nil
}

// PaymentStore

type paymentStore struct{ *memStore }

func (s *memStore) paymentStore() *paymentStore { return &paymentStore{s} }

func (s *paymentStore) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyPayment(p), nil
}

func (s *paymentStore) GetByInvoiceID(ctx context.Context, invoiceID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.InvoiceID == invoiceID {
			return copyPayment(p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *paymentStore) GetAll(ctx context.Context, limit, offset int) ([]*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Payment
	for _, p := range s.payments {
		out = append(out, copyPayment(p))
	}
	return out, nil
}

func (s *paymentStore) GetForUser(ctx context.Context, userID string, limit, offset int) ([]*models.Payment, error) {
	return s.GetAll(ctx, limit, offset)
}

// RatingStore

type ratingStore struct{ *memStore }

func (s *memStore) ratingStore() *ratingStore { return &ratingStore{s} }

func (s *ratingStore) Create(ctx context.Context, rating *models.Rating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ratings[rating.OrderID]; exists {
		return repository.ErrDuplicate
	}
	s.ratings[rating.OrderID] = copyRating(rating)
	return nil
}

func (s *ratingStore) GetByOrderID(ctx context.Context, orderID string) (*models.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.ratings[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyRating(r), nil
}

func (s *ratingStore) GetAll(ctx context.Context, limit, offset int) ([]*models.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Rating
	for _, r := range s.ratings {
		out = append(out, copyRating(r))
	}
	return out, nil
}

func (s *ratingStore) GetForUser(ctx context.Context, userID string, limit, offset int) ([]*models.Rating, error) {
	return s.GetAll(ctx, limit, offset)
}

// Test principals

func buyerPrincipal(id string) *auth.Principal {
	return &auth.Principal{UserID: id, Username: id, Role: models.RoleBuyer}
}

func sellerPrincipal(id string) *auth.Principal {
	return &auth.Principal{UserID: id, Username: id, Role: models.RoleSeller}
}

func adminPrincipal() *auth.Principal {
	return &auth.Principal{UserID: "admin-1", Username: "admin", Role: models.RoleAdmin}
}

func testLogger() logger.Logger {
	return logger.NewLogger("error")
}
