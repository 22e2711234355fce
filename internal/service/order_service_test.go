package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gasmarket/marketplace-api/internal/models"
	apperrors "github.com/gasmarket/marketplace-api/pkg/errors"
)

func newOrderService(store *memStore) *OrderService {
	return NewOrderService(store.orderStore(), store, store.invoiceStore(), testLogger())
}

func TestOrderServiceCreate(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	listing := models.NewGasListing("seller-1", models.BrandMeru, 12, 10, 20.0, "Kigali")
	store.addListing(listing)
	svc := newOrderService(store)

	t.Run("seller cannot place orders", func(t *testing.T) {
		_, err := svc.Create(ctx, sellerPrincipal("seller-1"), CreateOrderInput{ListingID: listing.ID, Quantity: 1})
		if !errors.Is(err, apperrors.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, buyerPrincipal("buyer-1"), CreateOrderInput{ListingID: listing.ID, Quantity: 0})
		if !errors.Is(err, apperrors.ErrInvalidQuantity) {
			t.Errorf("err = %v, want ErrInvalidQuantity", err)
		}
	})

	t.Run("unknown listing rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, buyerPrincipal("buyer-1"), CreateOrderInput{ListingID: "lst-missing", Quantity: 1})
		if !errors.Is(err, apperrors.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("quantity above stock rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, buyerPrincipal("buyer-1"), CreateOrderInput{ListingID: listing.ID, Quantity: 11})
		if !errors.Is(err, apperrors.ErrOutOfStock) {
			t.Errorf("err = %v, want ErrOutOfStock", err)
		}
	})

	t.Run("success freezes price and leaves stock untouched", func(t *testing.T) {
		order, err := svc.Create(ctx, buyerPrincipal("buyer-1"), CreateOrderInput{ListingID: listing.ID, Quantity: 3})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if order.Status != models.OrderStatusPending {
			t.Errorf("status = %s, want PENDING", order.Status)
		}
		if order.TotalPrice != 60.0 {
			t.Errorf("total price = %v, want 60.0", order.TotalPrice)
		}
		if got := store.listingQuantity(listing.ID); got != 10 {
			t.Errorf("listing quantity = %d, want 10 (reserved only at approval)", got)
		}
		if store.eventCount() != 1 {
			t.Errorf("event count = %d, want 1", store.eventCount())
		}
	})
}

func TestOrderServiceApprove(t *testing.T) {
	ctx := context.Background()

	setup := func(quantity, orderQty int) (*memStore, *OrderService, *models.Order) {
		store := newMemStore()
		listing := models.NewGasListing("seller-1", models.BrandJibu, 6, quantity, 10.0, "Huye")
		store.addListing(listing)
		order := models.NewOrder(listing, "buyer-1", orderQty, "addr", "phone")
		store.addOrder(order)
		return store, newOrderService(store), order
	}

	t.Run("only admins approve", func(t *testing.T) {
		_, svc, order := setup(5, 2)
		_, err := svc.Approve(ctx, sellerPrincipal("seller-1"), order.ID)
		if !errors.Is(err, apperrors.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("approval reserves stock and creates invoice", func(t *testing.T) {
		store, svc, order := setup(5, 2)

		approved, err := svc.Approve(ctx, adminPrincipal(), order.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if approved.Status != models.OrderStatusApproved {
			t.Errorf("status = %s, want APPROVED", approved.Status)
		}
		if got := store.listingQuantity(order.ListingID); got != 3 {
			t.Errorf("listing quantity = %d, want 3", got)
		}

		invoice, err := store.invoiceStore().GetByOrderID(ctx, order.ID)
		if err != nil {
			t.Fatalf("invoice not created: %v", err)
		}
		if invoice.Amount != order.TotalPrice {
			t.Errorf("invoice amount = %v, want %v", invoice.Amount, order.TotalPrice)
		}
		if invoice.IsPaid || invoice.AdminApproval {
			t.Error("derived invoice must start unpaid and unapproved")
		}
	})

	t.Run("existing invoice is not duplicated", func(t *testing.T) {
		store, svc, order := setup(5, 2)
		existing := models.NewInvoiceForOrder(order)
		store.addInvoice(existing)

		if _, err := svc.Approve(ctx, adminPrincipal(), order.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		all, _ := store.invoiceStore().GetAll(ctx, 100, 0)
		if len(all) != 1 {
			t.Errorf("invoice count = %d, want 1", len(all))
		}
	})

	t.Run("approved order cannot be approved again", func(t *testing.T) {
		_, svc, order := setup(5, 2)
		if _, err := svc.Approve(ctx, adminPrincipal(), order.ID); err != nil {
			t.Fatalf("first approve failed: %v", err)
		}
		_, err := svc.Approve(ctx, adminPrincipal(), order.ID)
		if !errors.Is(err, apperrors.ErrInvalidTransition) {
			t.Errorf("err = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("insufficient stock fails with nothing committed", func(t *testing.T) {
		store, svc, order := setup(1, 2)

		_, err := svc.Approve(ctx, adminPrincipal(), order.ID)
		if !errors.Is(err, apperrors.ErrOutOfStock) {
			t.Fatalf("err = %v, want ErrOutOfStock", err)
		}

		stored, _ := store.orderStore().GetByID(ctx, order.ID)
		if stored.Status != models.OrderStatusPending {
			t.Errorf("status = %s, want PENDING after failed approval", stored.Status)
		}
		if got := store.listingQuantity(order.ListingID); got != 1 {
			t.Errorf("listing quantity = %d, want 1", got)
		}
		if _, err := store.invoiceStore().GetByOrderID(ctx, order.ID); err == nil {
			t.Error("no invoice may exist after failed approval")
		}
	})

	t.Run("racing approvals never oversell", func(t *testing.T) {
		store := newMemStore()
		listing := models.NewGasListing("seller-1", models.BrandTotal, 12, 5, 10.0, "Musanze")
		store.addListing(listing)
		svc := newOrderService(store)

		// Ten orders of 3 cylinders against 5 in stock: only one can win.
		orders := make([]*models.Order, 10)
		for i := range orders {
			orders[i] = models.NewOrder(listing, "buyer-1", 3, "addr", "phone")
			store.addOrder(orders[i])
		}

		var wg sync.WaitGroup
		results := make(chan error, len(orders))
		for _, o := range orders {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := svc.Approve(ctx, adminPrincipal(), id)
				results <- err
			}(o.ID)
		}
		wg.Wait()
		close(results)

		var approved, outOfStock int
		for err := range results {
			switch {
			case err == nil:
				approved++
			case errors.Is(err, apperrors.ErrOutOfStock):
				outOfStock++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}

		if approved != 1 {
			t.Errorf("approved = %d, want exactly 1", approved)
		}
		if outOfStock != 9 {
			t.Errorf("out of stock = %d, want 9", outOfStock)
		}
		if got := store.listingQuantity(listing.ID); got != 2 {
			t.Errorf("listing quantity = %d, want 2", got)
		}
	})
}

func TestOrderServiceCancel(t *testing.T) {
	ctx := context.Background()

	setup := func() (*memStore, *OrderService, *models.Order) {
		store := newMemStore()
		listing := models.NewGasListing("seller-1", models.BrandMeru, 12, 10, 20.0, "Kigali")
		store.addListing(listing)
		order := models.NewOrder(listing, "buyer-1", 4, "addr", "phone")
		store.addOrder(order)
		return store, newOrderService(store), order
	}

	t.Run("only the buyer cancels", func(t *testing.T) {
		_, svc, order := setup()
		_, err := svc.Cancel(ctx, buyerPrincipal("buyer-2"), order.ID)
		if !errors.Is(err, apperrors.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("cancel pending leaves stock untouched", func(t *testing.T) {
		store, svc, order := setup()

		cancelled, err := svc.Cancel(ctx, buyerPrincipal("buyer-1"), order.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cancelled.Status != models.OrderStatusCancelled {
			t.Errorf("status = %s, want CANCELLED", cancelled.Status)
		}
		if got := store.listingQuantity(order.ListingID); got != 10 {
			t.Errorf("listing quantity = %d, want 10", got)
		}
	})

	t.Run("cancel approved releases reserved stock", func(t *testing.T) {
		store, svc, order := setup()

		if _, err := svc.Approve(ctx, adminPrincipal(), order.ID); err != nil {
			t.Fatalf("approve failed: %v", err)
		}
		if got := store.listingQuantity(order.ListingID); got != 6 {
			t.Fatalf("listing quantity = %d after approval, want 6", got)
		}

		if _, err := svc.Cancel(ctx, buyerPrincipal("buyer-1"), order.ID); err != nil {
			t.Fatalf("cancel failed: %v", err)
		}
		if got := store.listingQuantity(order.ListingID); got != 10 {
			t.Errorf("listing quantity = %d after cancel, want 10", got)
		}
	})

	t.Run("terminal orders cannot be cancelled", func(t *testing.T) {
		store, svc, order := setup()
		store.mu.Lock()
		store.orders[order.ID].Status = models.OrderStatusDelivered
		store.mu.Unlock()

		_, err := svc.Cancel(ctx, buyerPrincipal("buyer-1"), order.ID)
		if !errors.Is(err, apperrors.ErrInvalidTransition) {
			t.Errorf("err = %v, want ErrInvalidTransition", err)
		}
	})
}

func TestOrderServiceRejectAndDeliver(t *testing.T) {
	ctx := context.Background()

	setup := func() (*memStore, *OrderService, *models.Order) {
		store := newMemStore()
		listing := models.NewGasListing("seller-1", models.BrandJibu, 6, 10, 15.0, "Huye")
		store.addListing(listing)
		order := models.NewOrder(listing, "buyer-1", 2, "addr", "phone")
		store.addOrder(order)
		return store, newOrderService(store), order
	}

	t.Run("reject keeps stock", func(t *testing.T) {
		store, svc, order := setup()

		rejected, err := svc.Reject(ctx, adminPrincipal(), order.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rejected.Status != models.OrderStatusRejected {
			t.Errorf("status = %s, want REJECTED", rejected.Status)
		}
		if got := store.listingQuantity(order.ListingID); got != 10 {
			t.Errorf("listing quantity = %d, want 10", got)
		}
	})

	t.Run("pending orders cannot be delivered", func(t *testing.T) {
		_, svc, order := setup()
		_, err := svc.MarkDelivered(ctx, sellerPrincipal("seller-1"), order.ID)
		if !errors.Is(err, apperrors.ErrInvalidTransition) {
			t.Errorf("err = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("another seller cannot deliver", func(t *testing.T) {
		_, svc, order := setup()
		_, err := svc.MarkDelivered(ctx, sellerPrincipal("seller-2"), order.ID)
		if !errors.Is(err, apperrors.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("listing seller delivers an approved order", func(t *testing.T) {
		_, svc, order := setup()
		if _, err := svc.Approve(ctx, adminPrincipal(), order.ID); err != nil {
			t.Fatalf("approve failed: %v", err)
		}

		delivered, err := svc.MarkDelivered(ctx, sellerPrincipal("seller-1"), order.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if delivered.Status != models.OrderStatusDelivered {
			t.Errorf("status = %s, want DELIVERED", delivered.Status)
		}
	})
}
