package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gasmarket/marketplace-api/internal/models"
	apperrors "github.com/gasmarket/marketplace-api/pkg/errors"
)

func newInvoiceService(store *memStore) *InvoiceService {
	return NewInvoiceService(store.invoiceStore(), store.paymentStore(), store.orderStore(), store, testLogger())
}

func invoiceFixture(t *testing.T, orderStatus models.OrderStatus) (*memStore, *InvoiceService, *models.Invoice) {
	t.Helper()

	store := newMemStore()
	listing := models.NewGasListing("seller-1", models.BrandMeru, 12, 10, 25.0, "Kigali")
	store.addListing(listing)
	order := models.NewOrder(listing, "buyer-1", 2, "addr", "phone")
	order.Status = orderStatus
	store.addOrder(order)
	invoice := models.NewInvoiceForOrder(order)
	store.addInvoice(invoice)

	return store, newInvoiceService(store), invoice
}

func TestInvoiceServiceApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("only admins approve", func(t *testing.T) {
		_, svc, invoice := invoiceFixture(t, models.OrderStatusApproved)
		_, err := svc.Approve(ctx, sellerPrincipal("seller-1"), invoice.ID)
		if !errors.Is(err, apperrors.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("parent order must be approved", func(t *testing.T) {
		_, svc, invoice := invoiceFixture(t, models.OrderStatusPending)
		_, err := svc.Approve(ctx, adminPrincipal(), invoice.ID)
		if !errors.Is(err, apperrors.ErrInvalidTransition) {
			t.Errorf("err = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("approval is recorded once", func(t *testing.T) {
		_, svc, invoice := invoiceFixture(t, models.OrderStatusApproved)

		approved, err := svc.Approve(ctx, adminPrincipal(), invoice.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !approved.AdminApproval || approved.AdminApprovalDate == nil {
			t.Error("approval flag and date must be set")
		}

		_, err = svc.Approve(ctx, adminPrincipal(), invoice.ID)
		if !errors.Is(err, apperrors.ErrAlreadyApproved) {
			t.Errorf("second approve err = %v, want ErrAlreadyApproved", err)
		}
	})
}

func TestInvoiceServiceMarkPaid(t *testing.T) {
	ctx := context.Background()

	t.Run("only admins record payments", func(t *testing.T) {
		_, svc, invoice := invoiceFixture(t, models.OrderStatusApproved)
		_, _, err := svc.MarkPaid(ctx, buyerPrincipal("buyer-1"), invoice.ID)
		if !errors.Is(err, apperrors.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("settlement records one completed payment", func(t *testing.T) {
		store, svc, invoice := invoiceFixture(t, models.OrderStatusApproved)

		paid, payment, err := svc.MarkPaid(ctx, adminPrincipal(), invoice.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !paid.IsPaid || paid.PaymentDate == nil {
			t.Error("paid flag and date must be set")
		}
		if payment.Amount != invoice.Amount {
			t.Errorf("payment amount = %v, want %v", payment.Amount, invoice.Amount)
		}
		if payment.Status != models.PaymentStatusCompleted {
			t.Errorf("payment status = %s, want COMPLETED", payment.Status)
		}

		_, _, err = svc.MarkPaid(ctx, adminPrincipal(), invoice.ID)
		if !errors.Is(err, apperrors.ErrAlreadyPaid) {
			t.Errorf("second pay err = %v, want ErrAlreadyPaid", err)
		}

		payments, _ := store.paymentStore().GetAll(ctx, 100, 0)
		if len(payments) != 1 {
			t.Errorf("payment count = %d, want 1", len(payments))
		}
	})

	t.Run("concurrent settlements commit exactly once", func(t *testing.T) {
		store, svc, invoice := invoiceFixture(t, models.OrderStatusApproved)

		var wg sync.WaitGroup
		results := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := svc.MarkPaid(ctx, adminPrincipal(), invoice.ID)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var succeeded int
		for err := range results {
			if err == nil {
				succeeded++
			} else if !errors.Is(err, apperrors.ErrAlreadyPaid) {
				t.Errorf("unexpected error: %v", err)
			}
		}
		if succeeded != 1 {
			t.Errorf("settlements = %d, want exactly 1", succeeded)
		}

		payments, _ := store.paymentStore().GetAll(ctx, 100, 0)
		if len(payments) != 1 {
			t.Errorf("payment count = %d, want 1", len(payments))
		}
	})
}

func TestInvoiceServiceCreateForOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("pending orders cannot be invoiced", func(t *testing.T) {
		store := newMemStore()
		listing := models.NewGasListing("seller-1", models.BrandJibu, 6, 10, 15.0, "Huye")
		store.addListing(listing)
		order := models.NewOrder(listing, "buyer-1", 2, "addr", "phone")
		store.addOrder(order)
		svc := newInvoiceService(store)

		_, err := svc.CreateForOrder(ctx, sellerPrincipal("seller-1"), order.ID)
		if !errors.Is(err, apperrors.ErrInvalidTransition) {
			t.Errorf("err = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("idempotent for an already invoiced order", func(t *testing.T) {
		store, svc, invoice := invoiceFixture(t, models.OrderStatusApproved)

		got, err := svc.CreateForOrder(ctx, sellerPrincipal("seller-1"), invoice.OrderID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.ID != invoice.ID {
			t.Errorf("invoice id = %s, want existing %s", got.ID, invoice.ID)
		}

		all, _ := store.invoiceStore().GetAll(ctx, 100, 0)
		if len(all) != 1 {
			t.Errorf("invoice count = %d, want 1", len(all))
		}
	})

	t.Run("another seller is forbidden", func(t *testing.T) {
		_, svc, invoice := invoiceFixture(t, models.OrderStatusApproved)
		_, err := svc.CreateForOrder(ctx, sellerPrincipal("seller-2"), invoice.OrderID)
		if !errors.Is(err, apperrors.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})
}

func TestInvoiceServiceVisibility(t *testing.T) {
	ctx := context.Background()
	_, svc, invoice := invoiceFixture(t, models.OrderStatusApproved)

	t.Run("buyer sees the invoice", func(t *testing.T) {
		if _, err := svc.Get(ctx, buyerPrincipal("buyer-1"), invoice.ID); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("seller sees the invoice", func(t *testing.T) {
		if _, err := svc.Get(ctx, sellerPrincipal("seller-1"), invoice.ID); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		_, err := svc.Get(ctx, buyerPrincipal("buyer-9"), invoice.ID)
		if !errors.Is(err, apperrors.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})
}
