package models

import (
	"strings"
	"testing"
	"time"
)

func TestNewInvoiceForOrder(t *testing.T) {
	listing := NewGasListing("seller-1", BrandJibu, 6, 20, 15.0, "Huye")
	order := NewOrder(listing, "buyer-1", 3, "addr", "phone")

	invoice := NewInvoiceForOrder(order)

	if invoice.OrderID != order.ID {
		t.Errorf("order id = %s, want %s", invoice.OrderID, order.ID)
	}
	if invoice.Amount != order.TotalPrice {
		t.Errorf("amount = %v, want order total %v", invoice.Amount, order.TotalPrice)
	}
	if invoice.IsPaid {
		t.Error("new invoice must be unpaid")
	}
	if invoice.AdminApproval {
		t.Error("new invoice must be unapproved")
	}
	if !strings.HasPrefix(invoice.InvoiceNumber, "INV-") {
		t.Errorf("invoice number %q lacks INV- prefix", invoice.InvoiceNumber)
	}

	due := invoice.CreatedAt.Add(7 * 24 * time.Hour)
	if !invoice.DueDate.Equal(due) {
		t.Errorf("due date = %v, want %v", invoice.DueDate, due)
	}
}

func TestNewSettlementPayment(t *testing.T) {
	listing := NewGasListing("seller-1", BrandTotal, 12, 5, 30.0, "Musanze")
	order := NewOrder(listing, "buyer-1", 2, "addr", "phone")
	invoice := NewInvoiceForOrder(order)

	payment := NewSettlementPayment(invoice, invoice.Amount)

	if payment.InvoiceID != invoice.ID {
		t.Errorf("invoice id = %s, want %s", payment.InvoiceID, invoice.ID)
	}
	if payment.Amount != 60.0 {
		t.Errorf("amount = %v, want 60.0", payment.Amount)
	}
	if payment.Status != PaymentStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", payment.Status)
	}
	if payment.PaymentMethod != PaymentMethodAdminSettlement {
		t.Errorf("method = %s, want %s", payment.PaymentMethod, PaymentMethodAdminSettlement)
	}
	if payment.TransactionID == "" {
		t.Error("transaction id must be set")
	}
}

func TestValidScore(t *testing.T) {
	for score, want := range map[int]bool{0: false, 1: true, 3: true, 5: true, 6: false, -1: false} {
		if got := ValidScore(score); got != want {
			t.Errorf("ValidScore(%d) = %v, want %v", score, got, want)
		}
	}
}
