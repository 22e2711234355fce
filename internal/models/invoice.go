package models

import (
	"time"
)

// InvoiceDuePeriod is how long after approval an invoice falls due.
const InvoiceDuePeriod = 7 * 24 * time.Hour

// Invoice is the one-to-one billing record derived from an order. It may
// only be approved while its parent order is APPROVED, and may only be
// marked paid once.
type Invoice struct {
	ID                string     `db:"id" json:"id"`
	OrderID           string     `db:"order_id" json:"order_id"`
	InvoiceNumber     string     `db:"invoice_number" json:"invoice_number"`
	Amount            float64    `db:"amount" json:"amount"`
	DueDate           time.Time  `db:"due_date" json:"due_date"`
	IsPaid            bool       `db:"is_paid" json:"is_paid"`
	PaymentDate       *time.Time `db:"payment_date" json:"payment_date,omitempty"`
	AdminApproval     bool       `db:"admin_approval" json:"admin_approval"`
	AdminApprovalDate *time.Time `db:"admin_approval_date" json:"admin_approval_date,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

// NewInvoiceForOrder derives an unpaid, unapproved invoice from an order at
// approval time. Amount is the order's frozen total; the due date is seven
// days out.
func NewInvoiceForOrder(order *Order) *Invoice {
	now := GetCurrentTime()

	return &Invoice{
		ID:            GenerateID("inv"),
		OrderID:       order.ID,
		InvoiceNumber: GenerateInvoiceNumber(),
		Amount:        order.TotalPrice,
		DueDate:       now.Add(InvoiceDuePeriod),
		IsPaid:        false,
		AdminApproval: false,
		CreatedAt:     now,
	}
}
