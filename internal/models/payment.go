package models

import (
	"time"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// PaymentMethodAdminSettlement marks settlements recorded by an admin
// when marking an invoice paid.
const PaymentMethodAdminSettlement = "ADMIN_SETTLEMENT"

// Payment is the immutable settlement record tied one-to-one to an invoice
type Payment struct {
	ID            string        `db:"id" json:"id"`
	InvoiceID     string        `db:"invoice_id" json:"invoice_id"`
	Amount        float64       `db:"amount" json:"amount"`
	Status        PaymentStatus `db:"status" json:"status"`
	TransactionID string        `db:"transaction_id" json:"transaction_id,omitempty"`
	PaymentMethod string        `db:"payment_method" json:"payment_method"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// NewSettlementPayment records the completed settlement of an invoice for
// the parent order's frozen total.
func NewSettlementPayment(invoice *Invoice, amount float64) *Payment {
	return &Payment{
		ID:            GenerateID("pay"),
		InvoiceID:     invoice.ID,
		Amount:        amount,
		Status:        PaymentStatusCompleted,
		TransactionID: GenerateID("txn"),
		PaymentMethod: PaymentMethodAdminSettlement,
		CreatedAt:     GetCurrentTime(),
	}
}
