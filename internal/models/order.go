package models

import (
	"time"
)

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusApproved  OrderStatus = "APPROVED"
	OrderStatusRejected  OrderStatus = "REJECTED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// validNext encodes the order state machine. REJECTED, DELIVERED and
// CANCELLED are terminal.
var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:   {OrderStatusApproved: true, OrderStatusRejected: true, OrderStatusCancelled: true},
	OrderStatusApproved:  {OrderStatusDelivered: true, OrderStatusCancelled: true},
	OrderStatusRejected:  {},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// CanTransition reports whether an order may move from one status to another
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// Order is one buyer's request against one listing. TotalPrice is computed
// once at creation from the listing's unit price and never recomputed.
type Order struct {
	ID              string      `db:"id" json:"id"`
	ListingID       string      `db:"listing_id" json:"listing_id"`
	BuyerID         string      `db:"buyer_id" json:"buyer_id"`
	Quantity        int         `db:"quantity" json:"quantity"`
	TotalPrice      float64     `db:"total_price" json:"total_price"`
	Status          OrderStatus `db:"status" json:"status"`
	DeliveryAddress string      `db:"delivery_address" json:"delivery_address"`
	ContactPhone    string      `db:"contact_phone" json:"contact_phone"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// NewOrder creates a pending order against the given listing, freezing the
// total price at the listing's current unit price.
func NewOrder(listing *GasListing, buyerID string, quantity int, deliveryAddress, contactPhone string) *Order {
	now := GetCurrentTime()

	return &Order{
		ID:              GenerateID("ord"),
		ListingID:       listing.ID,
		BuyerID:         buyerID,
		Quantity:        quantity,
		TotalPrice:      listing.UnitPrice * float64(quantity),
		Status:          OrderStatusPending,
		DeliveryAddress: deliveryAddress,
		ContactPhone:    contactPhone,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
