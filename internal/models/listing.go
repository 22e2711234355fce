package models

import (
	"time"
)

// GasBrand is the set of cylinder brands sold on the marketplace
type GasBrand string

const (
	BrandJibu  GasBrand = "JIBU"
	BrandMeru  GasBrand = "MERU"
	BrandTotal GasBrand = "TOTAL"
	BrandOther GasBrand = "OTHER"
)

// Valid reports whether the brand is one of the known brands
func (b GasBrand) Valid() bool {
	switch b {
	case BrandJibu, BrandMeru, BrandTotal, BrandOther:
		return true
	default:
		return false
	}
}

// GasListing is a seller's published batch of cylinders of one brand and
// weight at one price and location. Quantity never goes below zero; it is
// only moved by the inventory reservation queries or the owning seller's
// edits.
type GasListing struct {
	ID        string    `db:"id" json:"id"`
	Brand     GasBrand  `db:"brand" json:"brand"`
	WeightKg  float64   `db:"weight_kg" json:"weight_kg"`
	Quantity  int       `db:"quantity" json:"quantity"`
	UnitPrice float64   `db:"unit_price" json:"unit_price"`
	SellerID  string    `db:"seller_id" json:"seller_id"`
	Location  string    `db:"location" json:"location"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NewGasListing creates a new listing owned by the given seller
func NewGasListing(sellerID string, brand GasBrand, weightKg float64, quantity int, unitPrice float64, location string) *GasListing {
	now := GetCurrentTime()

	return &GasListing{
		ID:        GenerateID("lst"),
		Brand:     brand,
		WeightKg:  weightKg,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		SellerID:  sellerID,
		Location:  location,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
