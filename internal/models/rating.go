package models

import (
	"time"
)

// Rating is one buyer's feedback on a delivered order, at most one per order
type Rating struct {
	ID        string    `db:"id" json:"id"`
	OrderID   string    `db:"order_id" json:"order_id"`
	Score     int       `db:"score" json:"score"`
	Comment   string    `db:"comment" json:"comment,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ValidScore reports whether a rating score is in the allowed 1..5 range
func ValidScore(score int) bool {
	return score >= 1 && score <= 5
}

// NewRating creates a rating for an order
func NewRating(orderID string, score int, comment string) *Rating {
	return &Rating{
		ID:        GenerateID("rat"),
		OrderID:   orderID,
		Score:     score,
		Comment:   comment,
		CreatedAt: GetCurrentTime(),
	}
}
