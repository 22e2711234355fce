package service

import (
	"context"
	"errors"
	"testing"

	"github.com/gasmarket/marketplace-api/internal/models"
	apperrors "github.com/gasmarket/marketplace-api/pkg/errors"
)

func ratingFixture(t *testing.T, orderStatus models.OrderStatus) (*memStore, *RatingService, *models.Order) {
	t.Helper()

	store := newMemStore()
	listing := models.NewGasListing("seller-1", models.BrandMeru, 12, 10, 25.0, "Kigali")
	store.addListing(listing)
	order := models.NewOrder(listing, "buyer-1", 2, "addr", "phone")
	order.Status = orderStatus
	store.addOrder(order)

	svc := NewRatingService(store.ratingStore(), store.orderStore(), store, testLogger())
	return store, svc, order
}

func TestRatingServiceRate(t *testing.T) {
	ctx := context.Background()

	t.Run("only the buyer rates", func(t *testing.T) {
		_, svc, order := ratingFixture(t, models.OrderStatusDelivered)
		_, err := svc.Rate(ctx, buyerPrincipal("buyer-2"), order.ID, RateOrderInput{Score: 4})
		if !errors.Is(err, apperrors.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("undelivered orders cannot be rated", func(t *testing.T) {
		for _, status := range []models.OrderStatus{
			models.OrderStatusPending,
			models.OrderStatusApproved,
			models.OrderStatusRejected,
			models.OrderStatusCancelled,
		} {
			_, svc, order := ratingFixture(t, status)
			_, err := svc.Rate(ctx, buyerPrincipal("buyer-1"), order.ID, RateOrderInput{Score: 4})
			if !errors.Is(err, apperrors.ErrInvalidTransition) {
				t.Errorf("status %s: err = %v, want ErrInvalidTransition", status, err)
			}
		}
	})

	t.Run("score out of range rejected", func(t *testing.T) {
		_, svc, order := ratingFixture(t, models.OrderStatusDelivered)
		for _, score := range []int{0, 6, -1} {
			_, err := svc.Rate(ctx, buyerPrincipal("buyer-1"), order.ID, RateOrderInput{Score: score})
			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("score %d: err = %v, want ErrInvalidInput", score, err)
			}
		}
	})

	t.Run("an order is rated once", func(t *testing.T) {
		_, svc, order := ratingFixture(t, models.OrderStatusDelivered)

		rating, err := svc.Rate(ctx, buyerPrincipal("buyer-1"), order.ID, RateOrderInput{Score: 5, Comment: "fast delivery"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rating.Score != 5 || rating.OrderID != order.ID {
			t.Errorf("rating = %+v", rating)
		}

		_, err = svc.Rate(ctx, buyerPrincipal("buyer-1"), order.ID, RateOrderInput{Score: 1})
		if !errors.Is(err, apperrors.ErrAlreadyRated) {
			t.Errorf("second rate err = %v, want ErrAlreadyRated", err)
		}
	})
}

func TestRatingServiceGetByOrder(t *testing.T) {
	ctx := context.Background()
	_, svc, order := ratingFixture(t, models.OrderStatusDelivered)

	if _, err := svc.Rate(ctx, buyerPrincipal("buyer-1"), order.ID, RateOrderInput{Score: 3}); err != nil {
		t.Fatalf("rate failed: %v", err)
	}

	t.Run("seller sees the rating", func(t *testing.T) {
		rating, err := svc.GetByOrder(ctx, sellerPrincipal("seller-1"), order.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rating.Score != 3 {
			t.Errorf("score = %d, want 3", rating.Score)
		}
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		_, err := svc.GetByOrder(ctx, buyerPrincipal("buyer-9"), order.ID)
		if !errors.Is(err, apperrors.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})
}
