package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrNotFound, http.StatusNotFound},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"no profile", ErrNoProfile, http.StatusForbidden},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"invalid quantity", ErrInvalidQuantity, http.StatusBadRequest},
		{"invalid transition", ErrInvalidTransition, http.StatusConflict},
		{"out of stock", ErrOutOfStock, http.StatusConflict},
		{"already approved", ErrAlreadyApproved, http.StatusConflict},
		{"already paid", ErrAlreadyPaid, http.StatusConflict},
		{"already rated", ErrAlreadyRated, http.StatusConflict},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped sentinel", fmt.Errorf("order ord-1: %w", ErrNotFound), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.want {
				t.Errorf("StatusCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := NewOutOfStockError("listing lst-1 has 2 left")

	if !errors.Is(err, ErrOutOfStock) {
		t.Error("AppError must unwrap to its sentinel kind")
	}
	if err.Error() != "listing lst-1 has 2 left" {
		t.Errorf("message = %q", err.Error())
	}
	if StatusCode(err) != http.StatusConflict {
		t.Errorf("status = %d, want 409", StatusCode(err))
	}
}

func TestAppErrorDefaultMessage(t *testing.T) {
	err := NewAppError(ErrConflict, "", http.StatusConflict, false)

	if err.Error() != ErrConflict.Error() {
		t.Errorf("message = %q, want sentinel text", err.Error())
	}
}
