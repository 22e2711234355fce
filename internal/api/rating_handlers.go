package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gasmarket/marketplace-api/internal/service"
)

// rateOrderHandler records the buyer's rating of a delivered order
func (s *Server) rateOrderHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principal(w, r)
	if !ok {
		return
	}

	var input service.RateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	rating, err := s.ratingService.Rate(r.Context(), principal, mux.Vars(r)["id"], input)
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: rating})
}

// getOrderRatingHandler returns the rating on an order
func (s *Server) getOrderRatingHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principal(w, r)
	if !ok {
		return
	}

	rating, err := s.ratingService.GetByOrder(r.Context(), principal, mux.Vars(r)["id"])
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: rating})
}

// listRatingsHandler returns the ratings visible to the caller
func (s *Server) listRatingsHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principal(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	ratings, err := s.ratingService.List(r.Context(), principal, limit, offset)
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: ratings})
}
