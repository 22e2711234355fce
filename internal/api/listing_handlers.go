package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gasmarket/marketplace-api/internal/repository"
	"github.com/gasmarket/marketplace-api/internal/service"
)

// listListingsHandler searches the catalog. Out-of-stock listings are
// hidden unless include_out_of_stock is set.
func (s *Server) listListingsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pagination(r)

	filter := repository.ListingFilter{
		Brand:       q.Get("brand"),
		Location:    q.Get("location"),
		SellerID:    q.Get("seller_id"),
		OrderBy:     q.Get("order_by"),
		InStockOnly: q.Get("include_out_of_stock") == "",
		Limit:       limit,
		Offset:      offset,
	}

	if v, err := strconv.ParseFloat(q.Get("weight_kg"), 64); err == nil {
		filter.WeightKg = v
	}
	if v, err := strconv.ParseFloat(q.Get("min_price"), 64); err == nil {
		filter.MinPrice = v
	}
	if v, err := strconv.ParseFloat(q.Get("max_price"), 64); err == nil {
		filter.MaxPrice = v
	}

	listings, err := s.listingService.List(r.Context(), filter)
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: listings})
}

// createListingHandler publishes a new listing for the calling seller
func (s *Server) createListingHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principal(w, r)
	if !ok {
		return
	}

	var input service.CreateListingInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	listing, err := s.listingService.Create(r.Context(), principal, input)
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: listing})
}

// getMyListingsHandler returns the calling seller's own listings
func (s *Server) getMyListingsHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principal(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	listings, err := s.listingService.Mine(r.Context(), principal, limit, offset)
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: listings})
}

// getListingHandler returns one listing
func (s *Server) getListingHandler(w http.ResponseWriter, r *http.Request) {
	listing, err := s.listingService.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: listing})
}

// updateListingHandler edits a listing owned by the calling seller
func (s *Server) updateListingHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principal(w, r)
	if !ok {
		return
	}

	var input service.UpdateListingInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	listing, err := s.listingService.Update(r.Context(), principal, mux.Vars(r)["id"], input)
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: listing})
}
