package api

import (
	"encoding/json"
	"net/http"

	"github.com/gasmarket/marketplace-api/internal/service"
)

// getMyProfileHandler returns the caller's own profile
func (s *Server) getMyProfileHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principal(w, r)
	if !ok {
		return
	}

	profile, err := s.profileService.Me(r.Context(), principal)
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: profile})
}

// createProfileHandler provisions a profile for a gateway user. Admin only.
func (s *Server) createProfileHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principal(w, r)
	if !ok {
		return
	}

	var input service.CreateProfileInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	profile, err := s.profileService.Create(r.Context(), principal, input)
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: profile})
}
