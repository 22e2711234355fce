package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gasmarket/marketplace-api/internal/repository"
)

// getFailedOutboxMessagesHandler lists outbox messages that exhausted
// their delivery attempts. Admin only.
func (s *Server) getFailedOutboxMessagesHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principal(w, r)
	if !ok {
		return
	}
	if !principal.IsAdmin() {
		s.respondWithError(w, http.StatusForbidden, "admin access required")
		return
	}

	limit, offset := pagination(r)
	messages, err := s.outboxRepo.GetFailedMessages(r.Context(), limit, offset)
	if err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to list outbox messages")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: messages})
}

// retryOutboxMessageHandler requeues a failed outbox message. Admin only.
func (s *Server) retryOutboxMessageHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principal(w, r)
	if !ok {
		return
	}
	if !principal.IsAdmin() {
		s.respondWithError(w, http.StatusForbidden, "admin access required")
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	if err := s.outboxRepo.MarkAsPending(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondWithError(w, http.StatusNotFound, "outbox message not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to requeue outbox message")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]interface{}{
		"id":     id,
		"status": "pending",
	}})
}

// getCircuitBreakerHandler reports the publish breaker state. Admin only.
func (s *Server) getCircuitBreakerHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principal(w, r)
	if !ok {
		return
	}
	if !principal.IsAdmin() {
		s.respondWithError(w, http.StatusForbidden, "admin access required")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: s.publishBreaker.GetMetrics()})
}
