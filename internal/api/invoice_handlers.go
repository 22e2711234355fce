package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// listInvoicesHandler returns the invoices visible to the caller
func (s *Server) listInvoicesHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principal(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	invoices, err := s.invoiceService.List(r.Context(), principal, limit, offset)
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: invoices})
}

// getInvoiceHandler returns one invoice
func (s *Server) getInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principal(w, r)
	if !ok {
		return
	}

	invoice, err := s.invoiceService.Get(r.Context(), principal, mux.Vars(r)["id"])
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: invoice})
}

// getOrderInvoiceHandler returns the invoice derived from an order
func (s *Server) getOrderInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principal(w, r)
	if !ok {
		return
	}

	invoice, err := s.invoiceService.GetByOrder(r.Context(), principal, mux.Vars(r)["id"])
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: invoice})
}

// createOrderInvoiceHandler creates the invoice for an approved order
// missing one; idempotent
func (s *Server) createOrderInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principal(w, r)
	if !ok {
		return
	}

	invoice, err := s.invoiceService.CreateForOrder(r.Context(), principal, mux.Vars(r)["id"])
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: invoice})
}

// approveInvoiceHandler records admin approval of an invoice
func (s *Server) approveInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principal(w, r)
	if !ok {
		return
	}

	invoice, err := s.invoiceService.Approve(r.Context(), principal, mux.Vars(r)["id"])
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: invoice})
}

// markInvoicePaidHandler settles an invoice and records its payment
func (s *Server) markInvoicePaidHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principal(w, r)
	if !ok {
		return
	}

	invoice, payment, err := s.invoiceService.MarkPaid(r.Context(), principal, mux.Vars(r)["id"])
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]interface{}{
		"invoice": invoice,
		"payment": payment,
	}})
}

// listPaymentsHandler returns the payments visible to the caller
func (s *Server) listPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principal(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	payments, err := s.invoiceService.ListPayments(r.Context(), principal, limit, offset)
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: payments})
}

// getPaymentHandler returns one payment
func (s *Server) getPaymentHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.principal(w, r)
	if !ok {
		return
	}

	payment, err := s.invoiceService.GetPayment(r.Context(), principal, mux.Vars(r)["id"])
	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: payment})
}
