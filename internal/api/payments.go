package api

import (
	"bytes"
	"errors"
	"net/http"

	"slotbook/internal/audit"
	"slotbook/internal/payments"
)

type amountRequest struct {
	Amount float64 `json:"amount"`
	Name   string  `json:"name,omitempty"`
}

func (s *Server) paymentsEnabled(w http.ResponseWriter) bool {
	if s.payments == nil {
		writeError(w, http.StatusServiceUnavailable, "payments are not configured")
		return false
	}
	return true
}

func (s *Server) paymentError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, payments.ErrInvalidAmount) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("payment provider error")
	writeError(w, http.StatusBadGateway, "payment provider error")
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if !s.paymentsEnabled(w) {
		return
	}
	var req amountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		writeError(w, http.StatusBadRequest, "origin header is required")
		return
	}

	sess, err := s.payments.CreateCheckoutSession(r.Context(), payments.CheckoutRequest{
		Amount: req.Amount,
		Name:   req.Name,
		Origin: origin,
	})
	if err != nil {
		s.paymentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleTapToPay(w http.ResponseWriter, r *http.Request) {
	if !s.paymentsEnabled(w) {
		return
	}
	var req amountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	intent, err := s.payments.CreateTapToPayIntent(r.Context(), req.Amount)
	if err != nil {
		s.paymentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func (s *Server) handleConnectionToken(w http.ResponseWriter, r *http.Request) {
	if !s.paymentsEnabled(w) {
		return
	}
	secret, err := s.payments.CreateConnectionToken(r.Context())
	if err != nil {
		s.paymentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"secret": secret})
}

func (s *Server) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusServiceUnavailable, "audit log is not configured")
		return
	}
	var buf bytes.Buffer
	if err := audit.Export(r.Context(), s.audit, &buf); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+audit.Filename(s.now())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
