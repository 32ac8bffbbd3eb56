package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"slotbook/internal/backend"
	"slotbook/internal/booking"
	"slotbook/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var partial *booking.PartialBookingFailure
	switch {
	case errors.Is(err, backend.ErrSlotTaken):
		return http.StatusConflict
	case errors.As(err, &partial):
		return http.StatusBadGateway
	case errors.Is(err, backend.ErrNotFound), errors.Is(err, booking.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrStepNotAllowed):
		return http.StatusConflict
	case errors.Is(err, model.ErrMalformedBookingInterval):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Internal errors are logged and not echoed.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		if status == http.StatusInternalServerError {
			writeError(w, status, "internal error")
			return
		}
	}
	writeError(w, status, err.Error())
}
