package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"slotbook/internal/backend"
	"slotbook/internal/booking"
	"slotbook/internal/model"
	"slotbook/internal/slots"
)

// bookingRequest submits either a finished wizard session or a complete form.
type bookingRequest struct {
	SessionID string        `json:"session_id,omitempty"`
	Form      *booking.Form `json:"form,omitempty"`
}

type chainFailure struct {
	Error           string   `json:"error"`
	SucceededIDs    []string `json:"succeeded_ids"`
	FailedServiceID string   `json:"failed_service_id"`
	Compensated     bool     `json:"compensated"`
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identifier := chi.URLParam(r, "identifier")

	var req bookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var form booking.Form
	switch {
	case req.SessionID != "":
		session, err := s.sessions.Get(ctx, req.SessionID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if session.Business != identifier {
			writeError(w, http.StatusBadRequest, "session belongs to another business")
			return
		}
		if session.Step != booking.StepContact {
			writeError(w, http.StatusConflict, "wizard is not on the contact step")
			return
		}
		form = session.Form
	case req.Form != nil:
		form = *req.Form
	default:
		writeError(w, http.StatusBadRequest, "session_id or form is required")
		return
	}
	if !booking.CanNavigateTo(booking.StepContact, form) || !booking.CanAdvance(booking.StepContact, form) {
		writeError(w, http.StatusBadRequest, "booking form is incomplete")
		return
	}

	// The re-check must not read a cached snapshot.
	s.invalidate(ctx, identifier)
	biz, err := s.loadBusiness(ctx, identifier)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	loc := biz.settings.Location

	services, err := biz.services(form.ServiceIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, err := form.StartTime(loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Re-check against fresh data; the database constraint still has the last word.
	engine := biz.engine(s.cfg)
	staffID := form.StaffID()
	var free bool
	if staffID == nil {
		// No preference resolves to the first free worker.
		var id string
		id, free = slots.FirstFreeWorker(engine.ComputeNoPreferenceSlots(biz.snap.Workers, start, services), start)
		if free {
			staffID = &id
		}
	} else {
		worker, ok := model.FindWorker(biz.snap.Workers, *staffID)
		if !ok {
			writeError(w, http.StatusNotFound, "worker not found")
			return
		}
		free = slots.IsAvailable(engine.ComputeDaySlots(worker, start, services), start)
	}
	if !free {
		writeError(w, http.StatusConflict, "selected time is no longer available")
		return
	}

	result, err := s.submitter.Submit(ctx, booking.Request{
		RequestID: middleware.GetReqID(ctx),
		Business:  identifier,
		CompanyID: biz.snap.CompanyID,
		Contact:   form.Contact,
		StaffID:   staffID,
		Start:     start,
		Services:  services,
		Relief:    biz.settings.Relief,
	})
	s.invalidate(ctx, identifier)
	if err != nil {
		var partial *booking.PartialBookingFailure
		if errors.As(err, &partial) {
			status := http.StatusBadGateway
			if errors.Is(err, backend.ErrSlotTaken) {
				status = http.StatusConflict
			}
			writeJSON(w, status, chainFailure{
				Error:           err.Error(),
				SucceededIDs:    append([]string{}, partial.SucceededIDs...),
				FailedServiceID: partial.FailedService.ID,
				Compensated:     partial.Compensated,
			})
			return
		}
		s.fail(w, r, err)
		return
	}

	if req.SessionID != "" {
		if err := s.sessions.Delete(ctx, req.SessionID); err != nil {
			s.logger.Warn().Err(err).Str("session_id", req.SessionID).Msg("failed to delete finished session")
		}
	}
	writeJSON(w, http.StatusCreated, result)
}
