package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"slotbook/internal/booking"
	"slotbook/internal/metrics"
)

type stepState struct {
	Step      booking.Step `json:"step"`
	Title     string       `json:"title"`
	Reachable bool         `json:"reachable"`
}

type wizardView struct {
	*booking.Session
	CanAdvance bool        `json:"can_advance"`
	Steps      []stepState `json:"steps"`
}

func viewOf(session *booking.Session) wizardView {
	steps := make([]stepState, len(booking.Steps))
	for i, st := range booking.Steps {
		steps[i] = stepState{
			Step:      st,
			Title:     booking.StepTitles[st],
			Reachable: booking.CanNavigateTo(st, session.Form),
		}
	}
	return wizardView{
		Session:    session,
		CanAdvance: booking.CanAdvance(session.Step, session.Form),
		Steps:      steps,
	}
}

func (s *Server) handleWizardCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Business string `json:"business"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Business) == "" {
		writeError(w, http.StatusBadRequest, "business is required")
		return
	}

	session := booking.NewSession(req.Business)
	if err := s.sessions.Save(r.Context(), session); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(session))
}

func (s *Server) handleWizardGet(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(session))
}

type formPatch struct {
	booking.Form
	// ToggleService adds or removes one sub-service.
	ToggleService string `json:"toggle_service,omitempty"`
}

func (s *Server) handleWizardForm(w http.ResponseWriter, r *http.Request) {
	var patch formPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	session.Form.Apply(patch.Form)
	if patch.ToggleService != "" {
		session.Form.ToggleService(patch.ToggleService)
	}
	session.Touch()

	if err := s.sessions.Save(r.Context(), session); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(session))
}

func (s *Server) handleWizardStep(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Step string `json:"step"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	step, err := booking.ParseStep(req.Step)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.fsm.Transition(session, step); err != nil {
		metrics.IncWizardTransition(string(step), "rejected")
		s.fail(w, r, err)
		return
	}
	metrics.IncWizardTransition(string(step), "ok")

	if err := s.sessions.Save(r.Context(), session); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(session))
}
