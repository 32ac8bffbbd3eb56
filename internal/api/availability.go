package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"slotbook/internal/backend"
	"slotbook/internal/calendar"
	"slotbook/internal/clock"
	"slotbook/internal/config"
	"slotbook/internal/metrics"
	"slotbook/internal/model"
	"slotbook/internal/slots"
)

// business is a fetched snapshot with its resolved settings.
type business struct {
	snap     *backend.Snapshot
	settings config.Settings
}

func (s *Server) loadBusiness(ctx context.Context, identifier string) (*business, error) {
	data, err := s.store.FetchCompanyAndStaff(ctx, identifier)
	if err != nil {
		return nil, err
	}
	snap, err := data.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", identifier, err)
	}
	if len(snap.Issues) > 0 {
		s.logger.Warn().Str("business", identifier).Strs("issues", snap.Issues).Msg("dropped malformed records")
	}
	settings, err := s.registry.Resolve(identifier, snap.Timezone)
	if err != nil {
		return nil, err
	}
	return &business{snap: snap, settings: settings}, nil
}

func (b *business) engine(cfg *config.Config) *slots.Engine {
	e := slots.NewEngine(b.settings.Location)
	e.Relief = b.settings.Relief
	e.DefaultDuration = cfg.DefaultDuration()
	e.NonBlocking = model.NewStatusSet(cfg.NonBlockingStatuses()...)
	return e
}

func (b *business) services(ids []string) ([]model.Service, error) {
	return model.FindServices(b.snap.Catalogue, ids)
}

// splitIDs parses a comma separated id list, dropping blanks.
func splitIDs(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type slotResponse struct {
	Time      string   `json:"time"`
	Start     string   `json:"start"`
	Disabled  bool     `json:"disabled"`
	WorkerIDs []string `json:"worker_ids,omitempty"`
}

type slotsResponse struct {
	Date   string         `json:"date"`
	Worker string         `json:"worker"`
	Slots  []slotResponse `json:"slots"`
}

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	biz, err := s.loadBusiness(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	loc := biz.settings.Location

	q := r.URL.Query()
	date, err := clock.ParseDate(q.Get("date"), loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	services, err := biz.services(splitIDs(q.Get("services")))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	workerID := q.Get("worker")
	if workerID == "" {
		workerID = model.NoPreference
	}
	resp := slotsResponse{Date: date.Format(clock.DateFormat), Worker: workerID, Slots: []slotResponse{}}
	engine := biz.engine(s.cfg)

	if workerID == model.NoPreference {
		metrics.IncSlotsComputed("no_preference")
		for _, u := range engine.ComputeNoPreferenceSlots(biz.snap.Workers, date, services) {
			resp.Slots = append(resp.Slots, slotResponse{
				Time:      u.Time.In(loc).Format(clock.TimeFormat),
				Start:     u.Time.UTC().Format(time.RFC3339),
				Disabled:  u.Disabled,
				WorkerIDs: u.WorkerIDs,
			})
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	worker, ok := model.FindWorker(biz.snap.Workers, workerID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("worker %q not found", workerID))
		return
	}
	metrics.IncSlotsComputed("worker")
	for _, info := range slots.ToSlotInfo(engine.ComputeDaySlots(worker, date, services), loc) {
		resp.Slots = append(resp.Slots, slotResponse{Time: info.Time, Start: info.Start, Disabled: info.Disabled})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRatings(w http.ResponseWriter, r *http.Request) {
	biz, err := s.loadBusiness(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	loc := biz.settings.Location

	q := r.URL.Query()
	month := clock.StartOfMonth(s.now().In(loc), loc)
	if raw := q.Get("month"); raw != "" {
		if month, err = clock.ParseMonth(raw, loc); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	services, err := biz.services(splitIDs(q.Get("services")))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	workers := biz.snap.Workers
	if id := q.Get("worker"); id != "" && id != model.NoPreference {
		worker, ok := model.FindWorker(workers, id)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("worker %q not found", id))
			return
		}
		workers = []model.Worker{worker}
	}
	qualified := make([]model.Worker, 0, len(workers))
	for _, wk := range workers {
		if wk.Qualified(services) {
			qualified = append(qualified, wk)
		}
	}

	ratings := biz.engine(s.cfg).ComputeMonthRatings(month, qualified)
	for _, dr := range ratings {
		metrics.IncDayRating(string(dr.Rating))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"month":   month.Format(clock.MonthFormat),
		"ratings": ratings,
	})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	biz, err := s.loadBusiness(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	loc := biz.settings.Location
	now := s.now().In(loc)

	q := r.URL.Query()
	view, err := calendar.ParseView(q.Get("view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date := clock.LocalDay(now, loc)
	if raw := q.Get("date"); raw != "" {
		if date, err = clock.ParseDate(raw, loc); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	workers := biz.snap.Workers
	if id := q.Get("worker"); id != "" {
		worker, ok := model.FindWorker(workers, id)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("worker %q not found", id))
			return
		}
		workers = []model.Worker{worker}
	}

	builder := calendar.NewBuilder(loc)
	builder.Hours = calendar.HourRange{From: biz.settings.StartHour, To: biz.settings.EndHour}
	events := model.EventsFromWorkers(workers)

	var grid any
	switch view {
	case calendar.ViewDay:
		grid = builder.BuildDayGrid(date, events, now)
	case calendar.ViewMonth:
		grid = builder.BuildMonthGrid(date, events)
	default:
		grid = builder.BuildWeekGrid(date, events, now)
	}
	writeJSON(w, http.StatusOK, map[string]any{"view": view, "grid": grid})
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	loc := s.registry.Location()
	q := r.URL.Query()

	view, err := calendar.ParseView(q.Get("view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := clock.ParseDate(q.Get("date"), loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	step := 0
	if raw := q.Get("step"); raw != "" {
		if step, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "step must be an integer")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"view": string(view),
		"date": calendar.Navigate(view, date, step, loc).Format(clock.DateFormat),
	})
}

func (s *Server) handlePicker(w http.ResponseWriter, r *http.Request) {
	loc := s.registry.Location()
	picker := calendar.NewMonthPicker(s.now(), loc)
	picker.MonthsAhead = s.cfg.PickerMonthsAhead()

	month := picker.First()
	if raw := r.URL.Query().Get("month"); raw != "" {
		m, err := clock.ParseMonth(raw, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		month = m
	}
	writeJSON(w, http.StatusOK, picker.State(month))
}
