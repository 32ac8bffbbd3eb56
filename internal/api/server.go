// Package api serves the booking wizard, availability and dashboard calendar over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"slotbook/internal/audit"
	"slotbook/internal/backend"
	"slotbook/internal/booking"
	"slotbook/internal/config"
	"slotbook/internal/metrics"
	"slotbook/internal/payments"
)

// Deps are the collaborators of the HTTP server. Payments and Audit may be nil.
type Deps struct {
	Store     backend.Store
	Sessions  booking.SessionStore
	Submitter *booking.Submitter
	Payments  payments.Gateway
	Audit     audit.TableExporter
	Registry  *config.Registry
	Config    *config.Config
	Logger    *zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// invalidator is implemented by caching stores.
type invalidator interface {
	Invalidate(ctx context.Context, identifier string)
}

const invalidateTimeout = 2 * time.Second

// invalidate drops the cached snapshot even when the client has gone away.
func (s *Server) invalidate(ctx context.Context, identifier string) {
	inv, ok := s.store.(invalidator)
	if !ok {
		return
	}
	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()
	inv.Invalidate(ictx, identifier)
}

type Server struct {
	store     backend.Store
	sessions  booking.SessionStore
	submitter *booking.Submitter
	payments  payments.Gateway
	audit     audit.TableExporter
	registry  *config.Registry
	cfg       *config.Config
	fsm       *booking.FSM
	limiter   *rateLimiter
	logger    zerolog.Logger
	now       func() time.Time
}

func NewServer(d Deps) *Server {
	s := &Server{
		store:     d.Store,
		sessions:  d.Sessions,
		submitter: d.Submitter,
		payments:  d.Payments,
		audit:     d.Audit,
		registry:  d.Registry,
		cfg:       d.Config,
		fsm:       booking.NewFSM(),
		limiter:   newRateLimiter(d.Config.RateLimitPerMinute()),
		now:       d.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if d.Logger != nil {
		s.logger = d.Logger.With().Str("component", "api").Logger()
	} else {
		s.logger = zerolog.Nop()
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.AccessHandler(s.logAccess))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", apiKeyHeader},
	}).Handler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/picker", s.handlePicker)
		r.Get("/calendar/navigate", s.handleNavigate)

		r.Route("/businesses/{identifier}", func(r chi.Router) {
			r.Get("/slots", s.handleSlots)
			r.Get("/ratings", s.handleRatings)
			r.With(s.requireAPIKey).Get("/calendar", s.handleCalendar)
			r.With(s.limiter.Limit).Post("/bookings", s.handleCreateBooking)
		})

		r.Post("/wizard", s.handleWizardCreate)
		r.Get("/wizard/{id}", s.handleWizardGet)
		r.Put("/wizard/{id}/form", s.handleWizardForm)
		r.Post("/wizard/{id}/step", s.handleWizardStep)

		r.Route("/payments", func(r chi.Router) {
			r.Post("/checkout", s.handleCheckout)
			r.Post("/tap-to-pay", s.handleTapToPay)
			r.Post("/connection-token", s.handleConnectionToken)
		})

		r.With(s.requireAPIKey).Get("/admin/audit.xlsx", s.handleAuditExport)
	})

	return r
}

func (s *Server) logAccess(r *http.Request, status, size int, duration time.Duration) {
	route := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			route = p
		}
	}
	metrics.IncHTTP(route)

	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("route", route).
		Str("request_id", middleware.GetReqID(r.Context())).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}
