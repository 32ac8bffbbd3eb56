package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"slotbook/internal/events"
	"slotbook/internal/metrics"
	"slotbook/internal/model"
)

// Event types published after a write chain.
const (
	EventChainCompleted = "booking.chain.completed"
	EventChainFailed    = "booking.chain.failed"
)

// CustomerInput is the customer upsert payload.
type CustomerInput struct {
	Phone     string
	CompanyID string
	FirstName string
	LastName  string
	Email     string
}

// BookingInput is one booking insert.
type BookingInput struct {
	CustomerID string
	StaffID    *string
	ServiceID  string
	CompanyID  string
	Start      time.Time
	End        time.Time
	StatusID   string
}

// Writer is the write side of the business database.
type Writer interface {
	CreateOrUpdateCustomer(ctx context.Context, in CustomerInput) (string, error)
	CreateBooking(ctx context.Context, in BookingInput) (string, error)
	CancelBooking(ctx context.Context, id string) error
}

// Publisher receives chain outcome events.
type Publisher interface {
	Publish(event events.Event)
}

// PartialBookingFailure reports a write chain that stopped at FailedService.
// SucceededIDs are the bookings inserted before it.
type PartialBookingFailure struct {
	SucceededIDs    []string
	FailedService   model.Service
	Cause           error
	Compensated     bool
	CompensationErr error
}

func (e *PartialBookingFailure) Error() string {
	msg := fmt.Sprintf("booking chain failed at service %s after %d booking(s): %v",
		e.FailedService.ID, len(e.SucceededIDs), e.Cause)
	if e.Compensated {
		msg += "; created bookings cancelled"
	}
	if e.CompensationErr != nil {
		msg += fmt.Sprintf("; compensation failed: %v", e.CompensationErr)
	}
	return msg
}

func (e *PartialBookingFailure) Unwrap() []error {
	if e.CompensationErr != nil {
		return []error{e.Cause, e.CompensationErr}
	}
	return []error{e.Cause}
}

// Request is a submitted wizard form resolved against the catalogue.
type Request struct {
	RequestID string
	Business  string
	CompanyID string
	Contact   Contact
	StaffID   *string
	Start     time.Time
	Services  []model.Service
	// Relief overrides SubmitterConfig.Relief when positive.
	Relief time.Duration
}

// Result lists what the chain created.
type Result struct {
	CustomerID string    `json:"customer_id"`
	BookingIDs []string  `json:"booking_ids"`
	Segments   []Segment `json:"segments"`
}

const compensateTimeout = 10 * time.Second

// SubmitterConfig tunes the write chain.
type SubmitterConfig struct {
	Relief          time.Duration
	PendingStatusID string
	// Compensate cancels already created bookings when a later insert fails.
	Compensate bool
}

// Submitter runs the booking write chain.
type Submitter struct {
	writer    Writer
	publisher Publisher
	cfg       SubmitterConfig
	logger    zerolog.Logger
}

// NewSubmitter creates a submitter. publisher may be nil.
func NewSubmitter(writer Writer, publisher Publisher, cfg SubmitterConfig, logger *zerolog.Logger) *Submitter {
	return &Submitter{
		writer:    writer,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With().Str("component", "booking").Logger(),
	}
}

// Submit upserts the customer, then inserts one booking per service in order.
// A failed insert aborts the rest and returns *PartialBookingFailure.
func (s *Submitter) Submit(ctx context.Context, req Request) (*Result, error) {
	if len(req.Services) == 0 {
		return nil, errors.New("no services selected")
	}
	if !req.Contact.Complete() {
		return nil, errors.New("contact name and phone are required")
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	first, last := req.Contact.SplitName()
	customerID, err := s.writer.CreateOrUpdateCustomer(ctx, CustomerInput{
		Phone:     strings.TrimSpace(req.Contact.Phone),
		CompanyID: req.CompanyID,
		FirstName: first,
		LastName:  last,
		Email:     strings.TrimSpace(req.Contact.Email),
	})
	if err != nil {
		s.publish(req, outcome{Error: err.Error()}, EventChainFailed)
		return nil, fmt.Errorf("upsert customer: %w", err)
	}

	relief := s.cfg.Relief
	if req.Relief > 0 {
		relief = req.Relief
	}
	segments := PlanChain(req.Start, req.Services, relief)
	ids := make([]string, 0, len(segments))

	for _, seg := range segments {
		id, err := s.writer.CreateBooking(ctx, BookingInput{
			CustomerID: customerID,
			StaffID:    req.StaffID,
			ServiceID:  seg.Service.ID,
			CompanyID:  req.CompanyID,
			Start:      seg.Start.UTC(),
			End:        seg.End.UTC(),
			StatusID:   s.cfg.PendingStatusID,
		})
		if err != nil {
			failure := &PartialBookingFailure{
				SucceededIDs:  ids,
				FailedService: seg.Service,
				Cause:         err,
			}
			s.compensate(ctx, failure)
			metrics.IncChainFailed(failure.Compensated)

			s.logger.Error().Err(err).
				Str("request_id", req.RequestID).
				Str("service_id", seg.Service.ID).
				Strs("succeeded", ids).
				Bool("compensated", failure.Compensated).
				Msg("booking chain failed")
			s.publish(req, outcome{
				CustomerID:      customerID,
				BookingIDs:      ids,
				FailedServiceID: seg.Service.ID,
				Error:           failure.Error(),
				Compensated:     failure.Compensated,
			}, EventChainFailed)
			return nil, failure
		}
		ids = append(ids, id)
		metrics.IncBookingCreated("pending")
	}

	s.logger.Info().
		Str("request_id", req.RequestID).
		Str("customer_id", customerID).
		Strs("bookings", ids).
		Msg("booking chain completed")
	s.publish(req, outcome{CustomerID: customerID, BookingIDs: ids}, EventChainCompleted)

	return &Result{CustomerID: customerID, BookingIDs: ids, Segments: segments}, nil
}

// compensate cancels succeeded bookings newest first. Bookings are never deleted.
// Cancellation is detached from ctx cancellation.
func (s *Submitter) compensate(ctx context.Context, failure *PartialBookingFailure) {
	if !s.cfg.Compensate || len(failure.SucceededIDs) == 0 {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()

	var errs []error
	for i := len(failure.SucceededIDs) - 1; i >= 0; i-- {
		id := failure.SucceededIDs[i]
		if err := s.writer.CancelBooking(cctx, id); err != nil {
			errs = append(errs, fmt.Errorf("cancel %s: %w", id, err))
			continue
		}
		metrics.IncBookingCancelled()
	}
	failure.CompensationErr = errors.Join(errs...)
	failure.Compensated = len(errs) == 0
}

// outcome is the event payload; field names match the audit log.
type outcome struct {
	RequestID       string    `json:"request_id"`
	Business        string    `json:"business"`
	CustomerID      string    `json:"customer_id,omitempty"`
	BookingIDs      []string  `json:"booking_ids"`
	FailedServiceID string    `json:"failed_service_id,omitempty"`
	Error           string    `json:"error,omitempty"`
	Compensated     bool      `json:"compensated"`
	Start           time.Time `json:"start"`
}

func (s *Submitter) publish(req Request, o outcome, eventType string) {
	if s.publisher == nil {
		return
	}
	o.RequestID = req.RequestID
	o.Business = req.Business
	o.Start = req.Start.UTC()
	if o.BookingIDs == nil {
		o.BookingIDs = []string{}
	}
	payload, err := json.Marshal(o)
	if err != nil {
		s.logger.Warn().Err(err).Msg("encode chain event")
		return
	}
	s.publisher.Publish(events.Event{Type: eventType, Payload: payload})
}
