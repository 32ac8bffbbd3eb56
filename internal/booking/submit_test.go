package booking

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"slotbook/internal/events"
	"slotbook/internal/model"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) CreateOrUpdateCustomer(ctx context.Context, in CustomerInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *mockWriter) CreateBooking(ctx context.Context, in BookingInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *mockWriter) CancelBooking(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func byService(id string) interface{} {
	return mock.MatchedBy(func(in BookingInput) bool { return in.ServiceID == id })
}

type recorder struct {
	events []events.Event
}

func (r *recorder) collect(e events.Event) error {
	r.events = append(r.events, e)
	return nil
}

func newTestSubmitter(t *testing.T, w Writer, compensate bool) (*Submitter, *recorder) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	bus := events.NewEventBus(&logger)
	rec := &recorder{}
	bus.Subscribe(EventChainCompleted, rec.collect)
	bus.Subscribe(EventChainFailed, rec.collect)
	cfg := SubmitterConfig{Relief: 30 * time.Minute, PendingStatusID: "pending-id", Compensate: compensate}
	return NewSubmitter(w, bus, cfg, &logger), rec
}

func chainRequest() Request {
	staff := "w1"
	return Request{
		RequestID: "req-1",
		Business:  "acme",
		CompanyID: "company-1",
		Contact:   Contact{Name: "Ann Lee", Email: "ann@example.com", Phone: " +61400000000 "},
		StaffID:   &staff,
		Start:     time.Date(2025, 3, 31, 9, 0, 0, 0, time.FixedZone("AEDT", 11*3600)),
		Services:  []model.Service{svc("cut", 45), svc("colour", 45), svc("style", 30)},
	}
}

func TestSubmitSuccess(t *testing.T) {
	w := new(mockWriter)
	s, rec := newTestSubmitter(t, w, true)
	ctx := context.Background()

	w.On("CreateOrUpdateCustomer", ctx, CustomerInput{
		Phone: "+61400000000", CompanyID: "company-1", FirstName: "Ann", LastName: "Lee", Email: "ann@example.com",
	}).Return("cust-1", nil).Once()
	w.On("CreateBooking", ctx, mock.MatchedBy(func(in BookingInput) bool {
		return in.ServiceID == "cut" &&
			in.CustomerID == "cust-1" &&
			in.StatusID == "pending-id" &&
			in.CompanyID == "company-1" &&
			*in.StaffID == "w1" &&
			in.Start.Equal(time.Date(2025, 3, 30, 22, 0, 0, 0, time.UTC)) &&
			in.Start.Location() == time.UTC
	})).Return("b1", nil).Once()
	w.On("CreateBooking", ctx, mock.MatchedBy(func(in BookingInput) bool {
		return in.ServiceID == "colour" && in.Start.Equal(time.Date(2025, 3, 30, 23, 15, 0, 0, time.UTC))
	})).Return("b2", nil).Once()
	w.On("CreateBooking", ctx, byService("style")).Return("b3", nil).Once()

	res, err := s.Submit(ctx, chainRequest())
	require.NoError(t, err)
	assert.Equal(t, "cust-1", res.CustomerID)
	assert.Equal(t, []string{"b1", "b2", "b3"}, res.BookingIDs)
	require.Len(t, res.Segments, 3)
	w.AssertExpectations(t)
	w.AssertNotCalled(t, "CancelBooking", mock.Anything, mock.Anything)

	require.Len(t, rec.events, 1)
	assert.Equal(t, EventChainCompleted, rec.events[0].Type)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.events[0].Payload, &payload))
	assert.Equal(t, "req-1", payload["request_id"])
	assert.Equal(t, "acme", payload["business"])
	assert.Equal(t, "cust-1", payload["customer_id"])
}

func TestSubmitPartialFailureCompensates(t *testing.T) {
	w := new(mockWriter)
	s, rec := newTestSubmitter(t, w, true)
	ctx := context.Background()
	cause := errors.New("insert failed")

	w.On("CreateOrUpdateCustomer", ctx, mock.Anything).Return("cust-1", nil).Once()
	w.On("CreateBooking", ctx, byService("cut")).Return("b1", nil).Once()
	w.On("CreateBooking", ctx, byService("colour")).Return("b2", nil).Once()
	w.On("CreateBooking", ctx, byService("style")).Return("", cause).Once()

	var cancelled []string
	w.On("CancelBooking", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		cancelled = append(cancelled, args.String(1))
	}).Return(nil).Twice()

	res, err := s.Submit(ctx, chainRequest())
	require.Error(t, err)
	assert.Nil(t, res)

	var partial *PartialBookingFailure
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []string{"b1", "b2"}, partial.SucceededIDs)
	assert.Equal(t, "style", partial.FailedService.ID)
	assert.True(t, partial.Compensated)
	assert.NoError(t, partial.CompensationErr)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, []string{"b2", "b1"}, cancelled, "newest first")
	w.AssertExpectations(t)

	require.Len(t, rec.events, 1)
	assert.Equal(t, EventChainFailed, rec.events[0].Type)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.events[0].Payload, &payload))
	assert.Equal(t, "style", payload["failed_service_id"])
	assert.Equal(t, true, payload["compensated"])
}

func TestSubmitCompensationError(t *testing.T) {
	w := new(mockWriter)
	s, _ := newTestSubmitter(t, w, true)
	ctx := context.Background()
	cancelErr := errors.New("cancel failed")

	w.On("CreateOrUpdateCustomer", ctx, mock.Anything).Return("cust-1", nil).Once()
	w.On("CreateBooking", ctx, byService("cut")).Return("b1", nil).Once()
	w.On("CreateBooking", ctx, byService("colour")).Return("", errors.New("slot taken")).Once()
	w.On("CancelBooking", mock.Anything, "b1").Return(cancelErr).Once()

	_, err := s.Submit(ctx, chainRequest())

	var partial *PartialBookingFailure
	require.ErrorAs(t, err, &partial)
	assert.False(t, partial.Compensated)
	assert.ErrorIs(t, err, cancelErr)
	assert.Contains(t, err.Error(), "compensation failed")
	w.AssertExpectations(t)
}

func TestSubmitWithoutCompensation(t *testing.T) {
	w := new(mockWriter)
	s, _ := newTestSubmitter(t, w, false)
	ctx := context.Background()

	w.On("CreateOrUpdateCustomer", ctx, mock.Anything).Return("cust-1", nil).Once()
	w.On("CreateBooking", ctx, byService("cut")).Return("b1", nil).Once()
	w.On("CreateBooking", ctx, byService("colour")).Return("", errors.New("boom")).Once()

	_, err := s.Submit(ctx, chainRequest())

	var partial *PartialBookingFailure
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []string{"b1"}, partial.SucceededIDs)
	assert.False(t, partial.Compensated)
	w.AssertNotCalled(t, "CancelBooking", mock.Anything, mock.Anything)
	w.AssertNotCalled(t, "CreateBooking", mock.Anything, byService("style"))
}

func TestSubmitCustomerFailure(t *testing.T) {
	w := new(mockWriter)
	s, rec := newTestSubmitter(t, w, true)
	ctx := context.Background()

	w.On("CreateOrUpdateCustomer", ctx, mock.Anything).Return("", errors.New("rpc down")).Once()

	_, err := s.Submit(ctx, chainRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert customer")
	w.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
	require.Len(t, rec.events, 1)
	assert.Equal(t, EventChainFailed, rec.events[0].Type)
}

func TestSubmitValidation(t *testing.T) {
	w := new(mockWriter)
	s, _ := newTestSubmitter(t, w, true)

	req := chainRequest()
	req.Services = nil
	_, err := s.Submit(context.Background(), req)
	assert.Error(t, err)

	req = chainRequest()
	req.Contact.Phone = ""
	_, err = s.Submit(context.Background(), req)
	assert.Error(t, err)

	w.AssertNotCalled(t, "CreateOrUpdateCustomer", mock.Anything, mock.Anything)
}

// cancellingWriter cancels the request context once the first booking lands,
// then fails every later insert the way a dropped connection would.
type cancellingWriter struct {
	cancel    context.CancelFunc
	created   int
	cancelled []string
}

func (w *cancellingWriter) CreateOrUpdateCustomer(ctx context.Context, in CustomerInput) (string, error) {
	return "cust-1", nil
}

func (w *cancellingWriter) CreateBooking(ctx context.Context, in BookingInput) (string, error) {
	if w.created > 0 {
		return "", ctx.Err()
	}
	w.created++
	w.cancel()
	return "b1", nil
}

func (w *cancellingWriter) CancelBooking(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.cancelled = append(w.cancelled, id)
	return nil
}

func TestSubmitCompensatesAfterClientDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := &cancellingWriter{cancel: cancel}
	s, _ := newTestSubmitter(t, w, true)

	_, err := s.Submit(ctx, chainRequest())

	var partial *PartialBookingFailure
	require.ErrorAs(t, err, &partial)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"b1"}, partial.SucceededIDs)
	assert.True(t, partial.Compensated)
	assert.NoError(t, partial.CompensationErr)
	assert.Equal(t, []string{"b1"}, w.cancelled)
}

func TestSubmitRequestReliefOverridesDefault(t *testing.T) {
	w := new(mockWriter)
	s, _ := newTestSubmitter(t, w, true)
	ctx := context.Background()

	w.On("CreateOrUpdateCustomer", ctx, mock.Anything).Return("cust-1", nil).Once()
	w.On("CreateBooking", ctx, byService("cut")).Return("b1", nil).Once()
	w.On("CreateBooking", ctx, mock.MatchedBy(func(in BookingInput) bool {
		return in.ServiceID == "colour" && in.Start.Equal(time.Date(2025, 3, 30, 23, 0, 0, 0, time.UTC))
	})).Return("b2", nil).Once()
	w.On("CreateBooking", ctx, mock.MatchedBy(func(in BookingInput) bool {
		return in.ServiceID == "style" && in.Start.Equal(time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))
	})).Return("b3", nil).Once()

	req := chainRequest()
	req.Relief = 15 * time.Minute
	res, err := s.Submit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2", "b3"}, res.BookingIDs)
	w.AssertExpectations(t)
}
