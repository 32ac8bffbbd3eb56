package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotbook/internal/booking"
)

func newTestSupabase(t *testing.T, handler http.HandlerFunc) *SupabaseStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := zerolog.New(io.Discard)
	store, err := NewSupabaseStore(srv.URL, "service-key", "cancelled-id", &logger)
	require.NoError(t, err)
	return store
}

func TestSupabaseFetchCompany(t *testing.T) {
	raw, err := os.ReadFile("testdata/company.json")
	require.NoError(t, err)

	var gotBody map[string]string
	store := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/rpc/get_company_details_by_identifier", r.URL.Path)
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write(raw)
	})

	data, err := store.FetchCompanyAndStaff(context.Background(), "glow")
	require.NoError(t, err)
	assert.Equal(t, "Glow Studio", data.Company.Name)
	assert.Equal(t, map[string]string{"p_identifier": "glow"}, gotBody)
}

func TestSupabaseFetchUnknownCompany(t *testing.T) {
	store := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("null"))
	})

	_, err := store.FetchCompanyAndStaff(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSupabaseCreateBooking(t *testing.T) {
	var row map[string]interface{}
	store := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/booking", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&row)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"id":"b1"}]`))
	})

	id, err := store.CreateBooking(context.Background(), booking.BookingInput{
		CustomerID: "c1",
		ServiceID:  "cut",
		CompanyID:  "co",
		Start:      time.Date(2025, 3, 31, 9, 0, 0, 0, time.FixedZone("AEDT", 11*3600)),
		End:        time.Date(2025, 3, 31, 9, 45, 0, 0, time.FixedZone("AEDT", 11*3600)),
		StatusID:   DefaultPendingStatusID,
	})
	require.NoError(t, err)
	assert.Equal(t, "b1", id)
	assert.Equal(t, "2025-03-30T22:00:00Z", row["start_time"])
	assert.Nil(t, row["staff_id"], "no preference is stored as null")
	assert.Equal(t, DefaultPendingStatusID, row["status_id"])
}

func TestSupabaseCreateBookingConflict(t *testing.T) {
	store := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"23P01","message":"conflicting key value violates exclusion constraint"}`))
	})

	_, err := store.CreateBooking(context.Background(), booking.BookingInput{CustomerID: "c1", ServiceID: "cut"})
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestSupabaseCustomerUpsert(t *testing.T) {
	store := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/create_or_update_customer", r.URL.Path)
		_, _ = w.Write([]byte(`"cust-1"`))
	})

	id, err := store.CreateOrUpdateCustomer(context.Background(), booking.CustomerInput{Phone: "1", CompanyID: "co"})
	require.NoError(t, err)
	assert.Equal(t, "cust-1", id)
}

func TestSupabaseCancelledContext(t *testing.T) {
	store := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.CancelBooking(ctx, "b1")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRestError(t *testing.T) {
	assert.ErrorIs(t, restError(errors.New("(23505) duplicate key value")), ErrSlotTaken)
	assert.NotErrorIs(t, restError(errors.New("(42501) permission denied")), ErrSlotTaken)
	assert.NotErrorIs(t, restError(errors.New("connection refused")), ErrSlotTaken)
}
