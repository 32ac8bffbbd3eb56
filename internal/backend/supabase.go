package backend

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	supa "github.com/supabase-community/supabase-go"

	"slotbook/internal/booking"
)

var sqlStatePattern = regexp.MustCompile(`\((\w{5})\)`)

// SupabaseStore talks to the business database through the Supabase REST API.
type SupabaseStore struct {
	client            *supa.Client
	cancelledStatusID string
	logger            zerolog.Logger
}

// NewSupabaseStore creates a client for the project URL and service key.
func NewSupabaseStore(url, key, cancelledStatusID string, logger *zerolog.Logger) (*SupabaseStore, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &SupabaseStore{
		client:            client,
		cancelledStatusID: cancelledStatusID,
		logger:            logger.With().Str("component", "supabase").Logger(),
	}, nil
}

func (s *SupabaseStore) FetchCompanyAndStaff(ctx context.Context, identifier string) (*CompanyData, error) {
	defer observe("fetch_company", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw := s.client.Rpc("get_company_details_by_identifier", "", map[string]string{
		"p_identifier": identifier,
	})
	data, err := decodeCompany([]byte(raw))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error().Err(err).Str("identifier", identifier).Msg("fetch company")
		}
		return nil, fmt.Errorf("company %q: %w", identifier, err)
	}
	return data, nil
}

func (s *SupabaseStore) CreateOrUpdateCustomer(ctx context.Context, in booking.CustomerInput) (string, error) {
	defer observe("upsert_customer", time.Now())
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw := s.client.Rpc("create_or_update_customer", "", map[string]string{
		"p_phone_number": in.Phone,
		"p_company_id":   in.CompanyID,
		"p_first_name":   in.FirstName,
		"p_last_name":    in.LastName,
		"p_email":        in.Email,
	})
	id, err := decodeID([]byte(raw))
	if err != nil {
		return "", fmt.Errorf("create_or_update_customer: %w", err)
	}
	return id, nil
}

func (s *SupabaseStore) CreateBooking(ctx context.Context, in booking.BookingInput) (string, error) {
	defer observe("create_booking", time.Now())
	if err := ctx.Err(); err != nil {
		return "", err
	}

	row := map[string]interface{}{
		"customer_id": in.CustomerID,
		"staff_id":    in.StaffID,
		"service_id":  in.ServiceID,
		"company_id":  in.CompanyID,
		"start_time":  in.Start.UTC().Format(time.RFC3339),
		"end_time":    in.End.UTC().Format(time.RFC3339),
		"status_id":   in.StatusID,
	}
	data, _, err := s.client.From("booking").Insert(row, false, "", "representation", "").Execute()
	if err != nil {
		return "", fmt.Errorf("insert booking: %w", restError(err))
	}
	id, err := decodeID(data)
	if err != nil {
		return "", fmt.Errorf("insert booking: %w", err)
	}
	return id, nil
}

// CancelBooking moves the booking to the cancelled status. Bookings are never deleted.
func (s *SupabaseStore) CancelBooking(ctx context.Context, id string) error {
	defer observe("cancel_booking", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}

	data, _, err := s.client.From("booking").
		Update(map[string]interface{}{"status_id": s.cancelledStatusID}, "representation", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return fmt.Errorf("cancel booking %s: %w", id, restError(err))
	}
	if _, err := decodeID(data); err != nil {
		return fmt.Errorf("cancel booking %s: %w", id, ErrNotFound)
	}
	return nil
}

// restError recovers the SQLSTATE from "(code) message" errors.
func restError(err error) error {
	m := sqlStatePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return err
	}
	return mapCode(m[1], err)
}
