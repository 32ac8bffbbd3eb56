package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"slotbook/internal/booking"
)

// querier is the part of pgxpool.Pool the store uses.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore talks to the business database directly. The booking table is
// expected to carry an exclusion constraint on (staff_id, tstzrange(start_time, end_time)).
type PostgresStore struct {
	db                querier
	pool              *pgxpool.Pool
	cancelledStatusID string
	logger            zerolog.Logger
}

// OpenPostgres connects a pool and pings it.
func OpenPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(pool *pgxpool.Pool, cancelledStatusID string, logger *zerolog.Logger) *PostgresStore {
	s := newPostgresStore(pool, cancelledStatusID, logger)
	s.pool = pool
	return s
}

func newPostgresStore(db querier, cancelledStatusID string, logger *zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		db:                db,
		cancelledStatusID: cancelledStatusID,
		logger:            logger.With().Str("component", "postgres").Logger(),
	}
}

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return errors.New("db not configured")
	}
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) FetchCompanyAndStaff(ctx context.Context, identifier string) (*CompanyData, error) {
	defer observe("fetch_company", time.Now())

	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT get_company_details_by_identifier($1)::text`, identifier).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && raw == nil) {
		return nil, fmt.Errorf("company %q: %w", identifier, ErrNotFound)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("identifier", identifier).Msg("fetch company")
		return nil, fmt.Errorf("company %q: %w", identifier, err)
	}
	data, err := decodeCompany(raw)
	if err != nil {
		return nil, fmt.Errorf("company %q: %w", identifier, err)
	}
	return data, nil
}

func (s *PostgresStore) CreateOrUpdateCustomer(ctx context.Context, in booking.CustomerInput) (string, error) {
	defer observe("upsert_customer", time.Now())

	var id string
	err := s.db.QueryRow(ctx,
		`SELECT create_or_update_customer($1, $2, $3, $4, $5)::text`,
		in.Phone, in.CompanyID, in.FirstName, in.LastName, in.Email,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create_or_update_customer: %w", pgError(err))
	}
	return id, nil
}

func (s *PostgresStore) CreateBooking(ctx context.Context, in booking.BookingInput) (string, error) {
	defer observe("create_booking", time.Now())

	var id string
	err := s.db.QueryRow(ctx, `
		INSERT INTO booking
			(customer_id, staff_id, service_id, company_id, start_time, end_time, status_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id::text
	`, in.CustomerID, in.StaffID, in.ServiceID, in.CompanyID, in.Start.UTC(), in.End.UTC(), in.StatusID).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert booking: %w", pgError(err))
	}
	return id, nil
}

// CancelBooking moves the booking to the cancelled status. Bookings are never deleted.
func (s *PostgresStore) CancelBooking(ctx context.Context, id string) error {
	defer observe("cancel_booking", time.Now())

	tag, err := s.db.Exec(ctx, `UPDATE booking SET status_id = $2 WHERE id = $1`, id, s.cancelledStatusID)
	if err != nil {
		return fmt.Errorf("cancel booking %s: %w", id, pgError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cancel booking %s: %w", id, ErrNotFound)
	}
	return nil
}

func pgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapCode(pgErr.Code, err)
	}
	return err
}
