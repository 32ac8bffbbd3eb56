package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"slotbook/internal/events"
)

// ChainRecord is one audited booking write chain.
type ChainRecord struct {
	ID              int64     `json:"id"`
	EventType       string    `json:"event_type"`
	RequestID       string    `json:"request_id"`
	Business        string    `json:"business"`
	CustomerID      string    `json:"customer_id,omitempty"`
	BookingIDs      []string  `json:"booking_ids"`
	FailedServiceID string    `json:"failed_service_id,omitempty"`
	Error           string    `json:"error,omitempty"`
	Compensated     bool      `json:"compensated"`
	Start           time.Time `json:"start"`
	CreatedAt       time.Time `json:"created_at"`
}

// RecordChain stores a chain outcome.
func (db *DB) RecordChain(ctx context.Context, rec *ChainRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	var start interface{}
	if !rec.Start.IsZero() {
		start = rec.Start.UTC()
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO booking_chains
			(event_type, request_id, business, customer_id, booking_ids, failed_service_id, error, compensated, start_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.EventType, rec.RequestID, rec.Business, rec.CustomerID, strings.Join(rec.BookingIDs, ","),
		rec.FailedServiceID, rec.Error, rec.Compensated, start, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert booking chain: %w", err)
	}
	rec.ID, _ = res.LastInsertId()
	return nil
}

// ListChains returns chains created at or after since, newest first.
func (db *DB) ListChains(ctx context.Context, since time.Time, limit int) ([]ChainRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, event_type, request_id, business, COALESCE(customer_id, ''), booking_ids,
			COALESCE(failed_service_id, ''), COALESCE(error, ''), compensated, start_time, created_at
		FROM booking_chains
		WHERE created_at >= ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChainRecord
	for rows.Next() {
		var rec ChainRecord
		var ids string
		var start sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.EventType, &rec.RequestID, &rec.Business, &rec.CustomerID, &ids,
			&rec.FailedServiceID, &rec.Error, &rec.Compensated, &start, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if ids != "" {
			rec.BookingIDs = strings.Split(ids, ",")
		}
		if start.Valid {
			rec.Start = start.Time
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes chains older than the retention window.
func (db *DB) DeleteOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UTC()
	res, err := db.ExecContext(ctx, `DELETE FROM booking_chains WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// chainPayload mirrors the booking chain event payload.
type chainPayload struct {
	RequestID       string    `json:"request_id"`
	Business        string    `json:"business"`
	CustomerID      string    `json:"customer_id"`
	BookingIDs      []string  `json:"booking_ids"`
	FailedServiceID string    `json:"failed_service_id"`
	Error           string    `json:"error"`
	Compensated     bool      `json:"compensated"`
	Start           time.Time `json:"start"`
}

// HandleChainEvent is an events.EventHandler that audits chain outcomes.
func (db *DB) HandleChainEvent(event events.Event) error {
	var p chainPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return db.RecordChain(ctx, &ChainRecord{
		EventType:       event.Type,
		RequestID:       p.RequestID,
		Business:        p.Business,
		CustomerID:      p.CustomerID,
		BookingIDs:      p.BookingIDs,
		FailedServiceID: p.FailedServiceID,
		Error:           p.Error,
		Compensated:     p.Compensated,
		Start:           p.Start,
		CreatedAt:       event.CreatedAt,
	})
}
