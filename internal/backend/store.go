package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"slotbook/internal/booking"
	"slotbook/internal/metrics"
)

var (
	// ErrNotFound is returned when the identifier or booking does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSlotTaken is returned when the database rejects an overlapping booking.
	ErrSlotTaken = errors.New("slot already taken")
)

// DefaultPendingStatusID is the booking status written by the wizard.
const DefaultPendingStatusID = "dfbd8eb3-4eb4-49b5-b230-a9c7d3a14bca"

// Store is the business database: one read of the company snapshot and the
// writes of the booking chain.
type Store interface {
	booking.Writer
	FetchCompanyAndStaff(ctx context.Context, identifier string) (*CompanyData, error)
}

// rpcError is the PostgREST error body.
type rpcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// decodeCompany parses the company RPC result. JSON null means unknown identifier.
func decodeCompany(raw []byte) (*CompanyData, error) {
	body := strings.TrimSpace(string(raw))
	if body == "" {
		return nil, errors.New("empty response")
	}
	if body == "null" {
		return nil, ErrNotFound
	}
	if err := asRPCError(body); err != nil {
		return nil, err
	}
	var data CompanyData
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return nil, fmt.Errorf("decode company: %w", err)
	}
	if data.Company.ID == "" {
		return nil, ErrNotFound
	}
	return &data, nil
}

// decodeID parses an id returned either as a JSON string or as a row list.
func decodeID(raw []byte) (string, error) {
	body := strings.TrimSpace(string(raw))
	if body == "" || body == "null" {
		return "", errors.New("empty id in response")
	}
	if err := asRPCError(body); err != nil {
		return "", err
	}

	var id string
	if err := json.Unmarshal([]byte(body), &id); err == nil && id != "" {
		return id, nil
	}
	var rows []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(body), &rows); err == nil && len(rows) > 0 && rows[0].ID != "" {
		return rows[0].ID, nil
	}
	return "", fmt.Errorf("unexpected id response %q", body)
}

func asRPCError(body string) error {
	if !strings.HasPrefix(body, "{") {
		return nil
	}
	var e rpcError
	if err := json.Unmarshal([]byte(body), &e); err != nil || e.Message == "" || e.Code == "" {
		return nil
	}
	return mapCode(e.Code, fmt.Errorf("rpc error %s: %s", e.Code, e.Message))
}

// mapCode turns constraint SQLSTATEs into ErrSlotTaken.
func mapCode(code string, err error) error {
	switch code {
	case "23P01", "23505":
		return fmt.Errorf("%w: %w", ErrSlotTaken, err)
	}
	return err
}

func observe(op string, start time.Time) {
	metrics.ObserveBackend(op, time.Since(start).Seconds())
}
