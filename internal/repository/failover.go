package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"slotbook/internal/booking"
)

const recoveryInterval = time.Minute

// FailoverSessionStore serves sessions from primary and switches to fallback
// while primary is failing. Primary is retried once per recoveryInterval.
type FailoverSessionStore struct {
	primary  booking.SessionStore
	fallback booking.SessionStore
	logger   zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverSessionStore(primary, fallback booking.SessionStore, logger *zerolog.Logger) *FailoverSessionStore {
	return &FailoverSessionStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With().Str("component", "session_failover").Logger(),
	}
}

// Degraded reports whether sessions are currently served by the fallback.
func (r *FailoverSessionStore) Degraded() bool {
	return r.isDown.Load()
}

// usePrimary decides whether this call should try primary.
func (r *FailoverSessionStore) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) < recoveryInterval {
		return false
	}
	r.lastCheck = time.Now()
	return true
}

func (r *FailoverSessionStore) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Warn().Err(err).Msg("session store down, switching to fallback")
	}
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

func (r *FailoverSessionStore) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("session store recovered")
	}
}

// failed reports whether err means primary is unhealthy. A missing session is an answer.
func failed(err error) bool {
	return err != nil && !errors.Is(err, booking.ErrSessionNotFound)
}

func (r *FailoverSessionStore) Get(ctx context.Context, id string) (*booking.Session, error) {
	if r.usePrimary() {
		session, err := r.primary.Get(ctx, id)
		if !failed(err) {
			r.markUp()
			if errors.Is(err, booking.ErrSessionNotFound) {
				// The session may have been created while primary was down.
				if fb, fbErr := r.fallback.Get(ctx, id); fbErr == nil {
					return fb, nil
				}
			}
			return session, err
		}
		r.markDown(err)
	}
	return r.fallback.Get(ctx, id)
}

func (r *FailoverSessionStore) Save(ctx context.Context, session *booking.Session) error {
	if r.usePrimary() {
		err := r.primary.Save(ctx, session)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.Save(ctx, session)
}

func (r *FailoverSessionStore) Delete(ctx context.Context, id string) error {
	_ = r.fallback.Delete(ctx, id)
	if r.usePrimary() {
		err := r.primary.Delete(ctx, id)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return nil
}
