package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"slotbook/internal/booking"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, id string) (*booking.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Session), args.Error(1)
}

func (m *mockStore) Save(ctx context.Context, s *booking.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestFailoverSessionStore(t *testing.T) {
	primary := new(mockStore)
	fallback := new(mockStore)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverSessionStore(primary, fallback, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		session := &booking.Session{ID: "s1"}
		primary.On("Get", ctx, "s1").Return(session, nil).Once()

		got, err := repo.Get(ctx, "s1")
		assert.NoError(t, err)
		assert.Equal(t, session, got)
		primary.AssertExpectations(t)
	})

	t.Run("NotFoundIsNotAFailure", func(t *testing.T) {
		primary.On("Get", ctx, "missing").Return(nil, booking.ErrSessionNotFound).Once()
		fallback.On("Get", ctx, "missing").Return(nil, booking.ErrSessionNotFound).Once()

		_, err := repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, booking.ErrSessionNotFound)
		assert.False(t, repo.Degraded())
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		session := &booking.Session{ID: "s2"}
		primary.On("Get", ctx, "s2").Return(nil, errors.New("fail")).Once()
		fallback.On("Get", ctx, "s2").Return(session, nil).Once()

		got, err := repo.Get(ctx, "s2")
		assert.NoError(t, err)
		assert.Equal(t, session, got)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("DownSkipsPrimary", func(t *testing.T) {
		session := &booking.Session{ID: "s3"}
		fallback.On("Save", ctx, session).Return(nil).Once()

		assert.NoError(t, repo.Save(ctx, session))
		primary.AssertNotCalled(t, "Save", ctx, session)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck = time.Now().Add(-2 * time.Minute)

		session := &booking.Session{ID: "s4"}
		primary.On("Get", ctx, "s4").Return(session, nil).Once()

		got, err := repo.Get(ctx, "s4")
		assert.NoError(t, err)
		assert.Equal(t, session, got)
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("DeleteClearsBoth", func(t *testing.T) {
		fallback.On("Delete", ctx, "s5").Return(nil).Once()
		primary.On("Delete", ctx, "s5").Return(nil).Once()

		assert.NoError(t, repo.Delete(ctx, "s5"))
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})
}
