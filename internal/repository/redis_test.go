package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotbook/internal/backend"
	"slotbook/internal/booking"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisSessionStore(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisSessionStore(client, 10*time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, booking.ErrSessionNotFound)

	session := booking.NewSession("glow")
	session.Form.SelectCategory("hair")
	session.Form.ToggleService("cut")
	session.SetStep(booking.StepProfessional)
	require.NoError(t, store.Save(ctx, session))

	got, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, booking.StepProfessional, got.Step)
	assert.Equal(t, []string{"cut"}, got.Form.ServiceIDs)
	assert.Equal(t, "no_preference", got.Form.WorkerID)

	assert.Equal(t, 10*time.Minute, mr.TTL(sessionKey(session.ID)))
	mr.FastForward(11 * time.Minute)
	_, err = store.Get(ctx, session.ID)
	assert.ErrorIs(t, err, booking.ErrSessionNotFound)

	require.NoError(t, store.Save(ctx, session))
	require.NoError(t, store.Delete(ctx, session.ID))
	_, err = store.Get(ctx, session.ID)
	assert.ErrorIs(t, err, booking.ErrSessionNotFound)
}

func TestRedisSessionStoreDown(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisSessionStore(client, time.Minute)
	mr.Close()

	_, err := store.Get(context.Background(), "s1")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, booking.ErrSessionNotFound))
}

type countingStore struct {
	backend.Store
	calls int
	data  *backend.CompanyData
}

func (c *countingStore) FetchCompanyAndStaff(context.Context, string) (*backend.CompanyData, error) {
	c.calls++
	return c.data, nil
}

func TestCachedStore(t *testing.T) {
	mr, client := newTestRedis(t)
	inner := &countingStore{data: &backend.CompanyData{Company: backend.Company{ID: "co", Identifier: "glow"}}}
	store := NewCachedStore(inner, client, 30*time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := store.FetchCompanyAndStaff(ctx, "glow")
		require.NoError(t, err)
		assert.Equal(t, "co", got.Company.ID)
	}
	assert.Equal(t, 1, inner.calls)

	store.Invalidate(ctx, "glow")
	_, err := store.FetchCompanyAndStaff(ctx, "glow")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)

	mr.FastForward(time.Minute)
	_, err = store.FetchCompanyAndStaff(ctx, "glow")
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestCachedStoreDisabled(t *testing.T) {
	inner := &countingStore{data: &backend.CompanyData{}}
	store := NewCachedStore(inner, nil, time.Minute)

	_, _ = store.FetchCompanyAndStaff(context.Background(), "glow")
	_, _ = store.FetchCompanyAndStaff(context.Background(), "glow")
	store.Invalidate(context.Background(), "glow")
	assert.Equal(t, 2, inner.calls)
}
