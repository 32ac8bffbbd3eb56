package events

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusPublish(t *testing.T) {
	logger := zerolog.Nop()
	bus := NewEventBus(&logger)

	var got []Event
	bus.Subscribe("booking.chain.completed", func(e Event) error {
		got = append(got, e)
		return nil
	})
	bus.Subscribe("booking.chain.completed", func(e Event) error {
		return errors.New("second handler fails")
	})

	bus.Publish(Event{Type: "booking.chain.completed", Payload: []byte(`{}`)})
	bus.Publish(Event{Type: "booking.chain.failed"})
	bus.Publish(Event{Type: "booking.chain.completed"})

	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
	assert.False(t, got[0].CreatedAt.IsZero())
	assert.JSONEq(t, `{}`, string(got[0].Payload))
}

func TestEventBusNilLogger(t *testing.T) {
	bus := NewEventBus(nil)
	called := false
	bus.Subscribe("x", func(Event) error { called = true; return errors.New("ignored") })

	bus.Publish(Event{Type: "x"})
	assert.True(t, called)
}
