package control

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-offline-cache/internal/metrics"
)

func receive(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case event := <-events:
		return event
	default:
		require.FailNow(t, "expected an event")
		return Event{}
	}
}

func TestHostState_ConnectivityTransitions(t *testing.T) {
	state := NewHostState()
	events, unsubscribe := state.Subscribe(4)
	defer unsubscribe()

	assert.True(t, state.IsOnline())

	state.SetOnline(true)
	assert.Empty(t, events, "no event without a transition")

	state.SetOnline(false)
	assert.False(t, state.IsOnline())
	assert.Equal(t, Event{Type: EventOffline}, receive(t, events))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.Online))

	state.SetOnline(true)
	assert.Equal(t, Event{Type: EventOnline}, receive(t, events))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Online))
}

func TestHostState_UpdateAvailable(t *testing.T) {
	state := NewHostState()
	events, unsubscribe := state.Subscribe(4)
	defer unsubscribe()

	state.UpdateAvailable("v2")
	assert.True(t, state.UpdateAvailableFlag())
	assert.Equal(t, Event{Type: EventUpdateAvailable, Version: "v2"}, receive(t, events))

	state.ControllerChanged("v2")
	assert.Equal(t, Event{Type: EventControllerChange, Version: "v2"}, receive(t, events))

	state.ClearUpdateAvailable()
	assert.False(t, state.UpdateAvailableFlag())
}

func TestHostState_SlowSubscriberDoesNotBlock(t *testing.T) {
	state := NewHostState()
	events, unsubscribe := state.Subscribe(1)
	defer unsubscribe()

	state.UpdateAvailable("v2")
	state.RequestReload()

	assert.Len(t, events, 1)
	assert.Equal(t, EventUpdateAvailable, receive(t, events).Type)
}

func TestHostState_Unsubscribe(t *testing.T) {
	state := NewHostState()
	events, unsubscribe := state.Subscribe(1)

	unsubscribe()
	unsubscribe()

	state.RequestReload()
	_, ok := <-events
	assert.False(t, ok)
}
