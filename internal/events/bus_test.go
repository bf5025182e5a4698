package events

import (
	"testing"

	"github.com/stretchr/testify/require"

	"investigator/pkg/types"
)

func TestEmitFansOutInRegistrationOrder(t *testing.T) {
	bus := New()
	var order []string
	bus.Subscribe(func(e types.Event) { order = append(order, "a:"+string(e.Type)) })
	bus.Subscribe(func(e types.Event) { order = append(order, "b:"+string(e.Type)) })

	bus.Emit(types.EventSessionStart, nil)

	require.Equal(t, []string{"a:session_start", "b:session_start"}, order)
}

func TestPanicingSubscriberDoesNotBreakBus(t *testing.T) {
	bus := New()
	var secondCalled bool
	bus.Subscribe(func(types.Event) { panic("boom") })
	bus.Subscribe(func(types.Event) { secondCalled = true })

	require.NotPanics(t, func() { bus.Emit(types.EventDone, nil) })
	require.True(t, secondCalled)
}

func TestBufferingCapturesAndDrains(t *testing.T) {
	bus := New()
	bus.Emit(types.EventThinking, nil) // not buffered yet
	bus.SetBuffering(true)
	bus.Emit(types.EventToolCall, map[string]interface{}{"name": "read_file"})
	bus.Emit(types.EventToolResult, nil)

	drained := bus.Drain()
	require.Len(t, drained, 2)
	require.Equal(t, types.EventToolCall, drained[0].Type)

	require.Empty(t, bus.Drain())
}
