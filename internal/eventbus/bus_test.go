package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/steptracker/internal/subscriber"
)

var _ subscriber.Handle = (*Bus)(nil)

func TestBusDeliversToRegisteredCallbacks(t *testing.T) {
	bus := New()
	var first, second []int64
	a, b := NewToken(), NewToken()
	bus.Register(a, func(c int64) { first = append(first, c) })
	bus.Register(b, func(c int64) { second = append(second, c) })

	require.NoError(t, bus.OnStepUpdate(context.Background(), 12))
	bus.Unregister(a)
	require.NoError(t, bus.OnStepUpdate(context.Background(), 15))

	require.Equal(t, []int64{12}, first)
	require.Equal(t, []int64{12, 15}, second)
	require.Equal(t, 1, bus.Len())
}

func TestBusRejectsDuplicateToken(t *testing.T) {
	bus := New()
	token := NewToken()
	bus.Register(token, func(int64) {})

	require.Panics(t, func() { bus.Register(token, func(int64) {}) })
}

func TestBusUnregisterUnknownTokenIsSafe(t *testing.T) {
	bus := New()
	require.NotPanics(t, func() { bus.Unregister(NewToken()) })
}

func TestBusPropagatesCallbackPanics(t *testing.T) {
	bus := New()
	bus.Register(NewToken(), func(int64) { panic("listener bug") })

	require.Panics(t, func() { _ = bus.OnStepUpdate(context.Background(), 1) })
}

func TestTokensAreDistinct(t *testing.T) {
	a, b := NewToken(), NewToken()
	require.NotEqual(t, a, b)
	require.NotEmpty(t, a.String())
}
