package events

import (
	"testing"

	"github.com/stretchr/testify/require"

	"learnchain/core/types"
)

func TestBroadcasterDeliversInOrder(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(4)
	defer cancel()

	b.Emit(Wrap(&types.Event{Type: "a", Attributes: map[string]string{"k": "1"}}))
	b.Emit(Wrap(&types.Event{Type: "b"}))

	first := <-ch
	second := <-ch
	require.Equal(t, uint64(1), first.Sequence)
	require.Equal(t, "a", first.Event.Type)
	require.Equal(t, "1", first.Event.Attributes["k"])
	require.Equal(t, uint64(2), second.Sequence)
	require.Equal(t, uint64(2), b.Sequence())
}

func TestBroadcasterDropsForSlowSubscriber(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(1)
	b.Emit(Wrap(&types.Event{Type: "a"}))
	b.Emit(Wrap(&types.Event{Type: "b"}))
	cancel()
	cancel()

	got := <-ch
	require.Equal(t, "a", got.Event.Type)
	_, open := <-ch
	require.False(t, open)
}

func TestBroadcasterIgnoresBareEvents(t *testing.T) {
	b := NewBroadcaster()
	b.Emit(bare{})
	require.Zero(t, b.Sequence())
}

type bare struct{}

func (bare) EventType() string { return "bare" }
