package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dolverin/Anime-Library/pkg/events"
	"github.com/Dolverin/Anime-Library/pkg/interfaces"
	"github.com/Dolverin/Anime-Library/pkg/logger"
)

type testEvent struct {
	kind string
}

func (e testEvent) EventType() string   { return e.kind }
func (e testEvent) Timestamp() int64    { return 0 }
func (e testEvent) AggregateID() string { return "agg" }

func recorder(name string, seen *[]string) *events.HandlerFunc {
	return &events.HandlerFunc{Name: name, Fn: func(ctx context.Context, event interfaces.Event) error {
		*seen = append(*seen, name+":"+event.EventType())
		return nil
	}}
}

func TestPublishDeliversTypedThenWildcard(t *testing.T) {
	bus := events.NewInMemoryEventBus(logger.NewNoopLogger())
	var seen []string

	require.NoError(t, bus.Subscribe(interfaces.AllEvents, recorder("all", &seen)))
	require.NoError(t, bus.Subscribe("scan.completed", recorder("scan", &seen)))

	require.NoError(t, bus.Publish(context.Background(), testEvent{kind: "scan.completed"}))
	require.NoError(t, bus.Publish(context.Background(), testEvent{kind: "entry.created"}))

	assert.Equal(t, []string{"scan:scan.completed", "all:scan.completed", "all:entry.created"}, seen)
}

func TestHandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus := events.NewInMemoryEventBus(logger.NewNoopLogger())
	var seen []string

	failing := &events.HandlerFunc{Name: "failing", Fn: func(ctx context.Context, event interfaces.Event) error {
		return errors.New("boom")
	}}
	require.NoError(t, bus.Subscribe("x", failing))
	require.NoError(t, bus.Subscribe("x", recorder("after", &seen)))

	assert.NoError(t, bus.Publish(context.Background(), testEvent{kind: "x"}))
	assert.Equal(t, []string{"after:x"}, seen)
}

func TestUnsubscribeAndStop(t *testing.T) {
	bus := events.NewInMemoryEventBus(logger.NewNoopLogger())
	var seen []string
	h := recorder("h", &seen)

	require.NoError(t, bus.Subscribe("x", h))
	require.NoError(t, bus.Unsubscribe("x", h))
	require.NoError(t, bus.Publish(context.Background(), testEvent{kind: "x"}))
	assert.Empty(t, seen)

	require.NoError(t, bus.Subscribe("x", h))
	require.NoError(t, bus.Stop())
	require.NoError(t, bus.Publish(context.Background(), testEvent{kind: "x"}))
	assert.Empty(t, seen)
}
