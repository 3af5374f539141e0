package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishContinuesAfterHandlerFailure(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var calls []string
	d.Subscribe(EventSLAEscalated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("push gateway down")
	})
	d.Subscribe(EventSLAEscalated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventSLAWarning, func(context.Context, Event) error {
		calls = append(calls, "warning")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventSLAEscalated, TicketID: "t-1"})

	assert.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
}
