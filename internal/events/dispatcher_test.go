package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_PublishReachesSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var got []Event
	d.Subscribe(EventRolesChanged, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})

	event := NewEvent(EventRolesChanged, "a1", RolesChangedPayload{Role: "pro-user", Action: RoleGranted})
	require.NoError(t, d.Publish(context.Background(), event))

	require.Len(t, got, 1)
	assert.Equal(t, event.ID, got[0].ID)
	assert.Equal(t, "a1", got[0].Identity)
}

func TestDispatcher_HandlerErrorDoesNotBlockOthers(t *testing.T) {
	d := NewInMemoryDispatcher()

	second := false
	d.Subscribe(EventExchangeTokenCreated, func(_ context.Context, _ Event) error {
		return errors.New("boom")
	})
	d.Subscribe(EventExchangeTokenCreated, func(_ context.Context, _ Event) error {
		second = true
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventExchangeTokenCreated, "a@b.com", nil))
	require.NoError(t, err)
	assert.True(t, second)
}

func TestDispatcher_UnsubscribedTypeIsIgnored(t *testing.T) {
	d := NewInMemoryDispatcher()

	called := false
	d.Subscribe(EventRolesChanged, func(_ context.Context, _ Event) error {
		called = true
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), NewEvent(EventSubscriptionRecorded, "a1", nil)))
	assert.False(t, called)
}

func TestNewEvent_StampsMetadata(t *testing.T) {
	e := NewEvent(EventRolesChanged, "a1", nil)
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, EventRolesChanged, e.Type)
}
