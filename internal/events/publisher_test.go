package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisherDeliversOnTenantChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	sub := client.Subscribe(ctx, ChannelPrefix+"acme")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	ev := New("acme", "post-role", []string{"teller"})
	ev.Note = "role still assigned to 2 users"
	require.NoError(t, NewRedisPublisher(client).Publish(ctx, ev))

	msg, err := sub.ReceiveTimeout(ctx, 2*time.Second)
	require.NoError(t, err)
	payload, ok := msg.(*redis.Message)
	require.True(t, ok)
	require.Equal(t, ChannelPrefix+"acme", payload.Channel)

	var got Event
	require.NoError(t, json.Unmarshal([]byte(payload.Payload), &got))
	require.Equal(t, ev.ID, got.ID)
	require.Equal(t, "acme", got.Tenant)
	require.Equal(t, "post-role", got.Selector)
	require.Equal(t, []string{"teller"}, got.Affected)
	require.Equal(t, ev.Note, got.Note)
}

func TestEventsCarryIdentifiersOnly(t *testing.T) {
	ev := New("acme", "put-user-password", []string{"u1"})
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	require.NotContains(t, fields, "payload")
	require.Contains(t, fields, "affected_identifiers")
	require.Contains(t, fields, "operation_selector")
}

func TestNewAssignsFreshIdentity(t *testing.T) {
	a := New("acme", "post-role", []string{"r1"})
	b := New("acme", "post-role", []string{"r1"})
	require.NotEqual(t, a.ID, b.ID)
	require.False(t, a.At.IsZero())
}
