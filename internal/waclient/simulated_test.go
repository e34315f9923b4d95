package waclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextEvent(t *testing.T, c Client) Event {
	t.Helper()
	select {
	case ev, ok := <-c.Events():
		require.True(t, ok, "event stream closed unexpectedly")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestSimulatedFreshClientEmitsPairingCode(t *testing.T) {
	dialer := NewSimDialer()
	client, err := dialer.Dial(context.Background(), "u1", t.TempDir())
	require.NoError(t, err)

	require.NoError(t, client.Connect(context.Background()))

	ev := nextEvent(t, client)
	assert.Equal(t, EventPairingCode, ev.Kind)
	assert.NotEmpty(t, ev.Code)
}

func TestSimulatedPairingPersistsCredentials(t *testing.T) {
	dir := t.TempDir()
	dialer := NewSimDialer()
	ctx := context.Background()

	client, err := dialer.Dial(ctx, "u1", dir)
	require.NoError(t, err)
	require.NoError(t, client.Connect(ctx))
	nextEvent(t, client) // pairing code

	sim := dialer.Client("u1")
	profile := Profile{DisplayName: "Alice", Phone: "+4917", Platform: "web"}
	require.NoError(t, sim.CompletePairing(profile))
	assert.Equal(t, EventAuthenticated, nextEvent(t, client).Kind)

	ready := nextEvent(t, client)
	assert.Equal(t, EventReady, ready.Kind)
	assert.Equal(t, profile, ready.Profile)

	require.NoError(t, client.Disconnect(ctx))

	// A second client over the same storage dir resumes without pairing.
	resumed, err := dialer.Dial(ctx, "u1", dir)
	require.NoError(t, err)
	require.NoError(t, resumed.Connect(ctx))

	ev := nextEvent(t, resumed)
	assert.Equal(t, EventReady, ev.Kind)
	assert.Equal(t, profile, ev.Profile)
}

func TestSimulatedSendRequiresReady(t *testing.T) {
	dialer := NewSimDialer()
	ctx := context.Background()

	client, err := dialer.Dial(ctx, "u1", t.TempDir())
	require.NoError(t, err)
	require.NoError(t, client.Connect(ctx))

	assert.Error(t, client.SendMessage(ctx, "+4917", "too early"))

	sim := dialer.Client("u1")
	require.NoError(t, sim.CompletePairing(Profile{DisplayName: "Alice"}))
	require.NoError(t, client.SendMessage(ctx, "+4917", "hello"))
	assert.Equal(t, []SentMessage{{To: "+4917", Body: "hello"}}, sim.Sent())
}

func TestSimulatedDisconnectClosesStream(t *testing.T) {
	dialer := NewSimDialer()
	ctx := context.Background()

	client, err := dialer.Dial(ctx, "u1", t.TempDir())
	require.NoError(t, err)
	require.NoError(t, client.Connect(ctx))
	require.NoError(t, client.Disconnect(ctx))
	require.NoError(t, client.Disconnect(ctx), "disconnect is idempotent")

	// Drain: the pairing code emitted by Connect may still be buffered, but
	// the stream must end.
	for {
		ev, ok := <-client.Events()
		if !ok {
			break
		}
		assert.Equal(t, EventPairingCode, ev.Kind)
	}

	sim := dialer.Client("u1")
	sim.Drop("after close") // must not panic on a closed stream
	assert.True(t, sim.Closed())
}
