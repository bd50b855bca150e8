package websocket

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 3 * time.Second
	tick    = 10 * time.Millisecond
)

type stateRecorder struct {
	mu     sync.Mutex
	states []ConnectionState
}

func recordStates(c *Client) *stateRecorder {
	r := &stateRecorder{}
	c.ConnectionState().Watch(func(s ConnectionState) {
		r.mu.Lock()
		r.states = append(r.states, s)
		r.mu.Unlock()
	})
	return r
}

func (r *stateRecorder) Snapshot() []ConnectionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ConnectionState, len(r.states))
	copy(out, r.states)
	return out
}

func (r *stateRecorder) Count(state ConnectionState) int {
	n := 0
	for _, s := range r.Snapshot() {
		if s == state {
			n++
		}
	}
	return n
}

func newTestClient(url string) *Client {
	return NewClient(Config{
		URL:            url,
		ReconnectDelay: 20 * time.Millisecond,
	}, "")
}

func waitForState(t *testing.T, c *Client, state ConnectionState) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.ConnectionState().Get() == state
	}, waitFor, tick, "state never became %s", state)
}

type inbox struct {
	mu     sync.Mutex
	bodies []string
}

func (i *inbox) handle(body []byte) {
	i.mu.Lock()
	i.bodies = append(i.bodies, string(body))
	i.mu.Unlock()
}

func (i *inbox) Bodies() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.bodies...)
}

func TestClient_Connect_ShouldReachConnectedThroughConnecting(t *testing.T) {
	// given
	server := startStompServer(t)
	client := newTestClient(server.url)
	states := recordStates(client)

	// when
	require.NoError(t, client.Connect())
	waitForState(t, client, StateConnected)
	client.Disconnect()

	// then
	assert.Equal(t, []ConnectionState{StateDisconnected, StateConnecting, StateConnected, StateDisconnected}, states.Snapshot())
}

func TestClient_Connect_Twice_ShouldFail(t *testing.T) {
	// given
	server := startStompServer(t)
	client := newTestClient(server.url)
	require.NoError(t, client.Connect())
	defer client.Disconnect()

	// when
	err := client.Connect()

	// then
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestClient_Connect_ShouldSendBearerToken(t *testing.T) {
	// given
	server := startStompServer(t)
	client := NewClient(Config{URL: server.url}, "secret")

	// when
	require.NoError(t, client.Connect())
	waitForState(t, client, StateConnected)
	defer client.Disconnect()

	// then
	assert.Equal(t, "Bearer secret", server.LastAuthorization())
}

func TestClient_Subscribe_ShouldDeliverMessageBodies(t *testing.T) {
	// given
	server := startStompServer(t)
	client := newTestClient(server.url)
	require.NoError(t, client.Connect())
	defer client.Disconnect()
	waitForState(t, client, StateConnected)

	received := &inbox{}
	_, err := client.Subscribe("/user/abc123/queue/live", received.handle)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return server.Subscriptions() == 1 }, waitFor, tick)

	// when
	server.Send("/user/abc123/queue/live", `{"type":"GRID"}`)
	server.Send("/user/other/queue/live", `{"type":"GRID"}`)

	// then
	require.Eventually(t, func() bool { return len(received.Bodies()) == 1 }, waitFor, tick)
	assert.Equal(t, []string{`{"type":"GRID"}`}, received.Bodies())
}

func TestClient_Unsubscribe_ShouldStopDeliveryAndBeIdempotent(t *testing.T) {
	// given
	server := startStompServer(t)
	client := newTestClient(server.url)
	require.NoError(t, client.Connect())
	defer client.Disconnect()
	waitForState(t, client, StateConnected)

	received := &inbox{}
	id, err := client.Subscribe("/topic", received.handle)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return server.Subscriptions() == 1 }, waitFor, tick)

	// when
	require.NoError(t, client.Unsubscribe(id))
	require.NoError(t, client.Unsubscribe(id))

	// then
	require.Eventually(t, func() bool { return server.Subscriptions() == 0 }, waitFor, tick)
	assert.Equal(t, 0, server.Send("/topic", "x"))
	assert.Empty(t, received.Bodies())
}

func TestClient_Subscribe_WhenNotConnected_ShouldFail(t *testing.T) {
	client := newTestClient("ws://127.0.0.1:1/websocket")

	_, err := client.Subscribe("/topic", func([]byte) {})

	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, client.Unsubscribe("sub-1"), ErrNotConnected)
}

func TestClient_ConnectionDrop_ShouldReconnectWithFreshSubscriptions(t *testing.T) {
	// given
	server := startStompServer(t)
	client := newTestClient(server.url)
	states := recordStates(client)
	require.NoError(t, client.Connect())
	defer client.Disconnect()
	waitForState(t, client, StateConnected)

	oldID, err := client.Subscribe("/topic", func([]byte) {})
	require.NoError(t, err)

	// when
	server.DropAll()

	// then
	require.Eventually(t, func() bool {
		return server.Connects() == 2 && client.ConnectionState().Get() == StateConnected
	}, waitFor, tick)
	assert.Equal(t, 1, states.Count(StateError))
	assert.Equal(t, 0, server.Subscriptions())
	assert.NoError(t, client.Unsubscribe(oldID))

	snapshot := states.Snapshot()
	for i, s := range snapshot {
		if s == StateConnected {
			assert.Equal(t, StateConnecting, snapshot[i-1], "CONNECTED must follow CONNECTING")
		}
	}
}

func TestClient_ErrorFrame_ShouldMoveToErrorAndRecover(t *testing.T) {
	// given
	server := startStompServer(t)
	client := newTestClient(server.url)
	states := recordStates(client)
	require.NoError(t, client.Connect())
	defer client.Disconnect()
	waitForState(t, client, StateConnected)

	// when
	server.SendError("access denied")

	// then
	require.Eventually(t, func() bool {
		return states.Count(StateError) == 1 && client.ConnectionState().Get() == StateConnected
	}, waitFor, tick)
}

func TestClient_DialFailure_ShouldRetryUntilDisconnected(t *testing.T) {
	// given
	client := newTestClient("ws://127.0.0.1:1/websocket")
	states := recordStates(client)

	// when
	require.NoError(t, client.Connect())
	require.Eventually(t, func() bool { return states.Count(StateError) >= 2 }, waitFor, tick)
	client.Disconnect()

	// then
	assert.Equal(t, StateDisconnected, client.ConnectionState().Get())
	assert.Zero(t, states.Count(StateConnected))
}

func TestClient_Disconnect_WhenIdle_ShouldBeNoop(t *testing.T) {
	client := newTestClient("ws://127.0.0.1:1/websocket")
	states := recordStates(client)

	client.Disconnect()
	client.Disconnect()

	assert.Equal(t, []ConnectionState{StateDisconnected}, states.Snapshot())
}

func TestClient_Disconnect_ShouldAllowConnectAgain(t *testing.T) {
	// given
	server := startStompServer(t)
	client := newTestClient(server.url)
	require.NoError(t, client.Connect())
	waitForState(t, client, StateConnected)

	// when
	client.Disconnect()
	err := client.Connect()

	// then
	require.NoError(t, err)
	waitForState(t, client, StateConnected)
	client.Disconnect()
	assert.Equal(t, 2, server.Connects())
}
