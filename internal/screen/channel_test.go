package screen

import (
	"fmt"
	"sync"

	"github.com/wallboard/wallboard_screen/internal/stream"
	"github.com/wallboard/wallboard_screen/internal/websocket"
)

// mockChannel stands in for the websocket client. Connect reaches CONNECTED
// synchronously and Reconnect simulates a dropped link coming back.
type mockChannel struct {
	state *stream.Value[websocket.ConnectionState]

	mu          sync.Mutex
	running     bool
	nextID      int
	subs        map[string]mockSubscription
	connects    int
	disconnects int
	subscribes  []string
}

type mockSubscription struct {
	destination string
	handler     func([]byte)
}

func newMockChannel() *mockChannel {
	return &mockChannel{
		state: stream.NewValue(websocket.StateDisconnected),
		subs:  make(map[string]mockSubscription),
	}
}

func (c *mockChannel) ConnectionState() *stream.Value[websocket.ConnectionState] {
	return c.state
}

func (c *mockChannel) Connect() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return websocket.ErrAlreadyStarted
	}
	c.running = true
	c.connects++
	c.mu.Unlock()

	c.state.Set(websocket.StateConnecting)
	c.state.Set(websocket.StateConnected)
	return nil
}

func (c *mockChannel) Disconnect() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.disconnects++
	c.subs = make(map[string]mockSubscription)
	c.mu.Unlock()

	c.state.Set(websocket.StateDisconnected)
}

func (c *mockChannel) Subscribe(destination string, handler func([]byte)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.state.Get() != websocket.StateConnected {
		return "", websocket.ErrNotConnected
	}
	c.nextID++
	id := fmt.Sprintf("sub-%d", c.nextID)
	c.subs[id] = mockSubscription{destination: destination, handler: handler}
	c.subscribes = append(c.subscribes, destination)
	return id, nil
}

func (c *mockChannel) Unsubscribe(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return websocket.ErrNotConnected
	}
	delete(c.subs, id)
	return nil
}

// Reconnect drops every subscription and goes ERROR, CONNECTING, CONNECTED.
func (c *mockChannel) Reconnect() {
	c.mu.Lock()
	c.subs = make(map[string]mockSubscription)
	c.mu.Unlock()

	c.state.Set(websocket.StateError)
	c.state.Set(websocket.StateConnecting)
	c.state.Set(websocket.StateConnected)
}

// Send delivers body to every subscription on destination and returns how
// many handlers it reached.
func (c *mockChannel) Send(destination string, body string) int {
	c.mu.Lock()
	var handlers []func([]byte)
	for _, sub := range c.subs {
		if sub.destination == destination {
			handlers = append(handlers, sub.handler)
		}
	}
	c.mu.Unlock()

	for _, handler := range handlers {
		handler([]byte(body))
	}
	return len(handlers)
}

func (c *mockChannel) Subscribed(destination string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, sub := range c.subs {
		if sub.destination == destination {
			count++
		}
	}
	return count
}

func (c *mockChannel) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *mockChannel) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}

func (c *mockChannel) Disconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}
