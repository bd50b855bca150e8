package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wallboard/wallboard_screen/internal/stream"
	"github.com/wallboard/wallboard_screen/internal/user"
)

const (
	writeTimeout            = 10 * time.Second
	maxMessageSize          = 1024 * 1024 // 1MB
	defaultReconnectDelay   = 5 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
	// missed server heart-beats tolerated before the link counts as dead
	heartbeatTolerance = 3
)

var (
	ErrAlreadyStarted = errors.New("channel already started")
	ErrNotConnected   = errors.New("channel not connected")
	ErrBrokerError    = errors.New("broker sent error frame")
)

type Config struct {
	URL               string        `mapstructure:"url"`
	HeartbeatIncoming time.Duration `mapstructure:"heartbeat_incoming"`
	HeartbeatOutgoing time.Duration `mapstructure:"heartbeat_outgoing"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	HandshakeTimeout  time.Duration `mapstructure:"handshake_timeout"`
}

// Client is a receive-only STOMP session over a websocket. It never publishes
// application data. After a failure it waits ReconnectDelay and dials again
// until Disconnect is called; subscriptions do not survive a reconnect.
type Client struct {
	config Config
	token  string
	dialer *websocket.Dialer
	state  *stream.Value[ConnectionState]

	mu       sync.Mutex
	running  bool
	stopping bool
	cancel   context.CancelFunc
	done     chan struct{}
	session  *session
}

func NewClient(config Config, token string) *Client {
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = defaultReconnectDelay
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = defaultHandshakeTimeout
	}
	return &Client{
		config: config,
		token:  user.AuthorizationHeader(token),
		dialer: &websocket.Dialer{
			HandshakeTimeout: config.HandshakeTimeout,
		},
		state: stream.NewValue(StateDisconnected),
	}
}

// ConnectionState replays the latest state to every new watcher.
func (c *Client) ConnectionState() *stream.Value[ConnectionState] {
	return c.state
}

// Connect starts the session in the background. Progress is reported on
// ConnectionState.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.running = true
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	c.setState(StateConnecting)
	go c.run(ctx, done)
	return nil
}

// Disconnect tears the session down and returns once DISCONNECTED has been
// emitted. It is a no-op when not started. It must not be called from a
// subscription handler.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.stopping = true
	cancel := c.cancel
	done := c.done
	sess := c.session
	c.mu.Unlock()

	if sess != nil {
		if err := sess.send(disconnectFrame()); err != nil {
			log.Debug().Err(err).Msg("[STOMP] Failed to send DISCONNECT")
		}
	}
	cancel()
	<-done
}

// Subscribe registers handler for MESSAGE frames on destination and returns
// the subscription id.
func (c *Client) Subscribe(destination string, handler func(body []byte)) (string, error) {
	sess := c.currentSession()
	if sess == nil {
		return "", ErrNotConnected
	}

	id := "sub-" + uuid.NewString()
	sess.addHandler(id, destination, handler)
	if err := sess.send(subscribeFrame(id, destination)); err != nil {
		sess.removeHandler(id)
		return "", fmt.Errorf("failed to subscribe to %s: %w", destination, err)
	}

	log.Debug().Str("destination", destination).Str("subscriptionId", id).Msg("[STOMP] Subscribed")
	return id, nil
}

// Unsubscribe is a no-op for ids the current session does not know, including
// ids from a previous connection.
func (c *Client) Unsubscribe(id string) error {
	sess := c.currentSession()
	if sess == nil {
		return ErrNotConnected
	}
	destination, ok := sess.removeHandler(id)
	if !ok {
		return nil
	}
	if err := sess.send(unsubscribeFrame(id)); err != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", destination, err)
	}

	log.Debug().Str("destination", destination).Str("subscriptionId", id).Msg("[STOMP] Unsubscribed")
	return nil
}

func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		c.running = false
		c.stopping = false
		c.session = nil
		c.mu.Unlock()
		c.setState(StateDisconnected)
		close(done)
	}()

	for attempt := 1; ; attempt++ {
		if attempt > 1 {
			c.setState(StateConnecting)
		}

		sess, err := c.open(ctx)
		if err == nil {
			c.setSession(sess)
			c.setState(StateConnected)
			err = sess.serve(ctx)
			c.setSession(nil)
		}
		if ctx.Err() != nil || c.isStopping() {
			return
		}

		log.Warn().Err(err).Int("attempt", attempt).Dur("retryIn", c.config.ReconnectDelay).Msg("[WS] Connection lost")
		c.setState(StateError)

		timer := time.NewTimer(c.config.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (c *Client) open(ctx context.Context) (*session, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.config.HandshakeTimeout)
	defer cancel()

	conn, _, err := c.dialer.DialContext(dialCtx, c.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", c.config.URL, err)
	}

	success := false
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		if !success {
			conn.Close()
		}
	}()

	sess := newSession(conn)
	if err := sess.send(connectFrame(hostOf(c.config.URL), c.token, c.config.HeartbeatOutgoing, c.config.HeartbeatIncoming)); err != nil {
		return nil, err
	}

	conn.SetReadDeadline(time.Now().Add(c.config.HandshakeTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to read CONNECTED frame: %w", err)
	}
	f, err := decodeFrame(data)
	if err != nil {
		return nil, err
	}
	switch {
	case f == nil:
		return nil, fmt.Errorf("unexpected heart-beat before CONNECTED")
	case f.Command == frame.ERROR:
		return nil, fmt.Errorf("%w: %s", ErrBrokerError, f.Header.Get(frame.Message))
	case f.Command != frame.CONNECTED:
		return nil, fmt.Errorf("unexpected %s frame before CONNECTED", f.Command)
	}
	conn.SetReadDeadline(time.Time{})

	sx, sy := parseHeartbeat(f.Header.Get(frame.HeartBeat))
	sess.outgoing, sess.incoming = negotiateHeartbeat(c.config.HeartbeatOutgoing, c.config.HeartbeatIncoming, sx, sy)

	log.Info().
		Str("url", c.config.URL).
		Str("version", f.Header.Get(frame.Version)).
		Dur("heartbeatOut", sess.outgoing).
		Dur("heartbeatIn", sess.incoming).
		Msg("[WS] Connected")

	success = true
	return sess, nil
}

func (c *Client) setState(state ConnectionState) {
	if c.state.Get() == state {
		return
	}
	log.Debug().Str("state", state.String()).Msg("[WS] Connection state changed")
	c.state.Set(state)
}

func (c *Client) setSession(sess *session) {
	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()
}

func (c *Client) isStopping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopping
}

func (c *Client) currentSession() *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

type subscriptionEntry struct {
	destination string
	handler     func([]byte)
}

// session is one websocket connection. Its handlers die with it.
type session struct {
	conn     *websocket.Conn
	outgoing time.Duration
	incoming time.Duration

	writeMu   sync.Mutex
	mu        sync.RWMutex
	handlers  map[string]subscriptionEntry
	closeOnce sync.Once
}

func newSession(conn *websocket.Conn) *session {
	conn.SetReadLimit(maxMessageSize)
	return &session{
		conn:     conn,
		handlers: make(map[string]subscriptionEntry),
	}
}

func (s *session) serve(ctx context.Context) error {
	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-serveCtx.Done()
		s.close()
	}()
	if s.outgoing > 0 {
		go s.heartbeatLoop(serveCtx)
	}

	for {
		if s.incoming > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.incoming * heartbeatTolerance))
		}
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read failed: %w", err)
		}

		f, err := decodeFrame(data)
		if err != nil {
			log.Warn().Err(err).Msg("[STOMP] Dropping undecodable frame")
			continue
		}
		if f == nil {
			continue
		}

		switch f.Command {
		case frame.MESSAGE:
			s.deliver(f)
		case frame.ERROR:
			return fmt.Errorf("%w: %s", ErrBrokerError, f.Header.Get(frame.Message))
		default:
			log.Debug().Str("command", f.Command).Msg("[STOMP] Ignoring frame")
		}
	}
}

func (s *session) deliver(f *frame.Frame) {
	id := f.Header.Get(frame.Subscription)
	s.mu.RLock()
	entry, ok := s.handlers[id]
	s.mu.RUnlock()
	if !ok {
		log.Debug().
			Str("subscriptionId", id).
			Str("destination", f.Header.Get(frame.Destination)).
			Msg("[STOMP] Message for unknown subscription dropped")
		return
	}
	entry.handler(f.Body)
}

func (s *session) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(s.outgoing)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.write([]byte("\n")); err != nil {
				log.Debug().Err(err).Msg("[STOMP] Heart-beat failed")
				return
			}
		}
	}
}

func (s *session) addHandler(id, destination string, handler func([]byte)) {
	s.mu.Lock()
	s.handlers[id] = subscriptionEntry{destination: destination, handler: handler}
	s.mu.Unlock()
}

func (s *session) removeHandler(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.handlers[id]
	if ok {
		delete(s.handlers, id)
	}
	return entry.destination, ok
}

func (s *session) send(f *frame.Frame) error {
	data, err := encodeFrame(f)
	if err != nil {
		return err
	}
	return s.write(data)
}

func (s *session) write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		s.conn.Close()
	})
}
