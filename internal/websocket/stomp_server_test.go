package websocket

import (
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/fasthttp/websocket"
	"github.com/go-stomp/stomp/v3/frame"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

// stompServer is a minimal broker used to drive the client in tests.
type stompServer struct {
	url string

	mu        sync.Mutex
	conns     map[*websocket.Conn]map[string]string // conn -> subscription id -> destination
	connects  int
	lastAuth  string
	heartbeat string
	messageID int
}

func startStompServer(t *testing.T) *stompServer {
	t.Helper()
	s := &stompServer{
		conns:     make(map[*websocket.Conn]map[string]string),
		heartbeat: "0,0",
	}

	upgrader := websocket.FastHTTPUpgrader{
		CheckOrigin: func(ctx *fasthttp.RequestCtx) bool { return true },
	}
	// hijacked conns must be closable from DropAll
	server := &fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			_ = upgrader.Upgrade(ctx, s.serve)
		},
		KeepHijackedConns: true,
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go server.Serve(ln)
	t.Cleanup(func() {
		s.DropAll()
		_ = server.Shutdown()
	})

	s.url = "ws://" + ln.Addr().String() + "/websocket"
	return s
}

func (s *stompServer) serve(conn *websocket.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		f, err := decodeFrame(data)
		if err != nil || f == nil {
			continue
		}

		switch f.Command {
		case frame.CONNECT:
			s.mu.Lock()
			s.connects++
			s.lastAuth = f.Header.Get(headerAuthorization)
			s.conns[conn] = make(map[string]string)
			s.write(conn, frame.New(frame.CONNECTED, frame.Version, stompVersion, frame.HeartBeat, s.heartbeat))
			s.mu.Unlock()
		case frame.SUBSCRIBE:
			s.mu.Lock()
			s.conns[conn][f.Header.Get(frame.Id)] = f.Header.Get(frame.Destination)
			s.mu.Unlock()
		case frame.UNSUBSCRIBE:
			s.mu.Lock()
			delete(s.conns[conn], f.Header.Get(frame.Id))
			s.mu.Unlock()
		case frame.DISCONNECT:
			return
		}
	}
}

func (s *stompServer) write(conn *websocket.Conn, f *frame.Frame) {
	data, err := encodeFrame(f)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

// Send delivers body to every live subscription on destination and returns
// how many MESSAGE frames were written.
func (s *stompServer) Send(destination string, body string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	sent := 0
	for conn, subs := range s.conns {
		for id, dest := range subs {
			if dest != destination {
				continue
			}
			s.messageID++
			f := frame.New(frame.MESSAGE,
				frame.Destination, dest,
				frame.Subscription, id,
				frame.MessageId, strconv.Itoa(s.messageID),
			)
			f.Body = []byte(body)
			s.write(conn, f)
			sent++
		}
	}
	return sent
}

func (s *stompServer) SendError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		s.write(conn, frame.New(frame.ERROR, frame.Message, message))
	}
}

// DropAll closes every connection without a STOMP goodbye.
func (s *stompServer) DropAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}

func (s *stompServer) Subscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, subs := range s.conns {
		n += len(subs)
	}
	return n
}

func (s *stompServer) Connects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

func (s *stompServer) LastAuthorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth
}
