package websocket

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
)

const (
	stompVersion        = "1.2"
	headerAuthorization = "Authorization"
)

func encodeFrame(f *frame.Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return nil, fmt.Errorf("failed to encode %s frame: %w", f.Command, err)
	}
	return buf.Bytes(), nil
}

// decodeFrame returns a nil frame for heart-beats.
func decodeFrame(data []byte) (*frame.Frame, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	f, err := frame.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return f, nil
}

func connectFrame(host, token string, outgoing, incoming time.Duration) *frame.Frame {
	f := frame.New(frame.CONNECT,
		frame.AcceptVersion, stompVersion,
		frame.Host, host,
		frame.HeartBeat, formatHeartbeat(outgoing, incoming),
	)
	if token != "" {
		f.Header.Add(headerAuthorization, token)
	}
	return f
}

func subscribeFrame(id, destination string) *frame.Frame {
	return frame.New(frame.SUBSCRIBE,
		frame.Id, id,
		frame.Destination, destination,
		frame.Ack, "auto",
	)
}

func unsubscribeFrame(id string) *frame.Frame {
	return frame.New(frame.UNSUBSCRIBE, frame.Id, id)
}

func disconnectFrame() *frame.Frame {
	return frame.New(frame.DISCONNECT)
}

func formatHeartbeat(outgoing, incoming time.Duration) string {
	return strconv.FormatInt(outgoing.Milliseconds(), 10) + "," + strconv.FormatInt(incoming.Milliseconds(), 10)
}

func parseHeartbeat(value string) (time.Duration, time.Duration) {
	send, receive, found := strings.Cut(value, ",")
	if !found {
		return 0, 0
	}
	sx, err1 := strconv.ParseInt(strings.TrimSpace(send), 10, 64)
	sy, err2 := strconv.ParseInt(strings.TrimSpace(receive), 10, 64)
	if err1 != nil || err2 != nil || sx < 0 || sy < 0 {
		return 0, 0
	}
	return time.Duration(sx) * time.Millisecond, time.Duration(sy) * time.Millisecond
}

// negotiateHeartbeat applies the STOMP 1.2 rules to the client's (cx, cy) and
// the server's (sx, sy) heart-beat headers. A zero interval disables that
// direction.
func negotiateHeartbeat(cx, cy, sx, sy time.Duration) (outgoing, incoming time.Duration) {
	if cx > 0 && sy > 0 {
		outgoing = max(cx, sy)
	}
	if cy > 0 && sx > 0 {
		incoming = max(cy, sx)
	}
	return outgoing, incoming
}
