package websocket

// ConnectionState is the lifecycle of the channel:
// DISCONNECTED -> CONNECTING -> CONNECTED, CONNECTING/CONNECTED -> ERROR,
// ERROR -> CONNECTING after the reconnect delay, and anything -> DISCONNECTED
// on an explicit Disconnect.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateError
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
