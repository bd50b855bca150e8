package screen

// State is where the screen stands in its assignment lifecycle.
type State int

const (
	StateWaitingForAssignment State = iota
	StateConnectedToProject
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateWaitingForAssignment:
		return "WAITING_FOR_ASSIGNMENT"
	case StateConnectedToProject:
		return "CONNECTED_TO_PROJECT"
	case StateDisconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Route is what the screen was navigated to. The zero Route is the generic
// screen that waits for an assignment.
type Route struct {
	Token string
}

func (r Route) Waiting() bool {
	return r.Token == ""
}

func (r Route) String() string {
	if r.Waiting() {
		return "/screen"
	}
	return "/screen/" + r.Token
}
