package event

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/wallboard/wallboard_screen/internal/project"
)

var (
	ErrDecode      = errors.New("frame decode error")
	ErrUnknownType = errors.New("unknown event type")
)

type envelope struct {
	Type    EventType       `json:"type"`
	Content json.RawMessage `json:"content"`
}

// Decode reads one update event from a frame body. The tag is checked before
// the content is touched.
func Decode(raw []byte) (UpdateEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	switch env.Type {
	case EventTypeConnect:
		p, err := decodeProject(env)
		if err != nil {
			return nil, err
		}
		if p.Token == "" {
			return nil, fmt.Errorf("%w: %s event without project token", ErrDecode, env.Type)
		}
		return ConnectEvent{Project: p}, nil

	case EventTypeDisconnect:
		var code int
		if hasContent(env.Content) {
			if err := json.Unmarshal(env.Content, &code); err != nil {
				return nil, fmt.Errorf("%w: %s content: %w", ErrDecode, env.Type, err)
			}
		}
		return DisconnectEvent{ScreenCode: code}, nil

	case EventTypeWidget:
		if !hasContent(env.Content) {
			return nil, fmt.Errorf("%w: %s event without content", ErrDecode, env.Type)
		}
		var w project.ProjectWidget
		if err := json.Unmarshal(env.Content, &w); err != nil {
			return nil, fmt.Errorf("%w: %s content: %w", ErrDecode, env.Type, err)
		}
		return WidgetEvent{Widget: &w}, nil

	case EventTypePosition:
		p, err := decodeProject(env)
		if err != nil {
			return nil, err
		}
		return PositionEvent{Project: p}, nil

	case EventTypeGrid:
		p, err := decodeProject(env)
		if err != nil {
			return nil, err
		}
		return GridEvent{Project: p}, nil

	case "":
		return nil, fmt.Errorf("%w: missing type", ErrDecode)

	default:
		return nil, fmt.Errorf("%w: %w: %s", ErrDecode, ErrUnknownType, env.Type)
	}
}

func decodeProject(env envelope) (*project.Project, error) {
	if !hasContent(env.Content) {
		return nil, fmt.Errorf("%w: %s event without content", ErrDecode, env.Type)
	}
	var p project.Project
	if err := json.Unmarshal(env.Content, &p); err != nil {
		return nil, fmt.Errorf("%w: %s content: %w", ErrDecode, env.Type, err)
	}
	return &p, nil
}

func hasContent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
