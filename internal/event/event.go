package event

import "github.com/wallboard/wallboard_screen/internal/project"

// EventType is the tag of an update pushed to screens
type EventType string

const (
	EventTypeConnect    EventType = "CONNECT"
	EventTypeDisconnect EventType = "DISCONNECT"
	EventTypeWidget     EventType = "WIDGET"
	EventTypePosition   EventType = "POSITION"
	EventTypeGrid       EventType = "GRID"
)

// UpdateEvent is one of ConnectEvent, DisconnectEvent, WidgetEvent,
// PositionEvent or GridEvent.
type UpdateEvent interface {
	Type() EventType
	updateEvent()
}

// ConnectEvent assigns a waiting screen to a project
type ConnectEvent struct {
	Project *project.Project
}

// DisconnectEvent forces a screen off its project. ScreenCode is zero when the
// server sent no content.
type DisconnectEvent struct {
	ScreenCode int
}

// WidgetEvent carries a freshly rendered widget
type WidgetEvent struct {
	Widget *project.ProjectWidget
}

// PositionEvent carries the whole project after widgets moved or resized
type PositionEvent struct {
	Project *project.Project
}

// GridEvent carries the whole project after its grid properties changed
type GridEvent struct {
	Project *project.Project
}

func (ConnectEvent) Type() EventType    { return EventTypeConnect }
func (DisconnectEvent) Type() EventType { return EventTypeDisconnect }
func (WidgetEvent) Type() EventType     { return EventTypeWidget }
func (PositionEvent) Type() EventType   { return EventTypePosition }
func (GridEvent) Type() EventType       { return EventTypeGrid }

func (ConnectEvent) updateEvent()    {}
func (DisconnectEvent) updateEvent() {}
func (WidgetEvent) updateEvent()     {}
func (PositionEvent) updateEvent()   {}
func (GridEvent) updateEvent()       {}
