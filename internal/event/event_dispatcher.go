package event

import (
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/wallboard/wallboard_screen/internal/project"
)

// Controller receives the events that change what the screen is doing rather
// than what it shows.
type Controller interface {
	AssignProject(token string)
	ForceDisconnect()
}

type Dispatcher struct {
	store      *project.Store
	controller Controller
	isMember   func(*project.Project) bool
}

// NewDispatcher routes events to store and controller. When isMember is not
// nil, layout updates also refresh the owned project list with it.
func NewDispatcher(store *project.Store, controller Controller, isMember func(*project.Project) bool) *Dispatcher {
	return &Dispatcher{
		store:      store,
		controller: controller,
		isMember:   isMember,
	}
}

// HandleFrame decodes and dispatches one frame body. Bad frames are logged and
// dropped.
func (d *Dispatcher) HandleFrame(raw []byte) {
	ev, err := Decode(raw)
	if err != nil {
		log.Warn().
			Err(err).
			Int("bytes", len(raw)).
			Msg("[EVENT] Dropping frame")
		return
	}
	d.Dispatch(ev)
}

// Accepting returns a frame handler for a topic that only carries the given
// event types. Decodable events of any other type are logged and dropped.
func (d *Dispatcher) Accepting(accepted ...EventType) func(raw []byte) {
	return func(raw []byte) {
		ev, err := Decode(raw)
		if err != nil {
			log.Warn().
				Err(err).
				Int("bytes", len(raw)).
				Msg("[EVENT] Dropping frame")
			return
		}
		if !slices.Contains(accepted, ev.Type()) {
			log.Warn().
				Str("type", string(ev.Type())).
				Msg("[EVENT] Dropping event not expected on this topic")
			return
		}
		d.Dispatch(ev)
	}
}

func (d *Dispatcher) Dispatch(ev UpdateEvent) {
	log.Debug().Str("type", string(ev.Type())).Msg("[EVENT] Dispatching")

	switch e := ev.(type) {
	case ConnectEvent:
		d.controller.AssignProject(e.Project.Token)

	case DisconnectEvent:
		d.controller.ForceDisconnect()

	case WidgetEvent:
		d.store.ApplyWidgetUpdate(e.Widget.ID, e.Widget.InstantiateHTML, e.Widget.State)

	case PositionEvent:
		d.replaceProject(e.Project)

	case GridEvent:
		d.replaceProject(e.Project)

	default:
		log.Debug().
			Str("type", string(ev.Type())).
			Msg("[EVENT] Unhandled event type")
	}
}

func (d *Dispatcher) replaceProject(p *project.Project) {
	d.store.ApplyProjectReplace(p)
	if d.isMember != nil {
		d.store.UpsertOwnedProject(p, d.isMember)
	}
}
