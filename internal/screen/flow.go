package screen

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/wallboard/wallboard_screen/internal/event"
	"github.com/wallboard/wallboard_screen/internal/project"
	"github.com/wallboard/wallboard_screen/internal/stream"
	"github.com/wallboard/wallboard_screen/internal/subscription"
	"github.com/wallboard/wallboard_screen/internal/topic"
	"github.com/wallboard/wallboard_screen/internal/user"
	"github.com/wallboard/wallboard_screen/internal/websocket"
)

const inboxSize = 256

var ErrAlreadyRunning = errors.New("screen flow already running")

// Channel is the push transport the flow drives. It reconnects on its own;
// the flow only subscribes again whenever it reports CONNECTED.
type Channel interface {
	subscription.Transport
	Connect() error
	Disconnect()
	ConnectionState() *stream.Value[websocket.ConnectionState]
}

// Flow ties the channel, the REST collaborator and the store together for one
// screen. Each Run handles one route and returns the route to go to next.
type Flow struct {
	code       Code
	channel    Channel
	repository project.Repository
	store      *project.Store
	user       *user.User

	state   *stream.Value[State]
	route   *stream.Value[Route]
	running atomic.Bool
}

// NewFlow builds the flow of the screen identified by code. currentUser may be
// nil when the screen runs without a user token.
func NewFlow(code Code, channel Channel, repository project.Repository, store *project.Store, currentUser *user.User) *Flow {
	return &Flow{
		code:       code,
		channel:    channel,
		repository: repository,
		store:      store,
		user:       currentUser,
		state:      stream.NewValue(StateWaitingForAssignment),
		route:      stream.NewValue(Route{}),
	}
}

func (f *Flow) Code() Code {
	return f.code
}

func (f *Flow) State() State {
	return f.state.Get()
}

func (f *Flow) WatchState(fn func(State)) func() {
	return f.state.Watch(fn)
}

// Route returns the route of the current or last Run.
func (f *Flow) Route() Route {
	return f.route.Get()
}

// Run mounts route and blocks until the screen navigates away, the context is
// canceled or the project cannot be fetched. Subscriptions and the channel
// are released on every return.
func (f *Flow) Run(ctx context.Context, route Route) (Route, error) {
	if !f.running.CompareAndSwap(false, true) {
		return Route{}, ErrAlreadyRunning
	}
	defer f.running.Store(false)

	f.route.Set(route)
	m := newMount(f)
	defer m.close()

	if route.Waiting() {
		f.setState(StateWaitingForAssignment)
		m.intend(topic.Connect(f.code.Int()), event.EventTypeConnect)
		log.Info().Str("code", f.code.String()).Msg("[SCREEN] Waiting for assignment")
	} else {
		p, err := f.loadProject(ctx, route.Token)
		if err != nil {
			return Route{}, err
		}
		f.store.SetCurrentProject(p)
		m.ownsProject = true
		f.setState(StateConnectedToProject)
		m.intend(topic.Live(route.Token), event.EventTypeWidget, event.EventTypePosition, event.EventTypeGrid)
		m.intend(topic.Unique(route.Token, f.code.Int()), event.EventTypeDisconnect)
		log.Info().
			Str("token", route.Token).
			Str("name", p.Name).
			Int("widgets", len(p.Widgets)).
			Msg("[SCREEN] Showing project")
	}

	return m.loop(ctx)
}

func (f *Flow) loadProject(ctx context.Context, token string) (*project.Project, error) {
	p, err := f.repository.GetOneByToken(ctx, token)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			f.forgetOwnedProject(token)
		}
		log.Error().Err(err).Str("token", token).Msg("[SCREEN] Failed to fetch project")
		return nil, err
	}

	if len(p.Widgets) == 0 {
		widgets, err := f.repository.GetProjectWidgets(ctx, token)
		if err != nil {
			log.Error().Err(err).Str("token", token).Msg("[SCREEN] Failed to fetch project widgets")
			return nil, err
		}
		p.Widgets = widgets
	}

	if f.user != nil {
		owned, err := f.repository.GetAllForCurrentUser(ctx)
		if err != nil {
			log.Warn().Err(err).Str("user", f.user.Username).Msg("[SCREEN] Failed to fetch owned projects")
		} else {
			f.store.SetOwnedProjects(owned)
		}
	}
	return p, nil
}

func (f *Flow) forgetOwnedProject(token string) {
	for _, p := range f.store.OwnedProjects() {
		if p.Token == token {
			f.store.RemoveOwnedProject(p.ID)
		}
	}
}

func (f *Flow) membership() func(*project.Project) bool {
	if f.user == nil {
		return nil
	}
	return project.MemberOf(f.user)
}

func (f *Flow) setState(state State) {
	if f.state.Get() == state {
		return
	}
	log.Debug().Str("state", state.String()).Msg("[SCREEN] Flow state changed")
	f.state.Set(state)
}

// mount is one Run. Transport callbacks are posted to its inbox and executed
// on the Run goroutine, one at a time.
type mount struct {
	flow       *Flow
	registry   *subscription.Registry
	dispatcher *event.Dispatcher
	intents    []intent

	inbox   chan func()
	done    chan struct{}
	alive   atomic.Bool
	unwatch func()

	next        *Route
	ownsProject bool
}

func newMount(f *Flow) *mount {
	m := &mount{
		flow:     f,
		registry: subscription.NewRegistry(f.channel),
		inbox:    make(chan func(), inboxSize),
		done:     make(chan struct{}),
	}
	m.dispatcher = event.NewDispatcher(f.store, m, f.membership())
	m.alive.Store(true)
	return m
}

// intent is a topic the mount keeps subscribed and the event types it takes
// from it.
type intent struct {
	topic  string
	handle func(raw []byte)
}

func (m *mount) intend(t string, accepted ...event.EventType) {
	m.intents = append(m.intents, intent{topic: t, handle: m.dispatcher.Accepting(accepted...)})
}

// post queues fn for the Run goroutine. Callbacks arriving after close are
// dropped.
func (m *mount) post(fn func()) {
	if !m.alive.Load() {
		return
	}
	select {
	case m.inbox <- fn:
	case <-m.done:
	}
}

func (m *mount) loop(ctx context.Context) (Route, error) {
	m.unwatch = m.flow.channel.ConnectionState().Watch(func(state websocket.ConnectionState) {
		m.post(func() { m.onConnectionState(state) })
	})

	if err := m.flow.channel.Connect(); err != nil && !errors.Is(err, websocket.ErrAlreadyStarted) {
		return Route{}, fmt.Errorf("failed to start channel: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return Route{}, ctx.Err()
		case fn := <-m.inbox:
			if !m.alive.Load() {
				continue
			}
			fn()
			if m.next != nil {
				log.Info().Str("route", m.next.String()).Msg("[SCREEN] Navigating")
				return *m.next, nil
			}
		}
	}
}

func (m *mount) onConnectionState(state websocket.ConnectionState) {
	switch state {
	case websocket.StateConnected:
		m.subscribeAll()
	case websocket.StateError:
		log.Warn().Msg("[SCREEN] Channel lost, waiting for it to reconnect")
	}
}

// subscribeAll drops whatever the previous connection held and subscribes to
// every topic of this mount again.
func (m *mount) subscribeAll() {
	m.registry.UnsubscribeAll()
	for _, in := range m.intents {
		handle := in.handle
		_, err := m.registry.Subscribe(in.topic, func(body []byte) {
			m.post(func() { handle(body) })
		})
		if err != nil {
			log.Warn().Err(err).Str("topic", in.topic).Msg("[SCREEN] Failed to subscribe")
		}
	}
	log.Debug().Strs("topics", m.registry.Topics()).Msg("[SCREEN] Subscribed")
}

func (m *mount) AssignProject(token string) {
	if m.next != nil {
		return
	}
	m.next = &Route{Token: token}
}

func (m *mount) ForceDisconnect() {
	if m.next != nil {
		return
	}
	m.next = &Route{}
}

func (m *mount) close() {
	if m.alive.CompareAndSwap(true, false) {
		close(m.done)
	}
	if m.unwatch != nil {
		m.unwatch()
	}
	m.registry.UnsubscribeAll()
	m.flow.channel.Disconnect()
	if m.ownsProject {
		m.flow.store.ClearCurrentProject()
	}
	m.flow.setState(StateDisconnected)
}
