package subscription

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Transport is the part of the channel the registry subscribes through.
type Transport interface {
	Subscribe(destination string, handler func(body []byte)) (string, error)
	Unsubscribe(id string) error
}

type Handler func(body []byte)

// Handle identifies one registration. The zero Handle is never issued.
type Handle struct {
	id    uint64
	Topic string
}

type registration struct {
	topic       string
	transportID string
	handler     Handler
	removed     bool
}

// Registry tracks the topic registrations of one screen session. It keeps
// nothing across reconnects: after the transport comes back, the owner
// subscribes again from its own topic list.
type Registry struct {
	transport Transport

	mu            sync.Mutex
	registrations map[uint64]*registration
	order         []uint64
	nextID        uint64
}

func NewRegistry(transport Transport) *Registry {
	return &Registry{
		transport:     transport,
		registrations: make(map[uint64]*registration),
		nextID:        1,
	}
}

// Subscribe registers handler for topic. Each registration is delivered to
// independently, so two handlers on one topic each see every frame once.
func (r *Registry) Subscribe(topic string, handler Handler) (Handle, error) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	reg := &registration{topic: topic, handler: handler}
	r.registrations[id] = reg
	r.order = append(r.order, id)
	r.mu.Unlock()

	transportID, err := r.transport.Subscribe(topic, func(body []byte) {
		r.deliver(id, body)
	})
	if err != nil {
		r.forget(id)
		return Handle{}, err
	}

	r.mu.Lock()
	reg.transportID = transportID
	removed := reg.removed
	r.mu.Unlock()

	if removed {
		// removed while the transport was subscribing
		r.release(released{topic: topic, transportID: transportID})
		return Handle{id: id, Topic: topic}, nil
	}

	log.Debug().
		Str("topic", topic).
		Int("registrations", r.Len()).
		Msg("[SUB] Topic subscription added")

	return Handle{id: id, Topic: topic}, nil
}

// Unsubscribe removes exactly one registration. Unknown or already removed
// handles are ignored, as are transport errors for handles that died with a
// previous connection.
func (r *Registry) Unsubscribe(h Handle) {
	rel, ok := r.forget(h.id)
	if !ok {
		return
	}
	r.release(rel)
}

// UnsubscribeAll removes every registration owned by this registry.
func (r *Registry) UnsubscribeAll() {
	r.mu.Lock()
	rels := make([]released, 0, len(r.order))
	for _, id := range r.order {
		reg := r.registrations[id]
		reg.removed = true
		rels = append(rels, released{topic: reg.topic, transportID: reg.transportID})
	}
	r.registrations = make(map[uint64]*registration)
	r.order = nil
	r.mu.Unlock()

	for _, rel := range rels {
		r.release(rel)
	}

	if len(rels) > 0 {
		log.Debug().Int("removed", len(rels)).Msg("[SUB] All topic subscriptions removed")
	}
}

// Topics lists the topics of active registrations in subscription order.
func (r *Registry) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	topics := make([]string, 0, len(r.order))
	for _, id := range r.order {
		topics = append(topics, r.registrations[id].topic)
	}
	return topics
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

func (r *Registry) deliver(id uint64, body []byte) {
	r.mu.Lock()
	reg, ok := r.registrations[id]
	if !ok || reg.removed {
		r.mu.Unlock()
		return
	}
	handler := reg.handler
	r.mu.Unlock()

	handler(body)
}

// released is what is left to tell the transport once a registration is gone.
type released struct {
	topic       string
	transportID string
}

func (r *Registry) forget(id uint64) (released, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.registrations[id]
	if !ok {
		return released{}, false
	}
	reg.removed = true
	delete(r.registrations, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return released{topic: reg.topic, transportID: reg.transportID}, true
}

func (r *Registry) release(rel released) {
	if rel.transportID == "" {
		return
	}
	if err := r.transport.Unsubscribe(rel.transportID); err != nil {
		log.Debug().
			Err(err).
			Str("topic", rel.topic).
			Msg("[SUB] Transport already released subscription")
		return
	}

	log.Debug().Str("topic", rel.topic).Msg("[SUB] Topic subscription removed")
}
