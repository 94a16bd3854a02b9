package hvac

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/mqtt"
)

// Router shares one broker subscription per topic between several owners.
//
// The MQTT client keeps a single handler per topic. A sensor that reports on
// an entity's own state topic (a thermostat that is also the indoor sensor)
// would otherwise replace the state cache's handler, and stopping either
// side would unsubscribe both. The actuator and the sensor listener each get
// their own view from Client; every message on a shared topic reaches every
// owner's handler, and the broker subscription is dropped with the last
// owner.
//
// Thread Safety: All methods are safe for concurrent use.
type Router struct {
	client MQTTClient

	// subMu serialises broker Subscribe/Unsubscribe calls; mu guards routes
	// and is never held while a handler runs.
	subMu  sync.Mutex
	mu     sync.RWMutex
	routes map[string]map[string]mqtt.MessageHandler // topic -> owner -> handler
}

// NewRouter creates a router over client.
func NewRouter(client MQTTClient) *Router {
	return &Router{
		client: client,
		routes: make(map[string]map[string]mqtt.MessageHandler),
	}
}

// Client returns an MQTTClient whose subscriptions belong to owner.
// Publish passes straight through.
func (r *Router) Client(owner string) MQTTClient {
	return routedClient{router: r, owner: owner}
}

// Owners returns how many owners currently share topic.
func (r *Router) Owners(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes[topic])
}

func (r *Router) subscribe(owner, topic string, qos byte, handler mqtt.MessageHandler) error {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	r.mu.Lock()
	owners, shared := r.routes[topic]
	if !shared {
		owners = make(map[string]mqtt.MessageHandler)
		r.routes[topic] = owners
	}
	owners[owner] = handler
	r.mu.Unlock()

	if shared {
		return nil
	}
	if err := r.client.Subscribe(topic, qos, r.deliver); err != nil {
		r.mu.Lock()
		delete(r.routes, topic)
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *Router) unsubscribe(owner, topic string) error {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	r.mu.Lock()
	owners := r.routes[topic]
	if _, ok := owners[owner]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s on %s", ErrNotSubscribed, owner, topic)
	}
	delete(owners, owner)
	last := len(owners) == 0
	if last {
		delete(r.routes, topic)
	}
	r.mu.Unlock()

	if !last {
		return nil
	}
	return r.client.Unsubscribe(topic)
}

// deliver is the single broker handler for every routed topic.
func (r *Router) deliver(topic string, payload []byte) error {
	r.mu.RLock()
	handlers := make([]mqtt.MessageHandler, 0, len(r.routes[topic]))
	for _, h := range r.routes[topic] {
		handlers = append(handlers, h)
	}
	r.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h(topic, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type routedClient struct {
	router *Router
	owner  string
}

func (c routedClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return c.router.client.Publish(topic, payload, qos, retained)
}

func (c routedClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	return c.router.subscribe(c.owner, topic, qos, handler)
}

func (c routedClient) Unsubscribe(topic string) error {
	return c.router.unsubscribe(c.owner, topic)
}
