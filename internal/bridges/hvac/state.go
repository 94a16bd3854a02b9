package hvac

import (
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/engine"
)

// Entity state field names published by climate-capable bridges.
const (
	fieldMode       = "mode"
	fieldTargetTemp = "target_temp"
)

// StateCache holds the last reported state of each climate entity.
//
// Thread Safety: All methods are safe for concurrent use.
type StateCache struct {
	mu     sync.RWMutex
	known  map[string]bool
	states map[string]engine.EntityState
}

// NewStateCache creates a cache accepting updates for the given entity IDs.
func NewStateCache(ids []string) *StateCache {
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	return &StateCache{
		known:  known,
		states: make(map[string]engine.EntityState, len(ids)),
	}
}

// Update merges a state message into the entity's cached state. Fields the
// message omits keep their previous values.
func (c *StateCache) Update(id string, msg StateMessage) error {
	if !c.known[id] {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.states[id]
	st.EntityID = id
	if st.Fields == nil {
		st.Fields = make(map[string]any, len(msg.State))
	}
	maps.Copy(st.Fields, msg.State)

	if mode, ok := msg.State[fieldMode].(string); ok {
		st.Mode = mode
	}
	if _, ok := msg.State[fieldTargetTemp]; ok {
		if v, err := msg.Number(fieldTargetTemp); err == nil {
			st.TargetTemp = &v
		}
	}

	st.UpdatedAt = msg.Timestamp
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	c.states[id] = st
	return nil
}

// Get returns a copy of the entity's cached state.
func (c *StateCache) Get(id string) (engine.EntityState, error) {
	if !c.known[id] {
		return engine.EntityState{}, fmt.Errorf("%w: %q", ErrUnknownEntity, id)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	st, ok := c.states[id]
	if !ok {
		return engine.EntityState{}, fmt.Errorf("%w: %q", ErrNoState, id)
	}
	st.Fields = maps.Clone(st.Fields)
	if st.TargetTemp != nil {
		v := *st.TargetTemp
		st.TargetTemp = &v
	}
	return st, nil
}
