package transport

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Handler consumes one raw inbound frame. Handlers unmarshal their own
// payload structs, like the signal controllers they replace.
type Handler func(data []byte)

// Router maps a message kind to exactly one handler. Registering a second
// handler for the same kind replaces the first: this is a single-owner
// router, not a subscriber bus. Dispatch is synchronous, so inbound frames
// are handled strictly in arrival order.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

func (r *Router) Register(kind string, h Handler) {
	r.mu.Lock()
	r.handlers[kind] = h
	r.mu.Unlock()
}

func (r *Router) Dispatch(data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "transport").Msg("bad json frame")
		return
	}

	r.mu.RLock()
	h, ok := r.handlers[env.Type]
	r.mu.RUnlock()
	if !ok {
		log.Warn().Str("module", "transport").Str("type", env.Type).Msg("unknown message kind")
		return
	}
	h(data)
}
