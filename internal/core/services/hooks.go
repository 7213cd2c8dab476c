package services

import (
	"sync"

	"github.com/ticketwell/helpdesk-core/internal/core/ports"
)

// HookRegistry is a map-backed implementation of ports.HookRegistry. Hooks
// are registered once during process startup; lookups afterwards are
// read-mostly so a single RWMutex is enough.
type HookRegistry struct {
	mu    sync.RWMutex
	hooks map[string]ports.Hook
}

var _ ports.HookRegistry = (*HookRegistry)(nil)

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{
		hooks: make(map[string]ports.Hook),
	}
}

// Register binds a hook identifier to a handler. Re-registering an
// identifier replaces the previous handler.
func (r *HookRegistry) Register(name string, hook ports.Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[name] = hook
}

// Resolve looks up a handler by identifier.
func (r *HookRegistry) Resolve(name string) (ports.Hook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hook, ok := r.hooks[name]
	return hook, ok
}
