package host

import (
	"fmt"
	"sync"
)

// Registry loads plugins and fans engine hooks out to them.
type Registry struct {
	mu      sync.RWMutex
	host    *Host
	plugins []Plugin
}

// NewRegistry creates a registry that initializes plugins against h.
func NewRegistry(h *Host) *Registry {
	return &Registry{host: h}
}

// Load initializes p and starts delivering hooks to it.
func (r *Registry) Load(p Plugin) error {
	if err := p.Init(r.host); err != nil {
		return fmt.Errorf("init plugin %s: %w", p.Name(), err)
	}
	r.mu.Lock()
	r.plugins = append(r.plugins, p)
	r.mu.Unlock()
	if r.host.Logger != nil {
		r.host.Logger.Info("Loaded plugin", "plugin", p.Name())
	}
	return nil
}

// Plugins returns the loaded plugins in load order.
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, len(r.plugins))
	copy(out, r.plugins)
	return out
}

// ServerInitialized broadcasts the server-ready hook.
func (r *Registry) ServerInitialized() {
	for _, p := range r.Plugins() {
		p.OnServerInitialized()
	}
}

// OnEntitySpawned implements Hooks.
func (r *Registry) OnEntitySpawned(h Handle) {
	for _, p := range r.Plugins() {
		p.OnEntitySpawned(h)
	}
}

// OnEntityDeath implements Hooks.
func (r *Registry) OnEntityDeath(h Handle, info HitInfo) {
	for _, p := range r.Plugins() {
		p.OnEntityDeath(h, info)
	}
}

// UnloadAll unloads plugins in reverse load order.
func (r *Registry) UnloadAll() {
	r.mu.Lock()
	plugins := r.plugins
	r.plugins = nil
	r.mu.Unlock()

	for i := len(plugins) - 1; i >= 0; i-- {
		plugins[i].Unload()
		if r.host.Logger != nil {
			r.host.Logger.Info("Unloaded plugin", "plugin", plugins[i].Name())
		}
	}
}
