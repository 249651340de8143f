// Package permission is a minimal permission registry: plugins register the
// permissions they own and administrators grant them to user IDs.
package permission

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/rustmods/custombradley/pkg/host"
)

// Registry implements host.Permissions.
type Registry struct {
	mu         sync.RWMutex
	registered map[string]string
	grants     map[string]map[string]bool
	logger     *slog.Logger
}

var _ host.Permissions = (*Registry)(nil)

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		registered: make(map[string]string),
		grants:     make(map[string]map[string]bool),
		logger:     logger,
	}
}

// RegisterPermission implements host.Permissions. Registering twice keeps the first owner.
func (r *Registry) RegisterPermission(name, owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.registered[name]; ok {
		if prev != owner {
			r.logger.Warn("permission already registered", "permission", name, "owner", prev, "requestedBy", owner)
		}
		return
	}
	r.registered[name] = owner
	r.logger.Debug("permission registered", "permission", name, "owner", owner)
}

// Grant gives userID a permission. Grants for permissions nobody registered are
// kept so settings can be loaded before plugins.
func (r *Registry) Grant(userID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	perms, ok := r.grants[userID]
	if !ok {
		perms = make(map[string]bool)
		r.grants[userID] = perms
	}
	perms[name] = true
}

// Revoke removes a permission from userID.
func (r *Registry) Revoke(userID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.grants[userID], name)
}

// GrantAll applies a user → permissions table.
func (r *Registry) GrantAll(grants map[string][]string) {
	for user, perms := range grants {
		for _, p := range perms {
			r.Grant(user, p)
		}
	}
}

// UserHasPermission implements host.Permissions. Only registered permissions can be held.
func (r *Registry) UserHasPermission(userID, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.registered[name]; !ok {
		return false
	}
	return r.grants[userID][name]
}

// Registered returns every registered permission name, sorted.
func (r *Registry) Registered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.registered))
	for name := range r.registered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
