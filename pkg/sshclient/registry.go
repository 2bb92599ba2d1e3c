package sshclient

import (
	"fmt"
	"sort"
	"sync"

	"github.com/remotekit/sshkit/pkg/config"
)

// Factory builds a Client variant for the given configuration.
type Factory func(cfg *config.ClientConfig) Client

var (
	backendsMu sync.RWMutex
	backends   = map[string]Factory{}
)

// Register makes a backend variant available under name. Registering the
// same name twice panics; backends register from init.
func Register(name string, factory Factory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if _, dup := backends[name]; dup {
		panic(fmt.Sprintf("sshclient: backend %q registered twice", name))
	}
	backends[name] = factory
}

// New returns a Client for the named backend.
func New(name string, cfg *config.ClientConfig) (Client, error) {
	backendsMu.RLock()
	factory, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown sshclient backend %q (available: %v)", name, Backends())
	}
	return factory(cfg), nil
}

// Backends lists the registered backend names, sorted.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
