package model

import (
	"fmt"
	"sort"
	"sync"
)

var (
	mu      sync.RWMutex
	listers = make(map[string]Lister)
)

// Register adds a provider lister to the global registry.
func Register(l Lister) {
	mu.Lock()
	defer mu.Unlock()
	listers[l.Name()] = l
}

// Get returns a provider lister by name.
func Get(name string) (Lister, error) {
	mu.RLock()
	defer mu.RUnlock()
	l, ok := listers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return l, nil
}

// List returns all registered provider names in lexical order.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(listers))
	for name := range listers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
