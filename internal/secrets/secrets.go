// Package secrets resolves named credentials such as API keys.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ErrNotFound is returned when no store holds a value for the name.
var ErrNotFound = errors.New("secret not found")

// Store looks up a secret by name.
type Store interface {
	Get(name string) (string, error)
}

// Env reads secrets from environment variables. Blank values count as missing.
type Env struct{}

func (Env) Get(name string) (string, error) {
	v, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return strings.TrimSpace(v), nil
}

// Map is an in-memory store, used for values from config files and in tests.
// It is safe for concurrent use.
type Map struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMap returns a Map holding the non-blank entries of values.
func NewMap(values map[string]string) *Map {
	m := &Map{values: make(map[string]string, len(values))}
	for k, v := range values {
		m.Set(k, v)
	}
	return m
}

// Set stores a value. A blank value removes the name.
func (m *Map) Set(name, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if strings.TrimSpace(value) == "" {
		delete(m.values, name)
		return
	}
	m.values[name] = strings.TrimSpace(value)
}

func (m *Map) Get(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return v, nil
}

// Chain tries each store in order and returns the first hit.
type Chain []Store

func (c Chain) Get(name string) (string, error) {
	for _, s := range c {
		v, err := s.Get(name)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}
