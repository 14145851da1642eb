// Package service provides the service locator consulted by Service mappings
// and by "@name" callees of call definitions.
package service

import (
	"sort"
	"sync"
)

// Locator resolves a singleton by its id.
type Locator interface {
	Get(id string) (any, bool)
}

// Map is a concurrency safe Locator backed by a map.
type Map struct {
	mu       sync.RWMutex
	services map[string]any
}

var _ Locator = (*Map)(nil)

// NewMap creates a locator pre-populated with the given services.
func NewMap(services map[string]any) *Map {
	m := &Map{services: make(map[string]any, len(services))}
	for id, svc := range services {
		m.services[id] = svc
	}

	return m
}

// Set registers or replaces a service.
func (m *Map) Set(id string, svc any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.services == nil {
		m.services = make(map[string]any)
	}

	m.services[id] = svc
}

func (m *Map) Get(id string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	svc, ok := m.services[id]

	return svc, ok
}

// IDs returns the registered service ids, sorted.
func (m *Map) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.services))
	for id := range m.services {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// Func adapts a lookup function to the Locator interface.
type Func func(id string) (any, bool)

func (f Func) Get(id string) (any, bool) { return f(id) }

// Chain consults each locator in order and returns the first hit.
type Chain []Locator

func (c Chain) Get(id string) (any, bool) {
	for _, l := range c {
		if l == nil {
			continue
		}

		if svc, ok := l.Get(id); ok {
			return svc, true
		}
	}

	return nil, false
}
