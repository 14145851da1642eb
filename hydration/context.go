// Package hydration holds the per-operation state shared by every mapping node
// while one entity is loaded or stored: the named-value registry and the
// construction stack.
//
// A Context is created for exactly one load or store operation, owned by it,
// and discarded afterwards. It is not safe for concurrent use.
package hydration

import (
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

var (
	ErrUnknownRegistryKey = errors.New("unknown registry key")
	ErrStackUnderflow     = errors.New("construction stack underflow")
)

// Placeholder stands on the construction stack for an object whose real value
// does not exist yet.
type Placeholder struct {
	Type reflect.Type
}

func (p Placeholder) String() string {
	if p.Type == nil {
		return "placeholder"
	}

	return "placeholder(" + p.Type.String() + ")"
}

type Context struct {
	entity     any
	entityType reflect.Type
	registry   map[string]any
	stack      []any
	logger     *zap.Logger
}

type Option func(*Context)

// WithLogger sets the logger mapping nodes use for debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEntityType overrides the canonical entity type, e.g. when the entity is
// a proxy or wrapper around the mapped type.
func WithEntityType(t reflect.Type) Option {
	return func(c *Context) {
		c.entityType = canonical(t)
	}
}

// New creates a context rooted at entity. The entity is the bottom of the
// construction stack and is never popped.
func New(entity any, opts ...Option) *Context {
	c := &Context{
		entity:   entity,
		registry: make(map[string]any),
		stack:    []any{entity},
		logger:   zap.NewNop(),
	}

	if entity != nil {
		c.entityType = canonical(reflect.TypeOf(entity))
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func canonical(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return t
}

func (c *Context) Entity() any { return c.entity }

// EntityType returns the entity type with pointers stripped.
func (c *Context) EntityType() reflect.Type { return c.entityType }

func (c *Context) Logger() *zap.Logger { return c.logger }

// Register publishes value under id. An existing registration is replaced.
func (c *Context) Register(id string, value any) {
	if _, ok := c.registry[id]; ok {
		c.logger.Debug("registry entry replaced", zap.String("id", id))
	}

	c.registry[id] = value
}

func (c *Context) HasRegistered(id string) bool {
	_, ok := c.registry[id]
	return ok
}

func (c *Context) GetRegistered(id string) (any, error) {
	value, ok := c.registry[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRegistryKey, id)
	}

	return value, nil
}

func (c *Context) Push(value any) {
	c.stack = append(c.stack, value)
}

// Pop removes and returns the top of the stack. The entity at the bottom is
// never removed.
func (c *Context) Pop() (any, error) {
	if len(c.stack) <= 1 {
		return nil, fmt.Errorf("%w: cannot pop the root entity", ErrStackUnderflow)
	}

	top := c.stack[len(c.stack)-1]
	c.stack[len(c.stack)-1] = nil
	c.stack = c.stack[:len(c.stack)-1]

	return top, nil
}

// ReplaceTop swaps the top of the stack, typically a Placeholder, for value.
func (c *Context) ReplaceTop(value any) error {
	if len(c.stack) <= 1 {
		return fmt.Errorf("%w: cannot replace the root entity", ErrStackUnderflow)
	}

	c.stack[len(c.stack)-1] = value

	return nil
}

// Self returns the top of the stack.
func (c *Context) Self() any {
	return c.stack[len(c.stack)-1]
}

// Parent returns the value below the top of the stack.
func (c *Context) Parent() (any, bool) {
	if len(c.stack) < 2 {
		return nil, false
	}

	return c.stack[len(c.stack)-2], true
}

// Depth returns the stack size including the root entity.
func (c *Context) Depth() int { return len(c.stack) }
