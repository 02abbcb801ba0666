// Package scope implements a hierarchical registry: values registered in a
// scope are visible to every descendant scope until shadowed or destroyed.
package scope

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
)

var (
	// ErrDestroyed is returned when registering into a destroyed scope.
	ErrDestroyed = errors.New("scope destroyed")
	// ErrNotRegistered is returned by Require when no ancestor registered
	// the key.
	ErrNotRegistered = errors.New("no value registered in scope")
)

// Scope is one node of the hierarchy. Scopes are safe for concurrent use.
type Scope struct {
	parent *Scope

	mu        sync.RWMutex
	values    map[any]any
	children  map[*Scope]struct{}
	onDestroy []func()
	destroyed bool
}

// New creates a root scope.
func New() *Scope {
	return &Scope{
		values:   make(map[any]any),
		children: make(map[*Scope]struct{}),
	}
}

// Child creates a scope whose lookups fall back to s.
// A child of a destroyed scope is born destroyed.
func (s *Scope) Child() *Scope {
	c := New()
	c.parent = s

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		c.destroyed = true
		return c
	}
	s.children[c] = struct{}{}
	return c
}

// Parent returns the enclosing scope, or nil for a root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Set registers value under key in s. A nil value is a registration too:
// it shadows ancestors and Lookup reports it as present.
func (s *Scope) Set(key, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return ErrDestroyed
	}
	s.values[key] = value
	return nil
}

// Lookup returns the value registered under key in s or its nearest
// ancestor. The boolean reports whether any registration was found.
func (s *Scope) Lookup(key any) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		if cur.destroyed {
			cur.mu.RUnlock()
			return nil, false
		}
		v, ok := cur.values[key]
		cur.mu.RUnlock()
		if ok {
			return v, true
		}
	}
	return nil, false
}

// OnDestroy registers fn to run when s is destroyed. Hooks run in reverse
// registration order. If s is already destroyed fn runs immediately.
func (s *Scope) OnDestroy(fn func()) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		fn()
		return
	}
	s.onDestroy = append(s.onDestroy, fn)
	s.mu.Unlock()
}

// Destroy tears down the children of s, then s itself. Destroy is
// idempotent.
func (s *Scope) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	children := make([]*Scope, 0, len(s.children))
	for c := range s.children {
		children = append(children, c)
	}
	s.children = nil
	hooks := s.onDestroy
	s.onDestroy = nil
	s.values = nil
	s.mu.Unlock()

	for _, c := range children {
		c.Destroy()
	}
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}

	if s.parent != nil {
		s.parent.mu.Lock()
		delete(s.parent.children, s)
		s.parent.mu.Unlock()
	}
}

// Destroyed reports whether Destroy has been called on s.
func (s *Scope) Destroyed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.destroyed
}

// Key is a typed registry key. Two keys are distinct even when they share
// a name.
type Key[T any] struct {
	name string
}

// NewKey creates a key. The name is only used for diagnostics.
func NewKey[T any](name string) *Key[T] {
	return &Key[T]{name: name}
}

// String returns the key name.
func (k *Key[T]) String() string {
	return k.name
}

// Get returns the value of k visible from s. The boolean is false when no
// ancestor registered k or the registration does not hold a T.
func Get[T any](s *Scope, k *Key[T]) (T, bool) {
	var zero T
	v, ok := s.Lookup(k)
	if !ok || v == nil {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Require is Get for callers that cannot proceed without a value.
func Require[T any](s *Scope, k *Key[T]) (T, error) {
	v, ok := Get(s, k)
	if !ok {
		return v, fmt.Errorf("%s: %w", k, ErrNotRegistered)
	}
	return v, nil
}

// Set registers v under k in s and returns v.
func Set[T any](s *Scope, k *Key[T], v T) (T, error) {
	var stored any = v
	if isNilInterface(stored) {
		stored = nil
	}
	if err := s.Set(k, stored); err != nil {
		return v, err
	}
	return v, nil
}

// BuildContextStore returns a getter and setter bound to a fresh key.
// The setter registers a value for the given scope and returns it; when the
// value is an io.Closer it is closed once that scope is destroyed. The
// getter reads the value from the nearest scope that registered one.
// Registering into a destroyed scope is a no-op.
func BuildContextStore[T any](name string) (
	get func(s *Scope) (T, bool),
	set func(s *Scope, v T) T,
) {
	key := NewKey[T](name)

	get = func(s *Scope) (T, bool) {
		return Get(s, key)
	}
	set = func(s *Scope, v T) T {
		if _, err := Set(s, key, v); err != nil {
			return v
		}
		if c, ok := any(v).(io.Closer); ok && !isNilInterface(v) {
			s.OnDestroy(func() { _ = c.Close() })
		}
		return v
	}
	return get, set
}

// isNilInterface reports whether v is nil or a typed nil, e.g. a nil
// *Monitor stored in a ports.PrMonitor.
func isNilInterface(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

type scopeKey struct{}

// WithScope returns a copy of ctx carrying s.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext returns the scope carried by ctx, if any.
func FromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	return s, ok && s != nil
}
