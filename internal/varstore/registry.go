package varstore

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry is the server-side variable table.
//
// Variables must be declared before use; a name lookup for an undeclared
// variable fails and a write never creates a variable implicitly. Handles
// are slot indices issued in declaration order, starting at 1 so the zero
// handle stays invalid.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Handle
	slots  []slot
}

// slot holds one declared variable. Slot i backs Handle(i+1).
type slot struct {
	name      string
	kind      Kind
	value     Value
	updatedAt time.Time
}

// NewRegistry creates an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Handle),
	}
}

// Declare adds a variable to the registry and returns its handle.
//
// The initial value may be the zero [Value], in which case the variable
// starts at the zero of its kind. Declaring a name twice or declaring with
// a mismatched initial kind is an error.
func (r *Registry) Declare(name string, kind Kind, initial Value) (Handle, error) {
	if name == "" {
		return InvalidHandle, fmt.Errorf("variable name is empty")
	}
	if !kind.Valid() {
		return InvalidHandle, fmt.Errorf("variable %q: unknown kind %q", name, kind)
	}
	if initial.IsZero() {
		initial = zeroValue(kind)
	}
	if initial.Kind() != kind {
		return InvalidHandle, fmt.Errorf("variable %q: initial value kind %s does not match declared kind %s: %w",
			name, initial.Kind(), kind, ErrTypeMismatch)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return InvalidHandle, fmt.Errorf("variable %q is already declared", name)
	}

	r.slots = append(r.slots, slot{
		name:      name,
		kind:      kind,
		value:     initial,
		updatedAt: time.Now(),
	})
	h := Handle(len(r.slots))
	r.byName[name] = h
	return h, nil
}

// FindByName resolves a variable name to its handle.
func (r *Registry) FindByName(name string) (Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.byName[name]
	if !ok {
		return InvalidHandle, fmt.Errorf("variable %q is not declared: %w", name, ErrNotFound)
	}
	return h, nil
}

// Set writes a value to the variable identified by handle.
//
// The value's kind must match the declared kind. Writes are last-writer-wins
// per variable; there is no transaction across variables.
func (r *Registry) Set(h Handle, v Value) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.slotFor(h)
	if err != nil {
		return err
	}
	if v.Kind() != s.kind {
		return fmt.Errorf("variable %q expects %s, got %s: %w", s.name, s.kind, v.Kind(), ErrTypeMismatch)
	}

	s.value = v
	s.updatedAt = time.Now()
	return nil
}

// Get returns the current value of the variable identified by handle.
func (r *Registry) Get(h Handle) (Value, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, err := r.slotFor(h)
	if err != nil {
		return Value{}, err
	}
	return s.value, nil
}

// Name returns the declared name behind a handle.
func (r *Registry) Name(h Handle) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, err := r.slotFor(h)
	if err != nil {
		return "", err
	}
	return s.name, nil
}

// List returns a snapshot of all declared variables, sorted by name.
func (r *Registry) List() []VarInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]VarInfo, 0, len(r.slots))
	for i, s := range r.slots {
		out = append(out, VarInfo{
			Name:      s.name,
			Handle:    Handle(i + 1),
			Kind:      s.kind,
			Value:     s.value.Number(),
			UpdatedAt: s.updatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of declared variables.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots)
}

// slotFor validates a handle and returns its slot. Caller holds r.mu.
func (r *Registry) slotFor(h Handle) (*slot, error) {
	if h == InvalidHandle || int(h) > len(r.slots) {
		return nil, fmt.Errorf("handle %d: %w", h, ErrInvalidHandle)
	}
	return &r.slots[h-1], nil
}
