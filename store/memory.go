package store

import (
	"reflect"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/gokiota/errors"
)

// entry pairs a value with its change flag.
type entry struct {
	dirty bool
	value any
}

// InMemoryBackingStore is a BackingStore backed by a map. It is safe for
// concurrent use; callbacks run without the lock held.
type InMemoryBackingStore struct {
	mu                      sync.RWMutex
	values                  map[string]*entry
	subscribers             map[string]SubscriptionCallback
	initializationCompleted bool
	returnOnlyChangedValues bool
}

var _ BackingStore = (*InMemoryBackingStore)(nil)

// NewInMemoryBackingStore creates an empty store. New stores count as
// initialized, so values set on a fresh model are changes.
func NewInMemoryBackingStore() *InMemoryBackingStore {
	return &InMemoryBackingStore{
		values:                  make(map[string]*entry),
		subscribers:             make(map[string]SubscriptionCallback),
		initializationCompleted: true,
	}
}

func (s *InMemoryBackingStore) Get(key string) (any, error) {
	if key == "" {
		return nil, errors.MissingArgument("key")
	}
	s.mu.RLock()
	e, ok := s.values[key]
	onlyChanged := s.returnOnlyChangedValues
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if onlyChanged && !s.refreshDirty(key, e) {
		return nil, nil
	}
	return e.value, nil
}

func (s *InMemoryBackingStore) Set(key string, value any) error {
	if key == "" {
		return errors.MissingArgument("key")
	}
	s.mu.Lock()
	var old any
	if prev, ok := s.values[key]; ok {
		old = prev.value
	}
	s.values[key] = &entry{dirty: s.initializationCompleted, value: value}
	callbacks := make([]SubscriptionCallback, 0, len(s.subscribers))
	for _, cb := range s.subscribers {
		callbacks = append(callbacks, cb)
	}
	s.mu.Unlock()

	if nested := nestedStores(value); len(nested) == 1 && !isSlice(value) {
		nested := nested[0]
		// A nested model that is touched marks the owning property as changed.
		nested.SetInitializationCompleted(false)
		_ = nested.SubscribeWithID(func(string, any, any) {
			nested.SetInitializationCompleted(false)
			_ = s.Set(key, value)
		}, key)
	}
	for _, cb := range callbacks {
		cb(key, old, value)
	}
	return nil
}

func (s *InMemoryBackingStore) Enumerate() map[string]any {
	s.mu.RLock()
	snapshot := make(map[string]*entry, len(s.values))
	for k, e := range s.values {
		snapshot[k] = e
	}
	onlyChanged := s.returnOnlyChangedValues
	s.mu.RUnlock()

	out := make(map[string]any, len(snapshot))
	for k, e := range snapshot {
		if onlyChanged && !s.refreshDirty(k, e) {
			continue
		}
		out[k] = e.value
	}
	return out
}

func (s *InMemoryBackingStore) EnumerateKeysForValuesChangedToNull() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k, e := range s.values {
		if e.dirty && isNil(e.value) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (s *InMemoryBackingStore) Subscribe(callback SubscriptionCallback) string {
	id := uuid.NewString()
	_ = s.SubscribeWithID(callback, id)
	return id
}

func (s *InMemoryBackingStore) SubscribeWithID(callback SubscriptionCallback, id string) error {
	if id == "" {
		return errors.MissingArgument("id")
	}
	if callback == nil {
		return errors.MissingArgument("callback")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[id] = callback
	return nil
}

func (s *InMemoryBackingStore) Unsubscribe(id string) error {
	if id == "" {
		return errors.MissingArgument("id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, id)
	return nil
}

func (s *InMemoryBackingStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]*entry)
}

func (s *InMemoryBackingStore) GetInitializationCompleted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initializationCompleted
}

func (s *InMemoryBackingStore) SetInitializationCompleted(value bool) {
	s.mu.Lock()
	s.initializationCompleted = value
	var nested []BackingStore
	for _, e := range s.values {
		e.dirty = !value
		nested = append(nested, nestedStores(e.value)...)
	}
	s.mu.Unlock()
	for _, n := range nested {
		n.SetInitializationCompleted(value)
	}
}

func (s *InMemoryBackingStore) GetReturnOnlyChangedValues() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.returnOnlyChangedValues
}

func (s *InMemoryBackingStore) SetReturnOnlyChangedValues(value bool) {
	s.mu.Lock()
	s.returnOnlyChangedValues = value
	var nested []BackingStore
	for _, e := range s.values {
		nested = append(nested, nestedStores(e.value)...)
	}
	s.mu.Unlock()
	for _, n := range nested {
		n.SetReturnOnlyChangedValues(value)
	}
}

// refreshDirty reports whether e is dirty. A clean collection of models
// becomes dirty once any of its elements has changed values.
func (s *InMemoryBackingStore) refreshDirty(key string, e *entry) bool {
	s.mu.RLock()
	dirty := e.dirty
	s.mu.RUnlock()
	if dirty || !isSlice(e.value) {
		return dirty
	}
	for _, n := range nestedStores(e.value) {
		if len(n.Enumerate()) > 0 || len(n.EnumerateKeysForValuesChangedToNull()) > 0 {
			s.mu.Lock()
			if cur, ok := s.values[key]; ok && cur == e {
				e.dirty = true
			}
			s.mu.Unlock()
			return true
		}
	}
	return false
}

// nestedStores returns the stores of a backed model value or of every
// backed model in a slice value.
func nestedStores(value any) []BackingStore {
	if isNil(value) {
		return nil
	}
	if m, ok := value.(BackedModel); ok {
		if bs := m.GetBackingStore(); bs != nil {
			return []BackingStore{bs}
		}
		return nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return nil
	}
	var out []BackingStore
	for i := range rv.Len() {
		el := rv.Index(i)
		if !el.CanInterface() || isNil(el.Interface()) {
			continue
		}
		if m, ok := el.Interface().(BackedModel); ok {
			if bs := m.GetBackingStore(); bs != nil {
				out = append(out, bs)
			}
		}
	}
	return out
}

func isSlice(value any) bool {
	return value != nil && reflect.ValueOf(value).Kind() == reflect.Slice
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
