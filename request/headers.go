package request

import (
	"slices"
	"strings"
)

// Headers is a case-insensitive multi-value header store. Keys are kept
// lower-cased and values are deduplicated per key.
type Headers struct {
	values map[string][]string
}

// NewHeaders creates an empty header store.
func NewHeaders() *Headers {
	return &Headers{values: make(map[string][]string)}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (h *Headers) ensure() {
	if h.values == nil {
		h.values = make(map[string][]string)
	}
}

// Add appends values to key, skipping values already present.
func (h *Headers) Add(key string, value string, additional ...string) {
	k := normalizeKey(key)
	if k == "" {
		return
	}
	h.ensure()
	for _, v := range append([]string{value}, additional...) {
		if !slices.Contains(h.values[k], v) {
			h.values[k] = append(h.values[k], v)
		}
	}
}

// AddAll copies every value of other into h.
func (h *Headers) AddAll(other *Headers) {
	if other == nil {
		return
	}
	for _, k := range other.ListKeys() {
		for _, v := range other.values[k] {
			h.Add(k, v)
		}
	}
}

// TryAdd sets key to value only when key is absent and reports whether it did.
func (h *Headers) TryAdd(key, value string) bool {
	k := normalizeKey(key)
	if k == "" {
		return false
	}
	h.ensure()
	if _, ok := h.values[k]; ok {
		return false
	}
	h.values[k] = []string{value}
	return true
}

// Get returns the values for key, or nil.
func (h *Headers) Get(key string) []string {
	if h.values == nil {
		return nil
	}
	return slices.Clone(h.values[normalizeKey(key)])
}

// ContainsKey reports whether key has at least one value.
func (h *Headers) ContainsKey(key string) bool {
	if h.values == nil {
		return false
	}
	_, ok := h.values[normalizeKey(key)]
	return ok
}

// Remove drops key and all its values.
func (h *Headers) Remove(key string) {
	if h.values != nil {
		delete(h.values, normalizeKey(key))
	}
}

// RemoveValue drops one value of key, and the key once it has none left.
func (h *Headers) RemoveValue(key, value string) {
	if h.values == nil {
		return
	}
	k := normalizeKey(key)
	vals := slices.DeleteFunc(h.values[k], func(v string) bool { return v == value })
	if len(vals) == 0 {
		delete(h.values, k)
		return
	}
	h.values[k] = vals
}

// ListKeys returns the header names in sorted order.
func (h *Headers) ListKeys() []string {
	keys := make([]string, 0, len(h.values))
	for k := range h.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of distinct header names.
func (h *Headers) Len() int { return len(h.values) }

// Clear drops every header.
func (h *Headers) Clear() {
	h.values = make(map[string][]string)
}
