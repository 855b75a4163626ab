package http

import (
	"strings"
	"unique"
)

// Headers is an ordered, case-insensitive header map. Keys are
// lowercased on ingestion; repeated keys are merged into a single
// comma-separated value in arrival order, per RFC 7230. Insertion
// order is preserved for serialization even though it carries no
// semantic meaning on lookup.
//
// Header names are interned via the standard library's unique
// package: the set of real-world header names is small and highly
// repetitive, so canonicalizing through unique.Handle avoids
// reallocating the same lowercase strings on every parsed message.
type Headers struct {
	order []unique.Handle[string]
	vals  map[unique.Handle[string]]string
}

// NewHeaders returns an empty header map.
func NewHeaders() *Headers {
	return &Headers{vals: make(map[unique.Handle[string]]string)}
}

func internName(name string) unique.Handle[string] {
	return unique.Make(strings.ToLower(name))
}

// Set assigns value to name outright, replacing any prior value(s)
// and not joining with a comma. Used when rewriting a well-known
// header such as content-length.
func (h *Headers) Set(name, value string) {
	key := internName(name)
	if _, ok := h.vals[key]; !ok {
		h.order = append(h.order, key)
	}
	h.vals[key] = value
}

// Add appends value to name, comma-joining with any existing value in
// arrival order, as RFC 7230 specifies for repeated header fields.
func (h *Headers) Add(name, value string) {
	key := internName(name)
	if existing, ok := h.vals[key]; ok {
		h.vals[key] = existing + "," + value
		return
	}
	h.order = append(h.order, key)
	h.vals[key] = value
}

// Get returns the value for name (case-insensitive), and whether it
// was present.
func (h *Headers) Get(name string) (string, bool) {
	v, ok := h.vals[internName(name)]
	return v, ok
}

// Del removes name from the map.
func (h *Headers) Del(name string) {
	key := internName(name)
	if _, ok := h.vals[key]; !ok {
		return
	}
	delete(h.vals, key)
	for i, k := range h.order {
		if k == key {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Each calls fn for every header in insertion order.
func (h *Headers) Each(fn func(name, value string)) {
	for _, k := range h.order {
		fn(k.Value(), h.vals[k])
	}
}

// Len reports the number of distinct header names.
func (h *Headers) Len() int { return len(h.order) }
