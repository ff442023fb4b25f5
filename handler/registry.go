package handler

import (
	"fmt"
)

// Entry - a task type, its source endpoint and its handler.
type Entry struct {
	TaskType string
	Endpoint string
	Handler  Handler
}

// Registry keeps task types in registration order; the poll loop walks them in that order.
type Registry struct {
	entries []Entry
	index   map[string]int
}

// NewRegistry ...
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register ...
func (r *Registry) Register(taskType, endpoint string, h Handler) error {
	if h == nil {
		return fmt.Errorf("task type %q: nil handler", taskType)
	}
	if _, ok := r.index[taskType]; ok {
		return fmt.Errorf("task type %q already registered", taskType)
	}
	r.index[taskType] = len(r.entries)
	r.entries = append(r.entries, Entry{TaskType: taskType, Endpoint: endpoint, Handler: h})
	return nil
}

// Get ...
func (r *Registry) Get(taskType string) (Entry, bool) {
	i, ok := r.index[taskType]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Entries returns a copy in registration order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
