// Package dedup remembers which task keys were already dispatched during this process lifetime.
package dedup

import (
	"container/list"
	"sync"
	"time"
)

// Store - per task type set of seen task keys.
type Store interface {
	HasSeen(taskType, key string) bool
	MarkSeen(taskType, key string)
}

// Limits bound one task type's set. Zero values mean unbounded.
type Limits struct {
	Capacity int
	TTL      time.Duration
}

// Memory - in-memory Store. Nothing survives a restart.
type Memory struct {
	now func() time.Time

	mu     sync.Mutex
	limits map[string]Limits
	sets   map[string]*set
}

type set struct {
	order *list.List // of *entry, oldest first
	index map[string]*list.Element
}

type entry struct {
	key    string
	seenAt time.Time
}

// NewMemory ...
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		now:    now,
		limits: make(map[string]Limits),
		sets:   make(map[string]*set),
	}
}

// Limit sets bounds for taskType.
func (m *Memory) Limit(taskType string, limits Limits) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits[taskType] = limits
	if s, ok := m.sets[taskType]; ok {
		m.trim(s, limits)
	}
}

// HasSeen ...
func (m *Memory) HasSeen(taskType, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sets[taskType]
	if !ok {
		return false
	}
	m.trim(s, m.limits[taskType])
	_, ok = s.index[key]
	return ok
}

// MarkSeen ...
func (m *Memory) MarkSeen(taskType, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sets[taskType]
	if !ok {
		s = &set{order: list.New(), index: make(map[string]*list.Element)}
		m.sets[taskType] = s
	}
	if el, ok := s.index[key]; ok {
		el.Value.(*entry).seenAt = m.now()
		s.order.MoveToBack(el)
	} else {
		s.index[key] = s.order.PushBack(&entry{key: key, seenAt: m.now()})
	}
	m.trim(s, m.limits[taskType])
}

// Len reports the number of keys held for taskType.
func (m *Memory) Len(taskType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sets[taskType]
	if !ok {
		return 0
	}
	m.trim(s, m.limits[taskType])
	return len(s.index)
}

func (m *Memory) trim(s *set, limits Limits) {
	if limits.TTL > 0 {
		cutoff := m.now().Add(-limits.TTL)
		for el := s.order.Front(); el != nil; el = s.order.Front() {
			if el.Value.(*entry).seenAt.After(cutoff) {
				break
			}
			m.evict(s, el)
		}
	}
	if limits.Capacity > 0 {
		for s.order.Len() > limits.Capacity {
			m.evict(s, s.order.Front())
		}
	}
}

func (m *Memory) evict(s *set, el *list.Element) {
	delete(s.index, el.Value.(*entry).key)
	s.order.Remove(el)
}
