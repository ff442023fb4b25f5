package monkey

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrMonkey is returned for injected failures.
var ErrMonkey = errors.New("monkey error")

// Monkey injects random "monkey" errors at a fixed rate. A nil or zero-rate Monkey never fails.
type Monkey struct {
	rate float32

	mu  sync.Mutex
	rnd *rand.Rand
}

// New ...
func New(rate float32) *Monkey {
	return &Monkey{
		rate: rate,
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RandomizeError with some probability replaces a nil err with ErrMonkey.
func (m *Monkey) RandomizeError(err error) error {
	if err != nil {
		return err
	}
	if m == nil || m.rate <= 0 {
		return nil
	}
	m.mu.Lock()
	roll := m.rnd.Float32()
	m.mu.Unlock()
	if roll >= m.rate {
		return nil
	}
	return ErrMonkey
}
