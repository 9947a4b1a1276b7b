// Package sequence provides the business code serial backends.
package sequence

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/entity"
)

// MaxSerial is the last serial any backend hands out. Counters are stored
// as signed 64-bit integers in sqlite and redis, so every backend shares
// that ceiling. Codes grow past six digits long before it matters.
const MaxSerial = math.MaxInt64

func exhausted(kind entity.Kind) error {
	return fmt.Errorf("%w: %s counter overflowed", entity.ErrSequenceExhausted, kind)
}

func checkKind(kind entity.Kind) error {
	if !kind.IsValid() {
		return fmt.Errorf("%w: unknown entity kind %q", entity.ErrValidation, kind)
	}
	return nil
}

// Memory hands out serials from per-kind atomic counters
type Memory struct {
	mu       sync.RWMutex
	counters map[entity.Kind]*atomic.Uint64
	limit    uint64
}

// NewMemory creates an in-process sequence generator
func NewMemory() *Memory {
	return &Memory{counters: make(map[entity.Kind]*atomic.Uint64), limit: MaxSerial}
}

// Next returns the next serial for kind
func (m *Memory) Next(_ context.Context, kind entity.Kind) (uint64, error) {
	if err := checkKind(kind); err != nil {
		return 0, err
	}

	counter := m.counter(kind)
	for {
		current := counter.Load()
		if current >= m.limit {
			return 0, exhausted(kind)
		}
		if counter.CompareAndSwap(current, current+1) {
			return current + 1, nil
		}
	}
}

func (m *Memory) counter(kind entity.Kind) *atomic.Uint64 {
	m.mu.RLock()
	c, ok := m.counters[kind]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[kind]; ok {
		return c
	}
	c = &atomic.Uint64{}
	m.counters[kind] = c
	return c
}

var _ port.SequenceGenerator = (*Memory)(nil)
