// Package memory implements the persistence ports in process memory.
// Stored entities are copied on the way in and out so callers never share
// state with the store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/entity"
)

type store[E any] struct {
	mu     sync.RWMutex
	kind   entity.Kind
	rows   map[int64]E
	nextID int64
	id     func(*E) *int64
}

func newStore[E any](kind entity.Kind, id func(*E) *int64) *store[E] {
	return &store[E]{kind: kind, rows: make(map[int64]E), id: id}
}

func (s *store[E]) create(v *E) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	*s.id(v) = s.nextID
	s.rows[s.nextID] = *v
}

func (s *store[E]) get(id int64) (*E, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s %d", entity.ErrNotFound, s.kind, id)
	}
	return &row, nil
}

func (s *store[E]) update(v *E) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := *s.id(v)
	if _, ok := s.rows[id]; !ok {
		return fmt.Errorf("%w: %s %d", entity.ErrNotFound, s.kind, id)
	}
	s.rows[id] = *v
	return nil
}

func (s *store[E]) find(match func(*E) bool) (*E, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, row := range s.rows {
		row := row
		if match(&row) {
			return &row, true
		}
	}
	return nil, false
}

// list returns matching rows ordered by id
func (s *store[E]) list(match func(*E) bool) []*E {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*E
	for _, row := range s.rows {
		row := row
		if match(&row) {
			result = append(result, &row)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return *s.id(result[i]) < *s.id(result[j])
	})
	return result
}

func eqInt64(filter *int64, v int64) bool {
	return filter == nil || *filter == v
}

func eqOptInt64(filter *int64, v *int64) bool {
	return filter == nil || (v != nil && *filter == *v)
}

func eqString(filter *string, v string) bool {
	return filter == nil || *filter == v
}

type txKey struct{}

// TxManager serializes transactions. It provides isolation but no rollback:
// writes made before a failing step stay visible.
type TxManager struct {
	mu sync.Mutex
}

// NewTxManager creates a new TxManager
func NewTxManager() *TxManager {
	return &TxManager{}
}

// WithTransaction runs fn exclusively; nested calls join the outer one
func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, true))
}

var _ port.TransactionManager = (*TxManager)(nil)

func notFoundVoucher(expenseRequestID int64) error {
	return fmt.Errorf("%w: %s for %s %d", entity.ErrNotFound, entity.KindVoucher, entity.KindExpenseRequest, expenseRequestID)
}
