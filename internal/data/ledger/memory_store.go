package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps publications in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	seq  int64
	rows map[uuid.UUID]*memoryRow
}

type memoryRow struct {
	seq int64
	pub Publication
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[uuid.UUID]*memoryRow)}
}

func (s *MemoryStore) Insert(_ context.Context, p Publication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[p.ID]; exists {
		return fmt.Errorf("publication %s already exists", p.ID)
	}
	s.seq++
	s.rows[p.ID] = &memoryRow{seq: s.seq, pub: clonePublication(p)}
	return nil
}

func (s *MemoryStore) Complete(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.pub.CompletedAt != nil {
		return false, nil
	}
	completed := at
	row.pub.CompletedAt = &completed
	return true, nil
}

func (s *MemoryStore) FindIncomplete(_ context.Context) ([]Publication, error) {
	s.mu.RLock()
	rows := make([]*memoryRow, 0, len(s.rows))
	for _, row := range s.rows {
		if row.pub.CompletedAt == nil {
			rows = append(rows, row)
		}
	}
	s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].pub.PublishedAt.Equal(rows[j].pub.PublishedAt) {
			return rows[i].pub.PublishedAt.Before(rows[j].pub.PublishedAt)
		}
		return rows[i].seq < rows[j].seq
	})
	out := make([]Publication, 0, len(rows))
	for _, row := range rows {
		out = append(out, clonePublication(row.pub))
	}
	return out, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (Publication, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id]
	if !ok {
		return Publication{}, false, nil
	}
	return clonePublication(row.pub), true, nil
}

func (s *MemoryStore) DeleteCompletedBefore(_ context.Context, t time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, row := range s.rows {
		if row.pub.CompletedAt != nil && row.pub.CompletedAt.Before(t) {
			delete(s.rows, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func clonePublication(p Publication) Publication {
	if p.CompletedAt != nil {
		completed := *p.CompletedAt
		p.CompletedAt = &completed
	}
	return p
}
