package vectorstore

import (
	"context"
	"sync"
)

// MockIndex implements Index for testing. Set SearchFunc to control
// results; Candidates is returned when SearchFunc is nil.
type MockIndex struct {
	mu sync.Mutex

	SearchFunc func(ctx context.Context, query string, k int) ([]Candidate, error)
	Candidates []Candidate

	SearchCalls int
	LastQuery   string
	LastK       int
}

var _ Index = (*MockIndex)(nil)

func (m *MockIndex) Search(ctx context.Context, query string, k int) ([]Candidate, error) {
	m.mu.Lock()
	m.SearchCalls++
	m.LastQuery = query
	m.LastK = k
	fn := m.SearchFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, query, k)
	}
	if k < len(m.Candidates) {
		return m.Candidates[:k], nil
	}
	return m.Candidates, nil
}
