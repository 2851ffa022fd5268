package warehouse

import (
	"context"
	"sync"
)

// MockEngine implements Engine for testing. Set RunFunc to control
// behavior; a nil RunFunc returns Result (or an empty success).
type MockEngine struct {
	mu sync.Mutex

	RunFunc func(ctx context.Context, sql string, opts RunOptions) (*ExecutionResult, error)
	Result  *ExecutionResult

	RunCalls int
	LastSQL  string
	LastOpts RunOptions
}

var _ Engine = (*MockEngine)(nil)

func (m *MockEngine) Run(ctx context.Context, sql string, opts RunOptions) (*ExecutionResult, error) {
	m.mu.Lock()
	m.RunCalls++
	m.LastSQL = sql
	m.LastOpts = opts
	fn := m.RunFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, sql, opts)
	}
	if m.Result != nil {
		return m.Result, nil
	}
	return &ExecutionResult{Success: true}, nil
}
