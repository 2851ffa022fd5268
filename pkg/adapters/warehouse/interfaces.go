// Package warehouse defines the query engine abstraction the execution
// gateway runs against.
package warehouse

import (
	"context"
	"time"
)

// Error categories, reported in EngineError.Category. Detail keeps the
// engine's own message; callers never see driver exception types.
const (
	ErrCategoryTimeout    = "timeout"
	ErrCategoryBilling    = "billing_ceiling"
	ErrCategoryEngine     = "engine"
	ErrCategoryCanceled   = "canceled"
	ErrCategoryValidation = "validation"
)

// EngineError is a categorized execution failure.
type EngineError struct {
	Category string `json:"category"`
	Detail   string `json:"detail"`
}

// ExecutionResult is the outcome of one Run call. On dry runs Rows is
// always nil and BytesProcessed holds the estimate. ExecutionTimeMs is
// whole milliseconds, matching its wire name.
type ExecutionResult struct {
	Success         bool             `json:"success"`
	Rows            []map[string]any `json:"rows,omitempty"`
	TotalRows       int64            `json:"total_rows"`
	BytesProcessed  int64            `json:"bytes_processed"`
	CacheHit        bool             `json:"cache_hit"`
	ExecutionTimeMs int64            `json:"execution_time_ms"`
	Error           *EngineError     `json:"error,omitempty"`
}

// RunOptions bounds one execution.
type RunOptions struct {
	DryRun         bool
	MaxBytesBilled int64 // 0 disables the ceiling
	Timeout        time.Duration
	Params         map[string]any // positional names are not supported; bound in name order
}

// Engine executes already-validated SQL against a warehouse. Failures
// come back inside the result, never as a raw driver error.
type Engine interface {
	Run(ctx context.Context, sql string, opts RunOptions) (*ExecutionResult, error)
}
