// Package postgres implements the warehouse engine against PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/adapters/warehouse"
	"github.com/querypilot/querypilot-engine/pkg/logging"
)

// Executor runs read-only SQL on a pgx pool. Cost ceilings are checked
// against the planner's estimate before any row is fetched.
type Executor struct {
	pool    *pgxpool.Pool
	maxRows int
	logger  *zap.Logger
}

var _ warehouse.Engine = (*Executor)(nil)

// NewExecutor creates a Postgres-backed engine. maxRows caps result
// size; 0 means unlimited.
func NewExecutor(pool *pgxpool.Pool, maxRows int, logger *zap.Logger) *Executor {
	return &Executor{
		pool:    pool,
		maxRows: maxRows,
		logger:  logger.Named("warehouse.postgres"),
	}
}

// Run executes the SQL within the options' bounds. Failures are folded
// into the result; the error return is reserved for invalid options.
func (e *Executor) Run(ctx context.Context, sqlText string, opts warehouse.RunOptions) (*warehouse.ExecutionResult, error) {
	start := time.Now()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	query, args, err := bindNamedParams(sqlText, opts.Params)
	if err != nil {
		return failure(warehouse.ErrCategoryEngine, err.Error(), start), nil
	}

	estimate, err := e.estimateBytes(ctx, query, args)
	if err != nil {
		return failure(categorize(err), logging.SanitizeError(err), start), nil
	}

	if opts.MaxBytesBilled > 0 && estimate > opts.MaxBytesBilled {
		detail := fmt.Sprintf("estimated %d bytes exceeds ceiling of %d", estimate, opts.MaxBytesBilled)
		e.logger.Warn("billing ceiling refused query",
			zap.Int64("estimate", estimate),
			zap.Int64("ceiling", opts.MaxBytesBilled))
		return failure(warehouse.ErrCategoryBilling, detail, start), nil
	}

	if opts.DryRun {
		return &warehouse.ExecutionResult{
			Success:         true,
			BytesProcessed:  estimate,
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	rows, err := e.pool.Query(ctx, query, args...)
	if err != nil {
		return failure(categorize(err), logging.SanitizeError(err), start), nil
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []map[string]any
	var total int64

	for rows.Next() {
		total++
		if e.maxRows > 0 && len(out) >= e.maxRows {
			continue
		}

		values, err := rows.Values()
		if err != nil {
			return failure(warehouse.ErrCategoryEngine, logging.SanitizeError(err), start), nil
		}

		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return failure(categorize(err), logging.SanitizeError(err), start), nil
	}

	elapsed := time.Since(start)
	e.logger.Info("query executed",
		zap.String("sql", logging.TruncateQuery(sqlText)),
		zap.Int64("rows", total),
		zap.Duration("elapsed", elapsed))

	return &warehouse.ExecutionResult{
		Success:         true,
		Rows:            out,
		TotalRows:       total,
		BytesProcessed:  estimate,
		ExecutionTimeMs: elapsed.Milliseconds(),
	}, nil
}

// estimateBytes asks the planner for a cost estimate and converts it to
// a byte figure from plan rows times average row width.
func (e *Executor) estimateBytes(ctx context.Context, query string, args []any) (int64, error) {
	var planJSON []byte
	err := e.pool.QueryRow(ctx, "EXPLAIN (FORMAT JSON) "+query, args...).Scan(&planJSON)
	if err != nil {
		return 0, fmt.Errorf("explain: %w", err)
	}

	var plans []struct {
		Plan struct {
			PlanRows  float64 `json:"Plan Rows"`
			PlanWidth float64 `json:"Plan Width"`
		} `json:"Plan"`
	}
	if err := json.Unmarshal(planJSON, &plans); err != nil {
		return 0, fmt.Errorf("parse plan: %w", err)
	}
	if len(plans) == 0 {
		return 0, fmt.Errorf("empty plan")
	}

	return int64(plans[0].Plan.PlanRows * plans[0].Plan.PlanWidth), nil
}

func failure(category, detail string, start time.Time) *warehouse.ExecutionResult {
	return &warehouse.ExecutionResult{
		Success:         false,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
		Error: &warehouse.EngineError{
			Category: category,
			Detail:   detail,
		},
	}
}

func categorize(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return warehouse.ErrCategoryTimeout
	case errors.Is(err, context.Canceled):
		return warehouse.ErrCategoryCanceled
	default:
		return warehouse.ErrCategoryEngine
	}
}

var namedParamPattern = regexp.MustCompile(`@(\w+)`)

// bindNamedParams rewrites @name placeholders to positional $n
// arguments in order of first appearance. Every placeholder must have
// a value; unused params are ignored.
func bindNamedParams(sqlText string, params map[string]any) (string, []any, error) {
	if len(params) == 0 {
		return sqlText, nil, nil
	}

	var args []any
	positions := make(map[string]int)
	var missing string

	rewritten := namedParamPattern.ReplaceAllStringFunc(sqlText, func(m string) string {
		name := m[1:]
		if pos, ok := positions[name]; ok {
			return fmt.Sprintf("$%d", pos)
		}
		value, ok := params[name]
		if !ok {
			missing = name
			return m
		}
		args = append(args, value)
		positions[name] = len(args)
		return fmt.Sprintf("$%d", len(args))
	})

	if missing != "" {
		return "", nil, fmt.Errorf("no value for parameter @%s", missing)
	}
	return rewritten, args, nil
}
