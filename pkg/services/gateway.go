package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/adapters/warehouse"
	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/logging"
	"github.com/querypilot/querypilot-engine/pkg/sql"
)

// ExecuteOptions bounds one gateway execution. Zero values fall back to
// the gateway's configured defaults.
type ExecuteOptions struct {
	DryRun         bool
	MaxBytesBilled int64
	Timeout        time.Duration
}

// ExecutionGateway is the only path to the warehouse engine. It
// re-validates every statement itself immediately before execution; a
// caller's claim that the SQL was already validated is never trusted.
type ExecutionGateway struct {
	engine         warehouse.Engine
	allowedScope   []string
	defaultCeiling int64
	defaultTimeout time.Duration
	logger         *zap.Logger
}

// NewExecutionGateway creates a gateway over the engine. defaultCeiling
// of 0 disables the byte ceiling unless a call supplies one.
func NewExecutionGateway(
	engine warehouse.Engine,
	allowedScope []string,
	defaultCeiling int64,
	defaultTimeout time.Duration,
	logger *zap.Logger,
) *ExecutionGateway {
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	return &ExecutionGateway{
		engine:         engine,
		allowedScope:   allowedScope,
		defaultCeiling: defaultCeiling,
		defaultTimeout: defaultTimeout,
		logger:         logger.Named("gateway"),
	}
}

// Execute validates and runs the SQL. On a DENY verdict the engine is
// never called and the result carries the verdict's message.
func (g *ExecutionGateway) Execute(ctx context.Context, sqlText string, opts ExecuteOptions) *warehouse.ExecutionResult {
	return g.run(ctx, sqlText, nil, opts)
}

// ExecuteWithParams behaves like Execute but screens every bind
// parameter for injection payloads before the engine sees them.
func (g *ExecutionGateway) ExecuteWithParams(ctx context.Context, sqlText string, params map[string]any, opts ExecuteOptions) *warehouse.ExecutionResult {
	if violations := sql.CheckParams(params); len(violations) > 0 {
		names := make([]string, len(violations))
		for i, v := range violations {
			names[i] = v.ParamName
		}
		g.logger.Warn("injection payload in parameters",
			zap.Strings("params", names))
		return refusal(fmt.Sprintf("injection detected in parameters: %s", strings.Join(names, ", ")))
	}
	return g.run(ctx, sqlText, params, opts)
}

func (g *ExecutionGateway) run(ctx context.Context, sqlText string, params map[string]any, opts ExecuteOptions) *warehouse.ExecutionResult {
	verdict := sql.Validate(sqlText, g.allowedScope)
	if !verdict.Valid {
		g.logger.Warn("execution refused",
			zap.String("sql", logging.TruncateQuery(sqlText)),
			zap.String("reason", verdict.Message))
		return refusal(fmt.Sprintf("%s: %s", apperrors.ErrValidationRefused, verdict.Message))
	}

	ceiling := opts.MaxBytesBilled
	if ceiling <= 0 {
		ceiling = g.defaultCeiling
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = g.defaultTimeout
	}

	result, err := g.engine.Run(ctx, sqlText, warehouse.RunOptions{
		DryRun:         opts.DryRun,
		MaxBytesBilled: ceiling,
		Timeout:        timeout,
		Params:         params,
	})
	if err != nil {
		// The engine contract folds failures into the result; an error
		// here means the call itself could not be made.
		g.logger.Error("engine call failed", zap.Error(err))
		return &warehouse.ExecutionResult{
			Success: false,
			Error: &warehouse.EngineError{
				Category: warehouse.ErrCategoryEngine,
				Detail:   logging.SanitizeError(err),
			},
		}
	}

	if result.Error != nil {
		g.logger.Warn("execution failed",
			zap.String("category", result.Error.Category),
			zap.String("detail", result.Error.Detail))
	}
	return result
}

func refusal(detail string) *warehouse.ExecutionResult {
	return &warehouse.ExecutionResult{
		Success: false,
		Error: &warehouse.EngineError{
			Category: warehouse.ErrCategoryValidation,
			Detail:   detail,
		},
	}
}
