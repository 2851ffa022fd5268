package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/adapters/warehouse"
)

func newTestGateway(engine warehouse.Engine, scope []string) *ExecutionGateway {
	return NewExecutionGateway(engine, scope, 1_000_000, 5*time.Second, zap.NewNop())
}

func TestGatewayExecute_Allowed(t *testing.T) {
	engine := &warehouse.MockEngine{
		Result: &warehouse.ExecutionResult{
			Success:   true,
			Rows:      []map[string]any{{"n": int64(1)}},
			TotalRows: 1,
		},
	}
	gw := newTestGateway(engine, nil)

	result := gw.Execute(context.Background(), "SELECT 1 AS n", ExecuteOptions{})

	require.True(t, result.Success)
	assert.Equal(t, 1, engine.RunCalls)
	assert.Equal(t, int64(1_000_000), engine.LastOpts.MaxBytesBilled)
	assert.Equal(t, 5*time.Second, engine.LastOpts.Timeout)
}

func TestGatewayExecute_RefusesDeniedSQL(t *testing.T) {
	engine := &warehouse.MockEngine{}
	gw := newTestGateway(engine, nil)

	tests := []string{
		"DROP TABLE users",
		"DELETE FROM orders",
		"SELECT 1; DROP TABLE users",
		"INSERT INTO t VALUES (1)",
	}

	for _, sqlText := range tests {
		result := gw.Execute(context.Background(), sqlText, ExecuteOptions{})

		assert.False(t, result.Success, sqlText)
		require.NotNil(t, result.Error, sqlText)
		assert.Equal(t, warehouse.ErrCategoryValidation, result.Error.Category)
	}

	// The engine is never reached for refused statements.
	assert.Equal(t, 0, engine.RunCalls)
}

func TestGatewayExecute_RevalidatesEveryCall(t *testing.T) {
	// A caller claiming prior validation gets re-checked anyway: the
	// gateway has no "already validated" input to trust.
	engine := &warehouse.MockEngine{}
	gw := newTestGateway(engine, nil)

	gw.Execute(context.Background(), "SELECT 1 FROM t", ExecuteOptions{})
	gw.Execute(context.Background(), "TRUNCATE t", ExecuteOptions{})

	assert.Equal(t, 1, engine.RunCalls)
}

func TestGatewayExecute_DryRunNeverReturnsRows(t *testing.T) {
	engine := &warehouse.MockEngine{
		RunFunc: func(_ context.Context, _ string, opts warehouse.RunOptions) (*warehouse.ExecutionResult, error) {
			require.True(t, opts.DryRun)
			return &warehouse.ExecutionResult{Success: true, BytesProcessed: 4096}, nil
		},
	}
	gw := newTestGateway(engine, nil)

	result := gw.Execute(context.Background(), "SELECT * FROM big_table", ExecuteOptions{DryRun: true})

	require.True(t, result.Success)
	assert.Nil(t, result.Rows)
	assert.Equal(t, int64(4096), result.BytesProcessed)
}

func TestGatewayExecute_ScopeEnforced(t *testing.T) {
	engine := &warehouse.MockEngine{}
	gw := newTestGateway(engine, []string{"analytics"})

	allowed := gw.Execute(context.Background(), "SELECT * FROM analytics.events", ExecuteOptions{})
	assert.True(t, allowed.Success)

	denied := gw.Execute(context.Background(), "SELECT * FROM private.salaries", ExecuteOptions{})
	require.NotNil(t, denied.Error)
	assert.Equal(t, warehouse.ErrCategoryValidation, denied.Error.Category)
	assert.Contains(t, denied.Error.Detail, "private.salaries")
}

func TestGatewayExecute_TimeoutSurfacesAsFailure(t *testing.T) {
	engine := &warehouse.MockEngine{
		Result: &warehouse.ExecutionResult{
			Success: false,
			Error: &warehouse.EngineError{
				Category: warehouse.ErrCategoryTimeout,
				Detail:   "query exceeded 5s",
			},
		},
	}
	gw := newTestGateway(engine, nil)

	result := gw.Execute(context.Background(), "SELECT pg_sleep(60)", ExecuteOptions{Timeout: 5 * time.Second})

	assert.False(t, result.Success)
	assert.Equal(t, warehouse.ErrCategoryTimeout, result.Error.Category)
}

func TestGatewayExecute_CallOptionsOverrideDefaults(t *testing.T) {
	engine := &warehouse.MockEngine{}
	gw := newTestGateway(engine, nil)

	gw.Execute(context.Background(), "SELECT 1 FROM t", ExecuteOptions{
		MaxBytesBilled: 42,
		Timeout:        time.Second,
	})

	assert.Equal(t, int64(42), engine.LastOpts.MaxBytesBilled)
	assert.Equal(t, time.Second, engine.LastOpts.Timeout)
}

func TestGatewayExecuteWithParams_ScreensInjection(t *testing.T) {
	engine := &warehouse.MockEngine{}
	gw := newTestGateway(engine, nil)

	result := gw.ExecuteWithParams(context.Background(),
		"SELECT * FROM users WHERE name = @name",
		map[string]any{"name": "'; DROP TABLE users--"},
		ExecuteOptions{})

	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, warehouse.ErrCategoryValidation, result.Error.Category)
	assert.Contains(t, result.Error.Detail, "name")
	assert.Equal(t, 0, engine.RunCalls)
}

func TestGatewayExecuteWithParams_CleanParamsPass(t *testing.T) {
	engine := &warehouse.MockEngine{}
	gw := newTestGateway(engine, nil)

	params := map[string]any{"city": "Lisbon", "limit": 10}
	result := gw.ExecuteWithParams(context.Background(),
		"SELECT * FROM users WHERE city = @city",
		params, ExecuteOptions{})

	assert.True(t, result.Success)
	assert.Equal(t, 1, engine.RunCalls)
	assert.Equal(t, params, engine.LastOpts.Params)
}
