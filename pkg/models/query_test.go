package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentTypeValid(t *testing.T) {
	assert.True(t, AgentDefault.Valid())
	assert.True(t, AgentDetailed.Valid())
	assert.False(t, AgentType("poet").Valid())
	assert.False(t, AgentType("").Valid())
}

func TestTokenUsageAdd(t *testing.T) {
	var u TokenUsage
	u.Add(10, 5, 15)
	u.Add(2, 3, 5)
	assert.Equal(t, TokenUsage{PromptTokens: 12, CompletionTokens: 8, TotalTokens: 20}, u)
}

// The processing_time_ms wire field carries whole milliseconds, not a
// Duration's nanoseconds.
func TestPipelineResponse_ProcessingTimeMarshalsAsMilliseconds(t *testing.T) {
	resp := PipelineResponse{ProcessingTimeMs: 42}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(42), decoded["processing_time_ms"])
}
