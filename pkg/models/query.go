// Package models defines the data structures shared across services and
// handlers.
package models

import (
	"github.com/google/uuid"

	"github.com/querypilot/querypilot-engine/pkg/sql"
)

// AgentType selects the answer persona for a pipeline run.
type AgentType string

const (
	AgentDefault  AgentType = "default"
	AgentExplain  AgentType = "explain"
	AgentCreate   AgentType = "create"
	AgentDetailed AgentType = "detailed"
)

// Valid reports whether the agent type is one of the known personas.
func (a AgentType) Valid() bool {
	switch a {
	case AgentDefault, AgentExplain, AgentCreate, AgentDetailed:
		return true
	}
	return false
}

// QueryRequest is a natural-language question submitted to the pipeline.
type QueryRequest struct {
	Question  string    `json:"question"`
	AgentType AgentType `json:"agent_type,omitempty"`
}

// RetrievedExample is a historical question/SQL pair surfaced by the
// vector store, carried through to the response for attribution.
type RetrievedExample struct {
	Query       string   `json:"query"`
	Description string   `json:"description,omitempty"`
	Tables      []string `json:"tables,omitempty"`
	Score       float64  `json:"score"`
}

// TokenUsage sums the token counts of all model calls in a run.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another call's usage.
func (u *TokenUsage) Add(prompt, completion, total int) {
	u.PromptTokens += prompt
	u.CompletionTokens += completion
	u.TotalTokens += total
}

// Pipeline error codes, reported in PipelineError.Code.
const (
	ErrCodeEmptyQuestion          = "empty_question"
	ErrCodeVectorStoreUnavailable = "vector_store_unavailable"
	ErrCodeGenerationFailed       = "generation_failed"
)

// PipelineError is a structured pipeline failure.
type PipelineError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PipelineResponse is the full result of a retrieval-augmented run.
// A DENY verdict is carried in Verdict, not in Error: the pipeline
// completed, it just refused to bless the SQL.
type PipelineResponse struct {
	RequestID        uuid.UUID          `json:"request_id"`
	Answer           string             `json:"answer,omitempty"`
	SQL              *string            `json:"sql,omitempty"`
	Verdict          *sql.Verdict       `json:"verdict,omitempty"`
	Sources          []RetrievedExample `json:"sources,omitempty"`
	TokenUsage       TokenUsage         `json:"token_usage"`
	ProcessingTimeMs int64              `json:"processing_time_ms"`
	Error            *PipelineError     `json:"error,omitempty"`
}

// ValidateRequest asks only for a safety verdict on raw SQL.
type ValidateRequest struct {
	SQL string `json:"sql"`
}

// ExecuteRequest submits SQL for gated execution.
type ExecuteRequest struct {
	SQL    string         `json:"sql"`
	Params map[string]any `json:"params,omitempty"`
	DryRun bool           `json:"dry_run,omitempty"`
}
