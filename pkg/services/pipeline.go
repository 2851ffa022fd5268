// Package services holds the retrieval-augmented query pipeline and the
// execution gateway.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/extract"
	"github.com/querypilot/querypilot-engine/pkg/llm"
	"github.com/querypilot/querypilot-engine/pkg/logging"
	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/schema"
	"github.com/querypilot/querypilot-engine/pkg/sql"
	"github.com/querypilot/querypilot-engine/pkg/vectorstore"
)

// QueryOptions tunes one pipeline run. Zero values fall back to the
// service's configured defaults.
type QueryOptions struct {
	AgentType        models.AgentType
	TopK             int
	SchemaInjection  bool
	SQLValidation    bool
	AllowModelAssist bool
	Conversation     []string // prior turns, oldest first
}

// QueryService runs the retrieval-augmented pipeline: retrieve, inject
// schema, prompt, generate, extract, validate, assemble. It holds no
// per-request state and is safe for concurrent use.
type QueryService struct {
	llmClient    llm.LLMClient
	index        vectorstore.Index
	catalog      *schema.Catalog
	extractor    *extract.Extractor
	allowedScope []string
	temperature  float64
	timeout      time.Duration
	logger       *zap.Logger
}

// NewQueryService wires the pipeline's collaborators. catalog may be
// nil; schema injection is then skipped. allowedScope may be nil to
// disable the dataset-scope validation rule.
func NewQueryService(
	llmClient llm.LLMClient,
	index vectorstore.Index,
	catalog *schema.Catalog,
	extractor *extract.Extractor,
	allowedScope []string,
	temperature float64,
	timeout time.Duration,
	logger *zap.Logger,
) *QueryService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &QueryService{
		llmClient:    llmClient,
		index:        index,
		catalog:      catalog,
		extractor:    extractor,
		allowedScope: allowedScope,
		temperature:  temperature,
		timeout:      timeout,
		logger:       logger.Named("pipeline"),
	}
}

// RunQuery executes the full pipeline for one question. It never
// returns an error: every failure is folded into the response's Error
// field with a machine-readable code. A DENY verdict is not a failure.
func (s *QueryService) RunQuery(ctx context.Context, question string, opts QueryOptions) *models.PipelineResponse {
	start := time.Now()
	resp := &models.PipelineResponse{RequestID: uuid.New()}

	if strings.TrimSpace(question) == "" {
		resp.Error = &models.PipelineError{
			Code:    models.ErrCodeEmptyQuestion,
			Message: apperrors.ErrEmptyQuestion.Error(),
		}
		resp.ProcessingTimeMs = time.Since(start).Milliseconds()
		return resp
	}

	if !opts.AgentType.Valid() {
		opts.AgentType = models.AgentDefault
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}

	log := s.logger.With(zap.String("request_id", resp.RequestID.String()))

	candidates, err := s.index.Search(ctx, question, opts.TopK)
	if err != nil {
		log.Error("retrieval failed", zap.Error(err))
		resp.Error = &models.PipelineError{
			Code:    models.ErrCodeVectorStoreUnavailable,
			Message: apperrors.ErrVectorStoreUnavailable.Error() + ": " + logging.SanitizeError(err),
		}
		resp.ProcessingTimeMs = time.Since(start).Milliseconds()
		return resp
	}

	for _, c := range candidates {
		resp.Sources = append(resp.Sources, models.RetrievedExample{
			Query:       c.Metadata.Query,
			Description: c.Metadata.Description,
			Tables:      c.Metadata.Tables,
			Score:       c.Score,
		})
	}

	schemaDescription := ""
	if opts.SchemaInjection && s.catalog != nil {
		schemaDescription = s.catalog.Describe(referencedTables(candidates))
	}

	prompt := buildPrompt(question, schemaDescription, summarizeConversation(opts.Conversation), candidates)

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.llmClient.GenerateResponse(genCtx, prompt, systemMessageFor(opts.AgentType), s.temperature)
	if err != nil {
		log.Error("generation failed", zap.Error(err))
		resp.Error = &models.PipelineError{
			Code:    models.ErrCodeGenerationFailed,
			Message: apperrors.ErrGenerationFailed.Error() + ": " + logging.SanitizeError(err),
		}
		resp.ProcessingTimeMs = time.Since(start).Milliseconds()
		return resp
	}

	resp.Answer = result.Content
	resp.TokenUsage.Add(result.PromptTokens, result.CompletionTokens, result.TotalTokens)

	if candidate := s.extractor.ExtractSQL(ctx, result.Content, opts.AllowModelAssist); candidate != nil {
		resp.SQL = &candidate.SQL
		resp.TokenUsage.Add(candidate.PromptTokens, candidate.CompletionTokens, candidate.TotalTokens)

		if opts.SQLValidation {
			verdict := sql.Validate(candidate.SQL, s.allowedScope)
			resp.Verdict = &verdict
			if !verdict.Valid {
				log.Info("generated SQL denied",
					zap.String("sql", logging.TruncateQuery(candidate.SQL)),
					zap.String("reason", verdict.Message))
			}
		}
	}

	elapsed := time.Since(start)
	resp.ProcessingTimeMs = elapsed.Milliseconds()
	log.Info("pipeline completed",
		zap.Int("sources", len(resp.Sources)),
		zap.Bool("sql_extracted", resp.SQL != nil),
		zap.Int("total_tokens", resp.TokenUsage.TotalTokens),
		zap.Duration("elapsed", elapsed))

	return resp
}

// Validate exposes the safety validator for ad-hoc checks, using the
// service's configured dataset scope.
func (s *QueryService) Validate(sqlText string) sql.Verdict {
	return sql.Validate(sqlText, s.allowedScope)
}

// referencedTables collects the distinct tables named by the retrieved
// documents' metadata, preserving first-seen order.
func referencedTables(candidates []vectorstore.Candidate) []string {
	var tables []string
	seen := make(map[string]bool)
	for _, c := range candidates {
		for _, table := range c.Metadata.Tables {
			key := strings.ToLower(table)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			tables = append(tables, table)
		}
	}
	return tables
}

// summarizeConversation flattens prior turns into a compact block for
// the prompt. Long histories keep only the most recent turns.
func summarizeConversation(turns []string) string {
	const maxTurns = 6
	if len(turns) == 0 {
		return ""
	}
	if len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}

	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s", strings.TrimSpace(turn))
	}
	return b.String()
}
