// Package extract pulls SQL statements out of free-form model output.
package extract

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/llm"
)

// Extraction methods, reported in Candidate.Method.
const (
	MethodFencedBlock       = "fenced_block"
	MethodStatementBoundary = "statement_boundary"
	MethodModelAssist       = "model_assist"
)

// noSQLSentinel is what the assist model returns when the text holds
// no SQL.
const noSQLSentinel = "NO_SQL_FOUND"

// minStatementLength rejects noise matches from the statement-boundary
// pattern. Fenced blocks are explicit enough to skip the check.
const minStatementLength = 10

// Candidate is an extracted SQL statement with its provenance. Token
// fields are non-zero only when model assist produced the result.
type Candidate struct {
	SQL        string
	Method     string
	Confidence float64

	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

var (
	fencedBlockPattern = regexp.MustCompile("(?s)```(?:sql)?\\s*\\n?(.*?)```")
	statementPattern   = regexp.MustCompile(`(?is)\b(?:SELECT|WITH|INSERT|UPDATE|DELETE)\b.*?(?:;|\z)`)
	sqlKeywordPattern  = regexp.MustCompile(`(?i)\b(?:SELECT|WITH|INSERT|UPDATE|DELETE)\b`)
)

// strategy attempts one extraction approach. A nil result means "this
// strategy found nothing"; the next one is tried.
type strategy func(ctx context.Context, text string, allowModelAssist bool) *Candidate

// Extractor tries an ordered list of strategies and returns the first
// accepted candidate.
type Extractor struct {
	llmClient  llm.LLMClient
	strategies []strategy
	logger     *zap.Logger
}

// NewExtractor creates an extractor. llmClient may be nil when model
// assist will never be enabled.
func NewExtractor(llmClient llm.LLMClient, logger *zap.Logger) *Extractor {
	e := &Extractor{
		llmClient: llmClient,
		logger:    logger.Named("extract"),
	}
	e.strategies = []strategy{
		e.fromFencedBlock,
		e.fromStatementBoundary,
		e.fromModelAssist,
	}
	return e
}

// ExtractSQL returns the first SQL candidate found in the text, or nil
// when no strategy yields one. Finding nothing is a normal outcome,
// not an error.
func (e *Extractor) ExtractSQL(ctx context.Context, text string, allowModelAssist bool) *Candidate {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	for _, try := range e.strategies {
		if c := try(ctx, text, allowModelAssist); c != nil {
			e.logger.Debug("SQL extracted",
				zap.String("method", c.Method),
				zap.Int("length", len(c.SQL)))
			return c
		}
	}

	e.logger.Debug("no SQL found in text", zap.Int("text_length", len(text)))
	return nil
}

// looksLikeSQL is the shared acceptance check: the candidate must carry
// at least one statement-level SQL keyword. DML statements still count
// as "looks like SQL" here; whether they are allowed is the safety
// validator's concern.
func looksLikeSQL(candidate string) bool {
	return sqlKeywordPattern.MatchString(candidate)
}

func (e *Extractor) fromFencedBlock(_ context.Context, text string, _ bool) *Candidate {
	for _, m := range fencedBlockPattern.FindAllStringSubmatch(text, -1) {
		content := strings.TrimSpace(m[1])
		if content == "" || !looksLikeSQL(content) {
			continue
		}
		return &Candidate{
			SQL:        content,
			Method:     MethodFencedBlock,
			Confidence: 0.9,
		}
	}
	return nil
}

func (e *Extractor) fromStatementBoundary(_ context.Context, text string, _ bool) *Candidate {
	m := statementPattern.FindString(text)
	candidate := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m), ";"))
	if len(candidate) < minStatementLength || !looksLikeSQL(candidate) {
		return nil
	}
	return &Candidate{
		SQL:        candidate,
		Method:     MethodStatementBoundary,
		Confidence: 0.6,
	}
}

const assistSystemMessage = "You extract SQL statements from text. " +
	"Reply with only the SQL statement, no commentary and no code fences. " +
	"If the text contains no SQL, reply with exactly " + noSQLSentinel + "."

func (e *Extractor) fromModelAssist(ctx context.Context, text string, allowModelAssist bool) *Candidate {
	if !allowModelAssist || e.llmClient == nil {
		return nil
	}

	result, err := e.llmClient.GenerateResponse(ctx, text, assistSystemMessage, 0)
	if err != nil {
		e.logger.Warn("model-assisted extraction failed", zap.Error(err))
		return nil
	}

	candidate := strings.TrimSpace(result.Content)
	if candidate == "" || strings.Contains(candidate, noSQLSentinel) || !looksLikeSQL(candidate) {
		return nil
	}

	return &Candidate{
		SQL:              candidate,
		Method:           MethodModelAssist,
		Confidence:       0.5,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		TotalTokens:      result.TotalTokens,
	}
}
