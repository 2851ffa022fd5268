package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/llm"
)

// PgVectorStore stores documents in the query_embeddings table and
// searches them with pgvector cosine distance. Safe for concurrent use.
type PgVectorStore struct {
	pool           *pgxpool.Pool
	llmClient      llm.LLMClient
	embeddingModel string
	logger         *zap.Logger
}

var _ Store = (*PgVectorStore)(nil)

// NewPgVectorStore creates a pgvector-backed store. embeddingModel may
// be empty to use the client's default.
func NewPgVectorStore(pool *pgxpool.Pool, llmClient llm.LLMClient, embeddingModel string, logger *zap.Logger) *PgVectorStore {
	return &PgVectorStore{
		pool:           pool,
		llmClient:      llmClient,
		embeddingModel: embeddingModel,
		logger:         logger.Named("vectorstore"),
	}
}

// Upsert embeds the document content and writes it, replacing any
// existing row with the same ID.
func (s *PgVectorStore) Upsert(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Content == "" {
		return fmt.Errorf("document %s has empty content", doc.ID)
	}

	embedding, err := s.llmClient.CreateEmbedding(ctx, doc.Content, s.embeddingModel)
	if err != nil {
		return fmt.Errorf("embed document %s: %w", doc.ID, err)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	const query = `
		INSERT INTO query_embeddings (id, content, metadata, embedding, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			updated_at = EXCLUDED.updated_at`

	_, err = s.pool.Exec(ctx, query,
		doc.ID, doc.Content, metadataJSON, pgvector.NewVector(embedding), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.ID, err)
	}

	s.logger.Debug("document indexed", zap.String("id", doc.ID))
	return nil
}

// Search embeds the query text and returns the k nearest documents by
// cosine similarity.
func (s *PgVectorStore) Search(ctx context.Context, query string, k int) ([]Candidate, error) {
	if k <= 0 {
		k = 5
	}

	embedding, err := s.llmClient.CreateEmbedding(ctx, query, s.embeddingModel)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	const sqlQuery = `
		SELECT content, metadata, 1 - (embedding <=> $1) AS similarity
		FROM query_embeddings
		ORDER BY embedding <=> $1
		LIMIT $2`

	rows, err := s.pool.Query(ctx, sqlQuery, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrVectorStoreUnavailable, err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var (
			content      string
			metadataJSON []byte
			similarity   float64
		)
		if err := rows.Scan(&content, &metadataJSON, &similarity); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}

		var meta Metadata
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &meta); err != nil {
				s.logger.Warn("malformed document metadata", zap.Error(err))
			}
		}

		candidates = append(candidates, Candidate{
			Content:  content,
			Score:    similarity,
			Metadata: meta,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}

	s.logger.Debug("vector search completed",
		zap.Int("k", k),
		zap.Int("hits", len(candidates)))

	return candidates, nil
}

// Count returns the number of indexed documents.
func (s *PgVectorStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM query_embeddings`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}
