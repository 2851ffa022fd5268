// Package vectorstore provides similarity search over historical
// question/SQL pairs, backed by PostgreSQL with pgvector.
package vectorstore

import (
	"context"
)

// Metadata describes where a stored document came from.
type Metadata struct {
	Query       string   `json:"query"`
	Description string   `json:"description,omitempty"`
	Tables      []string `json:"tables,omitempty"`
}

// Document is a unit of content indexed for retrieval.
type Document struct {
	ID       string
	Content  string
	Metadata Metadata
}

// Candidate is one retrieval hit: content plus similarity score in
// [0, 1], higher is closer.
type Candidate struct {
	Content  string
	Score    float64
	Metadata Metadata
}

// Index is the read side of the store; the pipeline depends only on
// this.
type Index interface {
	// Search returns the k nearest documents for the query text,
	// ordered by descending similarity.
	Search(ctx context.Context, query string, k int) ([]Candidate, error)
}

// Store extends Index with indexing operations.
type Store interface {
	Index

	// Upsert inserts or replaces a document by ID, embedding its
	// content.
	Upsert(ctx context.Context, doc Document) error

	// Count returns the number of indexed documents.
	Count(ctx context.Context) (int64, error)
}
