package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockClient implements LLMClient for testing.
// Set the function fields to control behavior; unset fields return
// canned defaults. Call counters are safe for concurrent use.
type MockClient struct {
	mu sync.Mutex

	GenerateResponseFunc func(ctx context.Context, prompt, systemMessage string, temperature float64) (*GenerateResponseResult, error)
	CreateEmbeddingFunc  func(ctx context.Context, input, model string) ([]float32, error)
	CreateEmbeddingsFunc func(ctx context.Context, inputs []string, model string) ([][]float32, error)
	Model                string

	GenerateResponseCalls int
	CreateEmbeddingCalls  int
	CreateEmbeddingsCalls int

	// LastPrompt and LastSystemMessage record the most recent generation
	// request for assertions on prompt assembly.
	LastPrompt        string
	LastSystemMessage string
}

var _ LLMClient = (*MockClient)(nil)

// NewMockClient creates a mock that echoes a fixed response.
func NewMockClient() *MockClient {
	return &MockClient{Model: "mock-model"}
}

func (m *MockClient) GenerateResponse(ctx context.Context, prompt, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	m.mu.Lock()
	m.GenerateResponseCalls++
	m.LastPrompt = prompt
	m.LastSystemMessage = systemMessage
	fn := m.GenerateResponseFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt, systemMessage, temperature)
	}
	return &GenerateResponseResult{
		Content:          "mock response",
		PromptTokens:     10,
		CompletionTokens: 5,
		TotalTokens:      15,
	}, nil
}

func (m *MockClient) CreateEmbedding(ctx context.Context, input, model string) ([]float32, error) {
	m.mu.Lock()
	m.CreateEmbeddingCalls++
	fn := m.CreateEmbeddingFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, input, model)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *MockClient) CreateEmbeddings(ctx context.Context, inputs []string, model string) ([][]float32, error) {
	m.mu.Lock()
	m.CreateEmbeddingsCalls++
	fn := m.CreateEmbeddingsFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, inputs, model)
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (m *MockClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// FailingMockClient returns a mock whose generation always fails with
// the given error.
func FailingMockClient(err error) *MockClient {
	return &MockClient{
		Model: "mock-model",
		GenerateResponseFunc: func(context.Context, string, string, float64) (*GenerateResponseResult, error) {
			return nil, fmt.Errorf("generate: %w", err)
		},
	}
}
