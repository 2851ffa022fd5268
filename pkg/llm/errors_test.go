package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      ErrorType
		wantRetryable bool
	}{
		{
			name:          "auth failure",
			err:           &openai.APIError{HTTPStatusCode: 401, Message: "invalid api key"},
			wantType:      ErrorTypeAuth,
			wantRetryable: false,
		},
		{
			name:          "model not found",
			err:           &openai.APIError{HTTPStatusCode: 404, Message: "model does not exist"},
			wantType:      ErrorTypeModel,
			wantRetryable: false,
		},
		{
			name:          "rate limited",
			err:           &openai.APIError{HTTPStatusCode: 429, Message: "rate limit exceeded"},
			wantType:      ErrorTypeRate,
			wantRetryable: true,
		},
		{
			name:          "server error",
			err:           &openai.APIError{HTTPStatusCode: 503, Message: "overloaded"},
			wantType:      ErrorTypeEndpoint,
			wantRetryable: true,
		},
		{
			name:          "connection refused",
			err:           errors.New("dial tcp 127.0.0.1:8080: connection refused"),
			wantType:      ErrorTypeEndpoint,
			wantRetryable: true,
		},
		{
			name:          "unknown",
			err:           errors.New("something odd"),
			wantType:      ErrorTypeUnknown,
			wantRetryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)

			var classified *Error
			require.True(t, errors.As(got, &classified))
			assert.Equal(t, tt.wantType, classified.Type)
			assert.Equal(t, tt.wantRetryable, classified.IsRetryable())
		})
	}
}

func TestClassifyError_Nil(t *testing.T) {
	assert.Nil(t, ClassifyError(nil))
}

func TestClassifyError_Passthrough(t *testing.T) {
	orig := &Error{Type: ErrorTypeAuth, Message: "bad key"}
	wrapped := fmt.Errorf("request failed: %w", orig)

	got := ClassifyError(wrapped)
	assert.Equal(t, wrapped, got)
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Type: ErrorTypeUnknown, Message: "wrapped", Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "wrapped")
}
