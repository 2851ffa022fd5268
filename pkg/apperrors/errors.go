package apperrors

import "errors"

var (
	ErrEmptyQuestion          = errors.New("question is empty")
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")
	ErrGenerationFailed       = errors.New("generation model call failed")
	ErrSchemaUnavailable      = errors.New("schema catalog unavailable")
	ErrValidationRefused      = errors.New("SQL failed safety validation")
)
