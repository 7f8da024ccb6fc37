package app

import (
	"context"
	"errors"
	"fmt"

	"clausewise/internal/ai"
	"clausewise/internal/repository"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrDocumentNotFound = repository.ErrDocumentNotFound
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrFileTooLarge     = errors.New("file too large")

	// ErrPrecondition and ErrNotReady are caller mistakes; waiting or
	// advancing the right stage fixes them.
	ErrPrecondition = errors.New("stage precondition failed")
	ErrNotReady     = errors.New("document not ready")

	ErrExtraction     = errors.New("extraction failed")
	ErrClassification = errors.New("classification failed")
	ErrAnalysis       = errors.New("analysis failed")
	ErrEmbedding      = errors.New("embedding failed")
	ErrGeneration     = errors.New("generation failed")
	// ErrSchemaValidation is wrapped together with the surface error of the
	// component that received the malformed output.
	ErrSchemaValidation = errors.New("schema validation failed")
)

const (
	KindPrecondition     = "precondition"
	KindNotReady         = "not_ready"
	KindInvalidInput     = "invalid_input"
	KindNotFound         = "not_found"
	KindExtraction       = "extraction"
	KindClassification   = "classification"
	KindAnalysis         = "analysis"
	KindEmbedding        = "embedding"
	KindGeneration       = "generation"
	KindSchemaValidation = "schema_validation"
	KindTimeout          = "timeout"
	KindInternal         = "internal"
)

// ErrorKind is the stable label stored on a failed document.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSchemaValidation):
		return KindSchemaValidation
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrPrecondition):
		return KindPrecondition
	case errors.Is(err, ErrNotReady):
		return KindNotReady
	case errors.Is(err, ErrDocumentNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupportedMedia), errors.Is(err, ErrFileTooLarge):
		return KindInvalidInput
	case errors.Is(err, ErrExtraction):
		return KindExtraction
	case errors.Is(err, ErrClassification):
		return KindClassification
	case errors.Is(err, ErrAnalysis):
		return KindAnalysis
	case errors.Is(err, ErrEmbedding):
		return KindEmbedding
	case errors.Is(err, ErrGeneration):
		return KindGeneration
	default:
		return KindInternal
	}
}

func IsUserCorrectable(err error) bool {
	switch ErrorKind(err) {
	case KindPrecondition, KindNotReady, KindInvalidInput, KindNotFound:
		return true
	}
	return false
}

// IsRetryable reports whether repeating the failed operation may succeed.
func IsRetryable(err error) bool {
	if err == nil || IsUserCorrectable(err) {
		return false
	}
	return ai.IsTransient(err)
}

func isSchemaError(err error) bool {
	return errors.Is(err, ErrSchemaValidation)
}

func schemaErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrSchemaValidation, fmt.Sprintf(format, args...))
}
