/**
 * Custom error types for the extraction worker.
 *
 * Every terminal failure surfaced to callers carries one of the four
 * taxonomy codes so callers can decide whether to retry, prompt the
 * user, or permanently mark a document as unextractable.
 */

package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// ErrorInvalidInput marks caller errors (oversize input, bad request);
	// never retried.
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrorUnsupportedFormat marks formats no backend can handle; permanent.
	ErrorUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"

	// ErrorExtractionFailed marks engine-level failures; may succeed on a
	// later retry if engines are updated.
	ErrorExtractionFailed ErrorCode = "EXTRACTION_FAILED"

	// ErrorEngineUnavailable marks a missing runtime dependency (e.g. the
	// OCR engine is not installed); operator-actionable.
	ErrorEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"

	// Storage errors (never surfaced as extraction outcomes)
	ErrorStorageFailed ErrorCode = "STORAGE_FAILED"
)

// ExtractionError represents a structured extraction error
type ExtractionError struct {
	Code      ErrorCode
	Message   string
	JobID     string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// CodeOf returns the taxonomy code of err, or ErrorExtractionFailed when err
// is not an *ExtractionError.
func CodeOf(err error) ErrorCode {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ErrorExtractionFailed
}

// Factory functions for common errors

func NewInvalidInputError(jobID string, msg string) *ExtractionError {
	return &ExtractionError{
		Code:      ErrorInvalidInput,
		Message:   msg,
		JobID:     jobID,
		Timestamp: time.Now(),
	}
}

func NewUnsupportedFormatError(jobID string, mimeType string) *ExtractionError {
	return &ExtractionError{
		Code:      ErrorUnsupportedFormat,
		Message:   fmt.Sprintf("unsupported file format: %s", mimeType),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"mime_type": mimeType,
		},
	}
}

func NewExtractionFailedError(jobID string, stage string, cause error) *ExtractionError {
	return &ExtractionError{
		Code:      ErrorExtractionFailed,
		Message:   fmt.Sprintf("extraction failed at stage: %s", stage),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"stage": stage,
		},
		Cause: cause,
	}
}

func NewEngineUnavailableError(jobID string, engine string, cause error) *ExtractionError {
	return &ExtractionError{
		Code:      ErrorEngineUnavailable,
		Message:   fmt.Sprintf("engine unavailable: %s", engine),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"engine": engine,
		},
		Cause: cause,
	}
}

func NewStorageFailedError(jobID string, cause error) *ExtractionError {
	return &ExtractionError{
		Code:      ErrorStorageFailed,
		Message:   "failed to store extraction results",
		JobID:     jobID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// ToMap converts error to map for database storage
func (e *ExtractionError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
