package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError reports a rejected upload: wrong format, oversize payload,
// unsafe filename or a page count beyond the hard limit.
type ValidationError struct {
	Err     error
	Message string
	// TooLarge marks size/page-limit rejections, which map to a different
	// HTTP status than malformed payloads.
	TooLarge bool
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// UnrecognizedError reports text that matched none of the intent rules.
type UnrecognizedError struct {
	Text string
}

func (e *UnrecognizedError) Error() string {
	return fmt.Sprintf("command not recognized: %q", e.Text)
}

// InvalidParametersError reports command parameters that are inconsistent with
// the resolved document, e.g. a page number outside [1, pageCount].
type InvalidParametersError struct {
	Message string
}

func (e *InvalidParametersError) Error() string { return e.Message }

// NotFoundError reports a handle that is absent, expired or deleted. The three
// cases are deliberately indistinguishable to the caller.
type NotFoundError struct {
	Handle string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Handle)
}

// ProcessingError reports a document engine failure during dispatch. The
// message is opaque; engine internals stay in the wrapped error for logs.
type ProcessingError struct {
	Err error
}

func (e *ProcessingError) Error() string { return "document processing failed" }

func (e *ProcessingError) Unwrap() error { return e.Err }

// StorageError reports a File Store I/O failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPayloadTooLarge reports whether err is a ValidationError caused by a
// size or page-count limit.
func IsPayloadTooLarge(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.TooLarge
}

// IsUnrecognized reports whether err is an UnrecognizedError.
func IsUnrecognized(err error) bool {
	var ue *UnrecognizedError
	return errors.As(err, &ue)
}

// IsInvalidParameters reports whether err is an InvalidParametersError.
func IsInvalidParameters(err error) bool {
	var ie *InvalidParametersError
	return errors.As(err, &ie)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// IsProcessing reports whether err is a ProcessingError.
func IsProcessing(err error) bool {
	var pe *ProcessingError
	return errors.As(err, &pe)
}

// IsStorage reports whether err is a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
