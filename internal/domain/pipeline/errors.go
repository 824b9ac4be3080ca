package pipeline

import (
	"errors"
	"fmt"
)

// Code enum: satu kode stabil per kegagalan, caller branch di kode ini
type Code string

const (
	CodeSaveFailed        Code = "SAVE_FAILED"
	CodeDeleteFailed      Code = "DELETE_FAILED"
	CodeSecurityError     Code = "SECURITY_ERROR"
	CodeUploadFailed      Code = "UPLOAD_FAILED"
	CodeProcessingFailed  Code = "FILE_PROCESSING_FAILED"
	CodeProcessingTimeout Code = "FILE_PROCESSING_TIMEOUT"
	CodeInvalidResponse   Code = "INVALID_RESPONSE"
	CodeAnalysisFailed    Code = "ANALYSIS_FAILED"
	CodeParseFailed       Code = "PARSE_FAILED"
	CodeValidationFailed  Code = "VALIDATION_FAILED"
)

// Error is the single error type crossing the pipeline boundary.
// The cause is kept wrapped so infra errors stay inspectable.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// E builds a pipeline error without cause
func E(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a pipeline error around a cause
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf returns the outermost pipeline code carried by err, or "" when err
// is not a pipeline error.
func CodeOf(err error) Code {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// HasCode reports whether code appears anywhere in err's chain. A validator
// rejection, for example, travels as INVALID_RESPONSE wrapping the underlying
// PARSE_FAILED or VALIDATION_FAILED.
func HasCode(err error, code Code) bool {
	for err != nil {
		var pe *Error
		if !errors.As(err, &pe) {
			return false
		}
		if pe.Code == code {
			return true
		}
		err = pe.Cause
	}
	return false
}
