package utils

import (
	"fmt"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/types"
)

// Exit codes
const (
	ExitSuccess = 0
	// Storage errors (20-29)
	ExitNotFound      = 20
	ExitLocalIO       = 21
	ExitCorrupt       = 22
	ExitAlreadyExists = 23
	// Remote errors (30-39)
	ExitRemoteUnavailable = 30
	ExitTimeout           = 31
	// Validation errors (40-49)
	ExitInvalidArgument = 40
	// Credential errors (50-59)
	ExitCredentialsMissing = 50
	// Batch errors
	ExitBatchPartialFailure = 60
	// Cancellation
	ExitCancelled = 70
	// Unknown
	ExitUnknown = 99
)

// Error codes (tool-owned, stable)
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeLocalIO             = "LOCAL_IO"
	ErrCodeCorrupt             = "CORRUPT"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeRemoteUnavailable   = "REMOTE_UNAVAILABLE"
	ErrCodeTimeout             = "TIMEOUT"
	ErrCodeInvalidArgument     = "INVALID_ARGUMENT"
	ErrCodeCredentialsMissing  = "CREDENTIALS_MISSING"
	ErrCodeBatchPartialFailure = "BATCH_PARTIAL_FAILURE"
	ErrCodeCancelled           = "CANCELLED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeUnknown             = "UNKNOWN"
)

// CLIErrorBuilder helps construct CLIError instances
type CLIErrorBuilder struct {
	err types.CLIError
}

// NewCLIError creates a new error builder
func NewCLIError(code, message string) *CLIErrorBuilder {
	return &CLIErrorBuilder{
		err: types.CLIError{
			Code:    code,
			Message: message,
		},
	}
}

func (b *CLIErrorBuilder) WithHTTPStatus(status int) *CLIErrorBuilder {
	b.err.HTTPStatus = status
	return b
}

func (b *CLIErrorBuilder) WithRetryable(retryable bool) *CLIErrorBuilder {
	b.err.Retryable = retryable
	return b
}

func (b *CLIErrorBuilder) WithContext(key string, value interface{}) *CLIErrorBuilder {
	if b.err.Context == nil {
		b.err.Context = make(map[string]interface{})
	}
	b.err.Context[key] = value
	return b
}

func (b *CLIErrorBuilder) Build() types.CLIError {
	return b.err
}

// GetExitCode returns the exit code for an error code
func GetExitCode(errorCode string) int {
	mapping := map[string]int{
		ErrCodeNotFound:            ExitNotFound,
		ErrCodeLocalIO:             ExitLocalIO,
		ErrCodeCorrupt:             ExitCorrupt,
		ErrCodeAlreadyExists:       ExitAlreadyExists,
		ErrCodeRemoteUnavailable:   ExitRemoteUnavailable,
		ErrCodeTimeout:             ExitTimeout,
		ErrCodeInvalidArgument:     ExitInvalidArgument,
		ErrCodeCredentialsMissing:  ExitCredentialsMissing,
		ErrCodeBatchPartialFailure: ExitBatchPartialFailure,
		ErrCodeCancelled:           ExitCancelled,
	}
	if code, ok := mapping[errorCode]; ok {
		return code
	}
	return ExitUnknown
}

// AppError is a custom error type that carries CLI error info
type AppError struct {
	CLIError types.CLIError
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.CLIError.Code, e.CLIError.Message)
}

// NewAppError creates an AppError from a CLIError
func NewAppError(cliErr types.CLIError) *AppError {
	return &AppError{CLIError: cliErr}
}

// NotFoundError builds the standard AppError for a missing item.
func NotFoundError(kind types.Kind, id string) *AppError {
	return NewAppError(NewCLIError(ErrCodeNotFound,
		fmt.Sprintf("%s not found: %s", kind, id)).
		WithContext("kind", string(kind)).
		WithContext("id", id).
		Build())
}

// RemoteError wraps a remote-store failure as a retryable AppError.
func RemoteError(op string, err error) *AppError {
	return NewAppError(NewCLIError(ErrCodeRemoteUnavailable,
		fmt.Sprintf("remote %s failed: %v", op, err)).
		WithRetryable(true).
		Build())
}
