package errors

import (
	"context"
	"errors"
)

// Error codes shared across the bot.
const (
	CodeConfig      = "config_error"
	CodeCredential  = "credential_error"
	CodeProvider    = "provider_error"
	CodeDataFormat  = "data_format_error"
	CodeIngestion   = "ingestion_error"
	CodeRetrieval   = "retrieval_error"
	CodeCompletion  = "completion_error"
	CodeTemplate    = "template_error"
	CodeTimeout     = "timeout"
	CodeInvalidArgs = "invalid_input"
)

// AppError encodes domain specific error details.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Wrap produces a new AppError instance.
func Wrap(code, message string, err error) error {
	if err == nil {
		return &AppError{Code: code, Message: message}
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// WrapCall wraps a failed outbound call, reporting deadline overruns as CodeTimeout.
func WrapCall(code, message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(CodeTimeout, message, err)
	}
	return Wrap(code, message, err)
}

// IsCode helps handler differentiate failures.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Code returns the outermost AppError code, or "" for foreign errors.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
