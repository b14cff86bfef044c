package model

import (
	"fmt"
	"net/http"
)

// Error codes surfaced in the API error envelope.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeAuthentication = "AUTHENTICATION_ERROR"
	CodeAuthorization  = "AUTHORIZATION_ERROR"
	CodeNotFound       = "NOT_FOUND_ERROR"
	CodeConflict       = "CONFLICT_ERROR"
	CodeRateLimit      = "RATE_LIMIT_ERROR"
	CodeBlockchain     = "BLOCKCHAIN_ERROR"
	CodeAgent          = "AGENT_ERROR"
	CodeTransaction    = "TRANSACTION_ERROR"
	CodeInternal       = "INTERNAL_ERROR"
)

// AppError is the typed error carried from the service layer to the HTTP
// envelope. Context holds structured detail safe to return to callers.
type AppError struct {
	Code       string
	Message    string
	StatusCode int
	Context    map[string]any
	Err        error // wrapped cause, never serialized
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// NewValidationError signals malformed or out-of-range input (400).
func NewValidationError(message string, ctx map[string]any) *AppError {
	return &AppError{Code: CodeValidation, Message: message, StatusCode: http.StatusBadRequest, Context: ctx}
}

// NewAuthenticationError signals a missing or invalid credential (401).
func NewAuthenticationError(message string) *AppError {
	if message == "" {
		message = "Authentication failed"
	}
	return &AppError{Code: CodeAuthentication, Message: message, StatusCode: http.StatusUnauthorized}
}

// NewAuthorizationError signals insufficient permissions (403).
func NewAuthorizationError(message string) *AppError {
	if message == "" {
		message = "Insufficient permissions"
	}
	return &AppError{Code: CodeAuthorization, Message: message, StatusCode: http.StatusForbidden}
}

// NewNotFoundError signals a missing resource (404). Access denials on
// private resources use the same error so existence is not leaked.
func NewNotFoundError(resource string, ctx map[string]any) *AppError {
	return &AppError{Code: CodeNotFound, Message: resource + " not found", StatusCode: http.StatusNotFound, Context: ctx}
}

// NewConflictError signals a uniqueness violation (409).
func NewConflictError(message string, ctx map[string]any) *AppError {
	return &AppError{Code: CodeConflict, Message: message, StatusCode: http.StatusConflict, Context: ctx}
}

// NewRateLimitError signals request throttling (429).
func NewRateLimitError() *AppError {
	return &AppError{Code: CodeRateLimit, Message: "Rate limit exceeded", StatusCode: http.StatusTooManyRequests}
}

// NewBlockchainError signals a chain interaction failure (502).
func NewBlockchainError(message string, err error) *AppError {
	return &AppError{Code: CodeBlockchain, Message: message, StatusCode: http.StatusBadGateway, Err: err}
}

// NewAgentError signals a domain-rule violation, such as an illegal status
// transition (422).
func NewAgentError(message string, ctx map[string]any) *AppError {
	return &AppError{Code: CodeAgent, Message: message, StatusCode: http.StatusUnprocessableEntity, Context: ctx}
}

// NewAgentErrorWrap is NewAgentError with a wrapped cause.
func NewAgentErrorWrap(message string, ctx map[string]any, err error) *AppError {
	return &AppError{Code: CodeAgent, Message: message, StatusCode: http.StatusUnprocessableEntity, Context: ctx, Err: err}
}

// NewTransactionError signals a transaction processing failure (422).
func NewTransactionError(message string, ctx map[string]any) *AppError {
	return &AppError{Code: CodeTransaction, Message: message, StatusCode: http.StatusUnprocessableEntity, Context: ctx}
}

// NewInternalError wraps an unanticipated failure (500).
func NewInternalError(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "Internal server error", StatusCode: http.StatusInternalServerError, Err: err}
}
