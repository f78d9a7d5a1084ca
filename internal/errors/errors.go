// Package errors provides structured error handling for scanparser operations.
// It defines error codes and typed errors for documents, records, stores and
// configuration, and helpers for classifying errors by code.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"

	// Document errors.
	CodeDocumentFormat ErrorCode = "DOCUMENT_FORMAT"
	CodeRecordSkipped  ErrorCode = "RECORD_SKIPPED"

	// Store errors.
	CodeStoreCreate ErrorCode = "STORE_CREATE"
	CodeStoreSchema ErrorCode = "STORE_SCHEMA"
	CodeStoreQuery  ErrorCode = "STORE_QUERY"

	// Output errors.
	CodeRender ErrorCode = "RENDER"

	// Live scan errors.
	CodeScanFailed ErrorCode = "SCAN_FAILED"
	CodeTimeout    ErrorCode = "TIMEOUT"
)

// ErrInvalidTransition is returned when a pipeline run is driven out of order.
var ErrInvalidTransition = stderrors.New("invalid pipeline state transition")

// DocumentError reports a scan document that lacks its required structure.
type DocumentError struct {
	Code    ErrorCode
	Message string
	Source  string
	Cause   error
}

// Error implements the error interface.
func (e *DocumentError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("[%s] %s (source: %s)", e.Code, e.Message, e.Source)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *DocumentError) Unwrap() error {
	return e.Cause
}

// NewDocumentError creates a document format error.
func NewDocumentError(message string) *DocumentError {
	return &DocumentError{Code: CodeDocumentFormat, Message: message}
}

// WrapDocumentError wraps a parse failure as a document format error.
func WrapDocumentError(message string, err error) *DocumentError {
	return &DocumentError{Code: CodeDocumentFormat, Message: message, Cause: err}
}

// RecordError describes a malformed host or port record that was skipped.
type RecordError struct {
	Code    ErrorCode
	Message string
	Host    string
	Port    string
}

// Error implements the error interface.
func (e *RecordError) Error() string {
	switch {
	case e.Host != "" && e.Port != "":
		return fmt.Sprintf("[%s] %s (host: %s, port: %s)", e.Code, e.Message, e.Host, e.Port)
	case e.Host != "":
		return fmt.Sprintf("[%s] %s (host: %s)", e.Code, e.Message, e.Host)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewHostSkipped creates a record error for a host block.
func NewHostSkipped(host, message string) *RecordError {
	return &RecordError{Code: CodeRecordSkipped, Message: message, Host: host}
}

// NewPortSkipped creates a record error for a port under a host.
func NewPortSkipped(host, port, message string) *RecordError {
	return &RecordError{Code: CodeRecordSkipped, Message: message, Host: host, Port: port}
}

// StoreError represents failures of the backing relational store.
type StoreError struct {
	Code      ErrorCode
	Message   string
	Operation string
	Query     string
	Cause     error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("[%s] %s (operation: %s)", e.Code, e.Message, e.Operation)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// WithQuery adds the SQL statement that caused the error.
func (e *StoreError) WithQuery(query string) *StoreError {
	e.Query = query
	return e
}

// WrapStoreError wraps an existing error as a store error.
func WrapStoreError(code ErrorCode, operation string, err error) *StoreError {
	return &StoreError{
		Code:      code,
		Message:   "Store operation failed",
		Operation: operation,
		Cause:     err,
	}
}

// RenderError reports an output artifact that could not be written.
type RenderError struct {
	Code    ErrorCode
	Message string
	Path    string
	Cause   error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s (path: %s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *RenderError) Unwrap() error {
	return e.Cause
}

// WrapRenderError wraps a failure to write the artifact at path.
func WrapRenderError(message, path string, err error) *RenderError {
	return &RenderError{Code: CodeRender, Message: message, Path: path, Cause: err}
}

// ScanError represents a failed live nmap run.
type ScanError struct {
	Code    ErrorCode
	Message string
	Target  string
	Cause   error
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("[%s] %s (target: %s)", e.Code, e.Message, e.Target)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// WrapScanError wraps an existing error as a scan error.
func WrapScanError(code ErrorCode, message string, err error) *ScanError {
	return &ScanError{Code: code, Message: message, Cause: err}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(code ErrorCode, message string, err error) *ConfigError {
	return &ConfigError{Code: code, Message: message, Cause: err}
}

// ErrConfigInvalid creates an error for an invalid configuration value.
func ErrConfigInvalid(field string, value interface{}) *ConfigError {
	return &ConfigError{Code: CodeValidation, Message: "Invalid configuration value", Field: field, Value: value}
}

// GetCode extracts the error code from an error chain if it has one.
func GetCode(err error) ErrorCode {
	var (
		docErr    *DocumentError
		recErr    *RecordError
		storeErr  *StoreError
		renderErr *RenderError
		scanErr   *ScanError
		configErr *ConfigError
	)
	switch {
	case stderrors.As(err, &docErr):
		return docErr.Code
	case stderrors.As(err, &recErr):
		return recErr.Code
	case stderrors.As(err, &storeErr):
		return storeErr.Code
	case stderrors.As(err, &renderErr):
		return renderErr.Code
	case stderrors.As(err, &scanErr):
		return scanErr.Code
	case stderrors.As(err, &configErr):
		return configErr.Code
	}
	return CodeUnknown
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && GetCode(err) == code
}

// IsFatal reports whether an error must abort a pipeline run.
// Skipped records are the only non-fatal class.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return GetCode(err) != CodeRecordSkipped
}
