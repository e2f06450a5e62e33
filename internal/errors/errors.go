package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	// CodeRevisionRange marks an unresolvable revision range. Fatal: no
	// downstream stage is sound without a real diff.
	CodeRevisionRange ErrorCode = "REVISION_RANGE"

	// CodeUnparsableSource marks a file that could not be read or parsed.
	// Non-fatal: the file is skipped and the run continues.
	CodeUnparsableSource ErrorCode = "UNPARSABLE_SOURCE"

	// CodeUnresolvableImport marks an import that names the project
	// namespace but cannot be resolved to a module id.
	CodeUnresolvableImport ErrorCode = "UNRESOLVABLE_IMPORT"

	// CodeWorkflowParse marks a workflow document that failed to decode.
	// Non-fatal: that document is skipped.
	CodeWorkflowParse ErrorCode = "WORKFLOW_PARSE"

	// CodeCancelled marks a run aborted by the caller's context. Partial
	// results are discarded, never returned.
	CodeCancelled ErrorCode = "CANCELLED"

	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxPath      = "path"
	CtxRange     = "range"
	CtxOperation = "operation"
	CtxLanguage  = "language"
	CtxWorkflow  = "workflow"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext attaches a key/value pair to an existing DomainError, or
// wraps a plain error so the context is not lost.
func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return de
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

// Diagnostic is a non-fatal problem accumulated during an analysis
// run. Diagnostics travel with the result so a caller can fail loud in
// CI or proceed with degraded precision locally.
type Diagnostic struct {
	Code   ErrorCode `json:"code"`
	Path   string    `json:"path,omitempty"`
	Detail string    `json:"detail"`
}

func (d Diagnostic) String() string {
	if d.Path == "" {
		return fmt.Sprintf("[%s] %s", d.Code, d.Detail)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Code, d.Path, d.Detail)
}

func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
