package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationError  ErrorCode = "VALIDATION_ERROR"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeInternal         ErrorCode = "INTERNAL_ERROR"
	CodeNotSupported     ErrorCode = "NOT_SUPPORTED"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"
)

// Build pipeline codes. The three cycle codes and the insertion rejection
// differ in how much of a changeset they abort; callers branch on them.
const (
	CodeModuleCycle        ErrorCode = "MODULE_CYCLE"
	CodeTypeCycle          ErrorCode = "TYPE_CYCLE"
	CodeValueCycle         ErrorCode = "VALUE_CYCLE"
	CodeInvalidModuleName  ErrorCode = "INVALID_MODULE_NAME"
	CodeParseFailure       ErrorCode = "PARSE_FAILURE"
	CodeMappingFailure     ErrorCode = "MAPPING_FAILURE"
	CodeNameResolution     ErrorCode = "NAME_RESOLUTION"
	CodeRepoRejected       ErrorCode = "REPO_REJECTED"
	CodeTypeInference      ErrorCode = "TYPE_INFERENCE"
	CodeValueTypeInference ErrorCode = "VALUE_TYPE_INFERENCE"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxPath      = "path"
	CtxOperation = "operation"
	CtxModule    = "module"
	CtxName      = "name"
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

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
