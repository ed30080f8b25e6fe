package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode is a stable identifier for a failure mode.
type ErrorCode string

const (
	// EmptyQuery rejects a blank query before any stage runs
	EmptyQuery ErrorCode = "EMPTY_QUERY"
	// NotIndexed means no snapshot is loaded
	NotIndexed ErrorCode = "NOT_INDEXED"
	// EntityNotFound means the requested entity id is not in the snapshot
	EntityNotFound ErrorCode = "ENTITY_NOT_FOUND"
	// EncodingFailure means the embedding call failed; search degrades
	EncodingFailure ErrorCode = "ENCODING_FAILURE"
	// RelationEvaluationFailure means one candidate could not be evaluated
	RelationEvaluationFailure ErrorCode = "RELATION_EVALUATION_FAILURE"
	// IndexFailure means a rebuild failed and the previous snapshot stays live
	IndexFailure ErrorCode = "INDEX_FAILURE"
	// InvalidInput covers malformed requests
	InvalidInput ErrorCode = "INVALID_INPUT"
)

// Error carries a code alongside the message and optional cause.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	cause   error
}

func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same code, so sentinel comparisons work
// through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf extracts the code from err, or "" if none is attached.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err carries code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	return stderrors.Is(err, &Error{Code: code})
}

// MessageOf returns the message of the outermost *Error in err's chain,
// or err.Error() when none is attached.
func MessageOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
