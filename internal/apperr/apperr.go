// Package apperr defines the domain error taxonomy shared by services and the API boundary.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the boundary. Callers cannot tell a missing
// entity from an ownership mismatch; both are KindNotFound.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindBadRequest
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindBadRequest:
		return "BAD_REQUEST"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	default:
		return "INTERNAL"
	}
}

// Stable machine codes
const (
	CodeNotFound          = "NOT_FOUND"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeCartEmpty         = "CART_EMPTY"
	CodeDuplicateReview   = "DUPLICATE_REVIEW"
	CodeOrderNotCompleted = "ORDER_NOT_COMPLETED"
	CodeOrderNumberTaken  = "ORDER_NUMBER_TAKEN"
	CodeRequestInFlight   = "REQUEST_IN_FLIGHT"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInternal          = "INTERNAL_ERROR"
)

// Error is a classified domain failure.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind and code, so sentinel comparisons work
// through errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// New builds an Error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// NotFound reports a missing entity or an ownership mismatch.
func NotFound(message string) *Error {
	return New(KindNotFound, CodeNotFound, message)
}

// Conflict reports a state precondition failure.
func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

// BadRequest reports malformed input.
func BadRequest(message string) *Error {
	return New(KindBadRequest, CodeInvalidInput, message)
}

// Unauthorized reports a missing or invalid credential.
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, CodeUnauthorized, message)
}

// InsufficientStock reports a reservation larger than available stock.
func InsufficientStock(productID int64, requested, available int) *Error {
	return Conflict(CodeInsufficientStock,
		fmt.Sprintf("insufficient stock for product %d: requested=%d, available=%d", productID, requested, available))
}

// InvalidTransition reports an illegal order status change.
func InvalidTransition(from, to string) *Error {
	return Conflict(CodeInvalidTransition, fmt.Sprintf("cannot change order status from %s to %s", from, to))
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the Code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
