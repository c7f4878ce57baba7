package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrOperationFailed     = errors.New("database operation failed")
	ErrReadDatabaseRow     = errors.New("failed to read database row")
	ErrInvalidExecContext  = errors.New("invalid execution context")
	ErrLockNotAcquired     = errors.New("lock not acquired")
	ErrDecryptFailed       = errors.New("failed to decrypt sensitive field")
	ErrPaymentDeclined     = errors.New("payment declined")
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
)

// Kind classifies a failure for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindInvalidState
	KindDataInconsistency
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindDataInconsistency:
		return "data_inconsistency"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Stable error codes returned to clients next to the legacy messages.
const (
	CodeValidationFailed     = "validation_failed"
	CodeAccountNotFound      = "account_not_found"
	CodeResourceNotFound     = "resource_not_found"
	CodeInvalidPaymentMethod = "invalid_payment_method"
	CodeTotalMismatch        = "total_mismatch"
	CodeInvalidUserType      = "invalid_user_type"
	CodeInvalidPlan          = "invalid_plan"
	CodeInvalidPlanType      = "invalid_plan_type"
	CodeInvalidCreditCard    = "invalid_credit_card"
	CodeCreditCardMissing    = "credit_card_missing"
	CodeDuplicateAgreement   = "duplicate_agreement"
	CodeAgreementInProgress  = "agreement_in_progress"
	CodeAgreementFailed      = "agreement_failed"
	CodeInternal             = "internal_error"
)

// Error is a classified failure carrying a machine-readable code and the
// human message shown to API clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two *Error values by code so callers can compare against the
// exported prototypes below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func NewValidationError(details []string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidationFailed, Message: "Validation failed", Details: details}
}

func NewInvalidStateError(code, msg string) *Error {
	return &Error{Kind: KindInvalidState, Code: code, Message: msg}
}

func NewInternalError(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: msg, Err: err}
}

// Prototypes for errors.Is comparisons.
var (
	ErrAccountNotFound      = &Error{Kind: KindNotFound, Code: CodeAccountNotFound, Message: "Invalid user"}
	ErrInvalidPaymentMethod = &Error{Kind: KindInvalidState, Code: CodeInvalidPaymentMethod, Message: "Invalid payment method"}
	ErrTotalMismatch        = &Error{Kind: KindInvalidState, Code: CodeTotalMismatch, Message: "Total of agreement is not valid"}
	ErrInvalidUserType      = &Error{Kind: KindInvalidState, Code: CodeInvalidUserType, Message: "Invalid user type (only free users)"}
	ErrInvalidPlan          = &Error{Kind: KindInvalidState, Code: CodeInvalidPlan, Message: "Invalid selected plan"}
	ErrInvalidPlanType      = &Error{Kind: KindInvalidState, Code: CodeInvalidPlanType, Message: "Invalid selected plan type"}
	ErrInvalidCreditCard    = &Error{Kind: KindInvalidState, Code: CodeInvalidCreditCard, Message: "Invalid Credit Card"}
	ErrCreditCardMissing    = &Error{Kind: KindDataInconsistency, Code: CodeCreditCardMissing, Message: "User credit card missing"}
	ErrDuplicateAgreement   = &Error{Kind: KindConflict, Code: CodeDuplicateAgreement, Message: "Agreement already processed"}
	ErrAgreementInProgress  = &Error{Kind: KindConflict, Code: CodeAgreementInProgress, Message: "Agreement already in progress"}
	ErrAgreementFailed      = &Error{Kind: KindInternal, Code: CodeAgreementFailed, Message: "Failed at creating new agreement"}
)

// KindOf reports the classification of err; unclassified errors are internal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	return KindInternal
}
