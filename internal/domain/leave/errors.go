package leave

import (
	"errors"
	"fmt"

	"github.com/cloudincsa/leave-plugin-sub004/internal/pkg/validator"
)

// Error kinds. Every leave error unwraps to exactly one of these.
var (
	ErrValidation          = errors.New("validation error")
	ErrConflict            = errors.New("conflict")
	ErrInsufficientBalance = errors.New("insufficient leave balance")
	ErrNotFound            = errors.New("not found")
	ErrAlreadyProcessed    = errors.New("already processed")
	ErrPermission          = errors.New("permission denied")
	ErrPersistence         = errors.New("persistence failure")
)

var (
	ErrInvalidDate             = newError(ErrValidation, "Invalid date, expected format YYYY-MM-DD")
	ErrInvalidDateRange        = newError(ErrValidation, "End date must be on or after start date")
	ErrStartInPast             = newError(ErrValidation, "Start date cannot be in the past")
	ErrNoWorkingDays           = newError(ErrValidation, "Requested period contains no leave days")
	ErrUnknownUser             = newError(ErrValidation, "User does not exist")
	ErrInactiveUser            = newError(ErrValidation, "User is not active")
	ErrUnknownLeaveType        = newError(ErrValidation, "Unknown leave type")
	ErrInvalidStatus           = newError(ErrValidation, "Invalid leave request status")
	ErrAllotmentBelowCommitted = newError(ErrValidation, "Allotment is below days already used or pending")

	ErrOverlappingLeave = newError(ErrConflict, "Leave request overlaps an existing request")

	ErrLeaveRequestNotFound = newError(ErrNotFound, "Leave request not found")
	ErrBalanceNotFound      = newError(ErrNotFound, "Leave balance not found")

	ErrLeaveAlreadyProcessed = newError(ErrAlreadyProcessed, "Leave request already processed")
	ErrLeaveAlreadyStarted   = newError(ErrAlreadyProcessed, "Leave has already started and can no longer be cancelled")

	ErrNotRequestOwner    = newError(ErrPermission, "Only the owner of a leave request may cancel it")
	ErrApproverNotManager = newError(ErrPermission, "Manager access required to process leave requests")
	ErrSelfApproval       = newError(ErrPermission, "Managers cannot process their own leave requests")
	ErrCancelNotAllowed   = newError(ErrPermission, "Only the owner or a manager may cancel approved leave")
)

type kindError struct {
	kind error
	msg  string
}

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// InsufficientBalanceError carries the figures shown to the requester.
type InsufficientBalanceError struct {
	Available float64
	Requested float64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("Insufficient leave balance: %.1f day(s) available, %.1f requested", e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// FieldErrors reports per-field input failures. It is a Validation error and
// also unwraps to validator.ValidationErrors for field details.
type FieldErrors struct {
	Fields validator.ValidationErrors
}

func (e *FieldErrors) Error() string {
	return "Validation failed: " + e.Fields.Error()
}

func (e *FieldErrors) Unwrap() []error { return []error{ErrValidation, e.Fields} }

// Result codes returned to callers.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeConflict            = "CONFLICT"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyProcessed    = "ALREADY_PROCESSED"
	CodeForbidden           = "FORBIDDEN"
	CodePersistence         = "PERSISTENCE_ERROR"
)

// ErrorCode classifies err by kind. Anything unclassified is a persistence failure.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrInsufficientBalance):
		return CodeInsufficientBalance
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAlreadyProcessed):
		return CodeAlreadyProcessed
	case errors.Is(err, ErrPermission):
		return CodeForbidden
	default:
		return CodePersistence
	}
}
