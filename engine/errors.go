package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode identifies why the engine refused an operation.
type ErrorCode string

// Shape errors
const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidProject   ErrorCode = "INVALID_PROJECT"
)

// Auction-state errors. Mutually exclusive; the first applicable one is reported.
const (
	ErrCodeAuctionClosed   ErrorCode = "AUCTION_CLOSED"
	ErrCodeDeadlinePassed  ErrorCode = "DEADLINE_PASSED"
	ErrCodeBidLimitReached ErrorCode = "BID_LIMIT_REACHED"
)

// Lookup and conflict errors
const (
	ErrCodeProjectNotFound  ErrorCode = "PROJECT_NOT_FOUND"
	ErrCodeBidNotFound      ErrorCode = "BID_NOT_FOUND"
	ErrCodeBidNotEditable   ErrorCode = "BID_NOT_EDITABLE"
	ErrCodeNotBidOwner      ErrorCode = "NOT_BID_OWNER"
	ErrCodeDuplicateBid     ErrorCode = "DUPLICATE_BID"
	ErrCodeDuplicateProject ErrorCode = "DUPLICATE_PROJECT"
	ErrCodeEngineClosed     ErrorCode = "ENGINE_CLOSED"
)

// ErrorClass groups codes so callers can treat whole families alike.
type ErrorClass string

const (
	ClassValidation   ErrorClass = "validation"
	ClassAuctionState ErrorClass = "auction_state"
	ClassNotFound     ErrorClass = "not_found"
	ClassConflict     ErrorClass = "conflict"
)

// Error is a structured engine error. Use errors.As to inspect it.
type Error struct {
	Code             ErrorCode  `json:"code"`
	Class            ErrorClass `json:"class"`
	Message          string     `json:"message"`
	Details          string     `json:"details,omitempty"`
	ValidationErrors []string   `json:"validation_errors,omitempty"`
	Timestamp        time.Time  `json:"timestamp"`
}

func (e *Error) Error() string {
	if len(e.ValidationErrors) > 0 {
		return fmt.Sprintf("bidwar[%s]: %s: %s", e.Code, e.Message, strings.Join(e.ValidationErrors, "; "))
	}
	if e.Details != "" {
		return fmt.Sprintf("bidwar[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("bidwar[%s]: %s", e.Code, e.Message)
}

// IsValidation reports whether the input itself was malformed.
func (e *Error) IsValidation() bool { return e.Class == ClassValidation }

// IsAuctionState reports whether the input was fine but the auction no longer accepts it.
func (e *Error) IsAuctionState() bool { return e.Class == ClassAuctionState }

// CodeOf returns the ErrorCode carried by err, or "" if err is not an engine error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err is an engine error with the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func newValidationError(errs []string, at time.Time) *Error {
	return &Error{
		Code:             ErrCodeValidationFailed,
		Class:            ClassValidation,
		Message:          "Bid failed validation",
		ValidationErrors: errs,
		Timestamp:        at,
	}
}

func newInvalidProjectError(details string, at time.Time) *Error {
	return &Error{
		Code:      ErrCodeInvalidProject,
		Class:     ClassValidation,
		Message:   "Project definition is invalid",
		Details:   details,
		Timestamp: at,
	}
}

func newAuctionClosedError(projectID string, status string, at time.Time) *Error {
	return &Error{
		Code:      ErrCodeAuctionClosed,
		Class:     ClassAuctionState,
		Message:   "Project is not accepting bids",
		Details:   fmt.Sprintf("project %s is %s", projectID, status),
		Timestamp: at,
	}
}

func newDecisionClosedError(projectID string, status string, at time.Time) *Error {
	return &Error{
		Code:      ErrCodeAuctionClosed,
		Class:     ClassAuctionState,
		Message:   "Project is not open for owner decisions",
		Details:   fmt.Sprintf("project %s is %s", projectID, status),
		Timestamp: at,
	}
}

func newDeadlinePassedError(projectID string, deadline, at time.Time) *Error {
	return &Error{
		Code:      ErrCodeDeadlinePassed,
		Class:     ClassAuctionState,
		Message:   "Bidding deadline has passed",
		Details:   fmt.Sprintf("project %s closed at %s", projectID, deadline.UTC().Format(time.RFC3339)),
		Timestamp: at,
	}
}

func newBidLimitReachedError(projectID string, limit int, at time.Time) *Error {
	return &Error{
		Code:      ErrCodeBidLimitReached,
		Class:     ClassAuctionState,
		Message:   "Project has reached its bid limit",
		Details:   fmt.Sprintf("project %s accepts at most %d bids", projectID, limit),
		Timestamp: at,
	}
}

func newProjectNotFoundError(projectID string, at time.Time) *Error {
	return &Error{
		Code:      ErrCodeProjectNotFound,
		Class:     ClassNotFound,
		Message:   "Project not found",
		Details:   projectID,
		Timestamp: at,
	}
}

func newBidNotFoundError(bidID string, at time.Time) *Error {
	return &Error{
		Code:      ErrCodeBidNotFound,
		Class:     ClassNotFound,
		Message:   "Bid not found",
		Details:   bidID,
		Timestamp: at,
	}
}

func newBidNotEditableError(bidID string, status string, at time.Time) *Error {
	return &Error{
		Code:      ErrCodeBidNotEditable,
		Class:     ClassConflict,
		Message:   "Bid can no longer be changed",
		Details:   fmt.Sprintf("bid %s is %s", bidID, status),
		Timestamp: at,
	}
}

func newNotBidOwnerError(bidID string, at time.Time) *Error {
	return &Error{
		Code:      ErrCodeNotBidOwner,
		Class:     ClassConflict,
		Message:   "Bid belongs to another consultant",
		Details:   bidID,
		Timestamp: at,
	}
}

func newDuplicateBidError(projectID string, at time.Time) *Error {
	return &Error{
		Code:      ErrCodeDuplicateBid,
		Class:     ClassConflict,
		Message:   "Consultant already holds a live bid on this project",
		Details:   projectID,
		Timestamp: at,
	}
}

func newDuplicateProjectError(projectID string, at time.Time) *Error {
	return &Error{
		Code:      ErrCodeDuplicateProject,
		Class:     ClassConflict,
		Message:   "Project already registered",
		Details:   projectID,
		Timestamp: at,
	}
}

func newEngineClosedError(at time.Time) *Error {
	return &Error{
		Code:      ErrCodeEngineClosed,
		Class:     ClassConflict,
		Message:   "Engine is closed",
		Timestamp: at,
	}
}
