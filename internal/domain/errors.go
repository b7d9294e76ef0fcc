package domain

import "errors"

// Kind groups rejections by how a caller should react to them
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindConflict      Kind = "conflict"
	KindNotFound      Kind = "not_found"
	KindContention    Kind = "contention"
	KindInternal      Kind = "internal"
)

// Error is a business rejection with a stable, machine-readable reason.
// Two errors with the same Reason match under errors.Is, so a rejection
// carrying a more specific message still matches its sentinel.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Reason == e.Reason
}

// Common errors
var (
	ErrGroupNotFound        = &Error{Kind: KindNotFound, Reason: "GROUP_NOT_FOUND", Message: "group not found"}
	ErrCapacityExceeded     = &Error{Kind: KindConflict, Reason: "CAPACITY_EXCEEDED", Message: "no seats available in this group"}
	ErrAlreadyMember        = &Error{Kind: KindConflict, Reason: "ALREADY_MEMBER", Message: "user is already a member of this group"}
	ErrAlreadyInActiveGroup = &Error{Kind: KindConflict, Reason: "ALREADY_IN_ACTIVE_GROUP", Message: "user already belongs to another active group"}
	ErrGroupNotOpen         = &Error{Kind: KindConflict, Reason: "GROUP_NOT_OPEN", Message: "group is not open for new members"}
	ErrSelfJoin             = &Error{Kind: KindConflict, Reason: "SELF_JOIN", Message: "the driver cannot join their own group"}
	ErrNotAMember           = &Error{Kind: KindConflict, Reason: "NOT_A_MEMBER", Message: "user is not an active member of this group"}
	ErrDriverCannotLeave    = &Error{Kind: KindConflict, Reason: "DRIVER_CANNOT_LEAVE", Message: "the driver cannot leave their own group"}
	ErrInvalidTransition    = &Error{Kind: KindConflict, Reason: "INVALID_TRANSITION", Message: "status change not allowed"}
	ErrNotAuthorized        = &Error{Kind: KindAuthorization, Reason: "NOT_AUTHORIZED", Message: "only the driver can perform this action"}
	ErrInvalidScore         = &Error{Kind: KindValidation, Reason: "INVALID_SCORE", Message: "score must be an integer between 1 and 5"}
	ErrNotEligible          = &Error{Kind: KindConflict, Reason: "NOT_ELIGIBLE", Message: "passenger was never an approved member of this group"}
	ErrSelfRating           = &Error{Kind: KindValidation, Reason: "SELF_RATING", Message: "a driver cannot rate themselves"}
	ErrNoVehicle            = &Error{Kind: KindValidation, Reason: "NO_VEHICLE", Message: "driver has no registered vehicle"}
	ErrValidation           = &Error{Kind: KindValidation, Reason: "VALIDATION_FAILED", Message: "validation failed"}
	ErrTripAlreadyGrouped   = &Error{Kind: KindConflict, Reason: "TRIP_ALREADY_GROUPED", Message: "trip already has a ride group"}
	ErrBusy                 = &Error{Kind: KindContention, Reason: "BUSY", Message: "resource is busy, retry later"}
)

// Invalid returns a validation rejection with a specific message.
func Invalid(message string) *Error {
	return &Error{Kind: KindValidation, Reason: ErrValidation.Reason, Message: message}
}

// Rejection returns a copy of base carrying a more specific message.
func Rejection(base *Error, message string) *Error {
	return &Error{Kind: base.Kind, Reason: base.Reason, Message: message}
}

// KindOf reports the kind of err. Anything that is not an *Error is internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ReasonOf returns the reason code of err, or INTERNAL_ERROR.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return "INTERNAL_ERROR"
}
