package services

import (
	"errors"
	"fmt"

	"helpfinder/internal/models"
	"helpfinder/internal/repositories"
)

// Kind classifies service failures; handlers map it to an HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindInvalidState
	KindQuotaExceeded
	KindConflict
	KindValidation
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindInvalidState:
		return "invalid_state"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	}
	return "internal"
}

// Error is a typed, terminal failure returned verbatim to callers.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches errors of the same kind. A target without a message matches
// every error of its kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of err, KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Kind sentinels for errors.Is.
var (
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrForbidden     = &Error{Kind: KindForbidden}
	ErrInvalidState  = &Error{Kind: KindInvalidState}
	ErrQuotaExceeded = &Error{Kind: KindQuotaExceeded}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrUnauthorized  = &Error{Kind: KindUnauthorized}
)

var (
	ErrTaskNotFound         = newError(KindNotFound, "task not found")
	ErrBidNotFound          = newError(KindNotFound, "bid not found")
	ErrContractNotFound     = newError(KindNotFound, "contract not found")
	ErrUserNotFound         = newError(KindNotFound, "user not found")
	ErrNotificationNotFound = newError(KindNotFound, "notification not found")

	ErrNotTaskOwner      = newError(KindForbidden, "only the task requester can do this")
	ErrNotBidOwner       = newError(KindForbidden, "only the bidder can do this")
	ErrNotAssignedHelper = newError(KindForbidden, "only the assigned helper can do this")
	ErrNotParticipant    = newError(KindForbidden, "you are not a participant of this task")
	ErrOwnTask           = newError(KindForbidden, "requesters cannot bid on their own task")
	ErrUserBlocked       = newError(KindForbidden, "account is blocked")

	ErrTaskNotOpen        = newError(KindInvalidState, "task is not open")
	ErrTaskNotEditable    = newError(KindInvalidState, "only open tasks without active bids can be edited")
	ErrTaskNotEngaged     = newError(KindInvalidState, "task has no assigned helper")
	ErrTaskNotCompleted   = newError(KindInvalidState, "task is not completed")
	ErrTaskClosed         = newError(KindInvalidState, "task is already completed or cancelled")
	ErrBidNotPending      = newError(KindInvalidState, "bid is not pending")
	ErrBidLocked          = newError(KindInvalidState, "the accepted bid of a completed task cannot change; reopen the task instead")
	ErrBidAccepted        = newError(KindInvalidState, "an accepted bid cannot be rejected; the helper must withdraw or renegotiate it")
	ErrReopenWindowClosed = newError(KindInvalidState, "tasks can only be reopened within 14 days of completion")
	ErrChatClosed         = newError(KindInvalidState, "chat is not available for this task")

	ErrTaskQuota = newError(KindQuotaExceeded, "daily task creation limit reached")
	ErrBidQuota  = newError(KindQuotaExceeded, "daily bid limit reached")

	ErrConcurrentUpdate = newError(KindConflict, "task was modified concurrently, retry the request")
	ErrEmailTaken       = newError(KindConflict, "email is already registered")
	ErrAlreadyReviewed  = newError(KindConflict, "you have already reviewed this task")

	ErrBadCredentials = newError(KindUnauthorized, "invalid email or password")

	ErrInvalidLinkCode = newError(KindValidation, "telegram link code is invalid or expired")
)

func errStatus(task *models.Task, want models.TaskStatus) *Error {
	return newError(KindInvalidState, "task is %s, expected %s", task.Status, want)
}

func errTransition(from, to models.TaskStatus) *Error {
	return newError(KindInvalidState, "task cannot move from %s to %s", from, to)
}

func validation(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

// storeErr maps storage failures that carry meaning for callers.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case KindOf(err) != KindInternal:
		return err
	case errors.Is(err, repositories.ErrVersionConflict), errors.Is(err, repositories.ErrDuplicate):
		return ErrConcurrentUpdate
	}
	return err
}

func notFoundAs(err error, nf *Error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return nf
	}
	return err
}
