package services

import (
	"context"
	"errors"
	"fmt"
)

// Typed failures returned by MembershipService. Handlers map these to HTTP
// statuses; nothing here is retried internally because every failure is
// semantically meaningful to the caller.
var (
	ErrNotFound               = errors.New("not found")
	ErrCapacityExceeded       = errors.New("event is at capacity")
	ErrAlreadyMember          = errors.New("already a member")
	ErrAlreadyInvitedOrMember = errors.New("already invited or a member")
	ErrAlreadyFollowing       = errors.New("already following")
	ErrNotFollowing           = errors.New("not following")
	ErrSelfFollowForbidden    = errors.New("cannot follow yourself")
	ErrNotAGroupChat          = errors.New("not a group chat")
	ErrInviterNotMember       = errors.New("inviter is not an active member")
	ErrNoPendingInvitation    = errors.New("no pending invitation")
	ErrInvalidInput           = errors.New("invalid input")
	ErrStoreUnavailable       = errors.New("store unavailable")
	ErrTimeout                = errors.New("deadline exceeded")
)

var serviceErrors = []error{
	ErrNotFound,
	ErrCapacityExceeded,
	ErrAlreadyMember,
	ErrAlreadyInvitedOrMember,
	ErrAlreadyFollowing,
	ErrNotFollowing,
	ErrSelfFollowForbidden,
	ErrNotAGroupChat,
	ErrInviterNotMember,
	ErrNoPendingInvitation,
	ErrInvalidInput,
	ErrStoreUnavailable,
	ErrTimeout,
}

func isServiceError(err error) bool {
	for _, known := range serviceErrors {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}

// asServiceError passes typed failures through untouched and folds
// everything else into the store-failure taxonomy.
func asServiceError(err error) error {
	switch {
	case err == nil:
		return nil
	case isServiceError(err):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
