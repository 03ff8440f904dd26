package services

import (
	"errors"
	"fmt"
)

// Validation and conflict errors surfaced synchronously to callers. None of
// them is retriable; duplicate settlements and redundant expiry calls are
// not errors at all and return as no-ops.
var (
	ErrInvalidCode   = errors.New("invalid invite code")
	ErrAlreadyBound  = errors.New("referral relation already bound")
	ErrGroupNotFound = errors.New("group buy not found")
	ErrGroupFinished = errors.New("group buy already finished")
	ErrGroupExpired  = errors.New("group buy expired")
	ErrAlreadyJoined = errors.New("already joined this group buy")
	ErrGroupFull     = errors.New("group buy is full")
	ErrCouponInvalid = errors.New("coupon is not usable")
)

// ErrSelfReferral is a special case of ErrInvalidCode: the code resolved to
// the binding user itself.
var ErrSelfReferral = fmt.Errorf("%w: cannot use your own invite code", ErrInvalidCode)
