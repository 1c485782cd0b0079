package domain

import (
	"errors"
	"fmt"
	"strings"

	licensedomain "github.com/smallbiznis/shopdesk/internal/license/domain"
	"github.com/smallbiznis/shopdesk/pkg/db"
)

var (
	ErrStoreUnavailable            = db.ErrStoreUnavailable
	ErrSwitchFailed                = errors.New("switch_failed")
	ErrDuplicateActiveSubscription = errors.New("duplicate_active_subscription")
	ErrLicenseNotFound             = licensedomain.ErrNotFound

	ErrInvalidOwner = errors.New("invalid_owner")
	// ErrAtomicUnavailable means the store has no single-unit switch
	// primitive; the caller falls back to the compensating path.
	ErrAtomicUnavailable = errors.New("atomic_switch_unavailable")
	// ErrSubscriptionChanged means the row a write expected to find Active
	// was changed by someone else first.
	ErrSubscriptionChanged = errors.New("subscription_changed")
)

// FailureKind classifies why a switch did not produce a confirmed state.
type FailureKind string

const (
	KindStoreUnavailable FailureKind = "store_unavailable"
	KindSwitchFailed     FailureKind = "switch_failed"
	KindDuplicateActive  FailureKind = "duplicate_active_subscription"
	KindLicenseNotFound  FailureKind = "license_not_found"
)

func (k FailureKind) sentinel() error {
	switch k {
	case KindStoreUnavailable:
		return ErrStoreUnavailable
	case KindSwitchFailed:
		return ErrSwitchFailed
	case KindDuplicateActive:
		return ErrDuplicateActiveSubscription
	case KindLicenseNotFound:
		return ErrLicenseNotFound
	default:
		return nil
	}
}

// SwitchError is the failure result of a switch or a current-state read.
//
// Op names the step that failed. Unconfirmed is set when the outcome of a
// write is unknown (timeout or cancellation after the request was sent); the
// owner may then hold two Active rows, so the kind is always
// KindDuplicateActive.
type SwitchError struct {
	Kind        FailureKind
	Op          string
	Unconfirmed bool
	Err         error
}

func (e *SwitchError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		fmt.Fprintf(&b, " during %s", e.Op)
	}
	if e.Unconfirmed {
		b.WriteString(" (unconfirmed)")
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *SwitchError) Unwrap() error { return e.Err }

// Is matches the sentinel of the error kind, so callers can use
// errors.Is(err, ErrSwitchFailed) without knowing about SwitchError.
func (e *SwitchError) Is(target error) bool {
	sentinel := e.Kind.sentinel()
	return sentinel != nil && target == sentinel
}

// Retryable reports whether the caller may retry with no cleanup. Duplicate
// states need reconciliation and a missing license needs different input.
func (e *SwitchError) Retryable() bool {
	switch e.Kind {
	case KindStoreUnavailable, KindSwitchFailed:
		return true
	default:
		return false
	}
}

func newSwitchError(kind FailureKind, op string, err error) *SwitchError {
	return &SwitchError{Kind: kind, Op: op, Err: err}
}

func StoreUnavailable(op string, err error) *SwitchError {
	return newSwitchError(KindStoreUnavailable, op, err)
}

func SwitchFailed(op string, err error) *SwitchError {
	return newSwitchError(KindSwitchFailed, op, err)
}

func DuplicateActive(op string, err error) *SwitchError {
	return newSwitchError(KindDuplicateActive, op, err)
}

// UnconfirmedDuplicate reports a write whose outcome is unknown.
func UnconfirmedDuplicate(op string, err error) *SwitchError {
	e := newSwitchError(KindDuplicateActive, op, err)
	e.Unconfirmed = true
	return e
}

func LicenseNotFound(op string, err error) *SwitchError {
	return newSwitchError(KindLicenseNotFound, op, err)
}

// KindOf returns the failure kind of err, or "" when err is not a switch
// failure.
func KindOf(err error) FailureKind {
	var se *SwitchError
	if errors.As(err, &se) {
		return se.Kind
	}
	switch {
	case errors.Is(err, ErrDuplicateActiveSubscription):
		return KindDuplicateActive
	case errors.Is(err, ErrLicenseNotFound):
		return KindLicenseNotFound
	case errors.Is(err, ErrSwitchFailed):
		return KindSwitchFailed
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	default:
		return ""
	}
}
