package authorization

import (
	"context"
	"errors"

	"github.com/smallbiznis/shopdesk/internal/identity"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

type Service interface {
	// Authorize returns ErrForbidden when the user's role does not grant
	// action on object.
	Authorize(ctx context.Context, user *identity.User, object string, action string) error
}
