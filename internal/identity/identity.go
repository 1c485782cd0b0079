// Package identity exposes who is calling. Authentication happens upstream;
// the gateway forwards the caller in request headers.
package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidRole     = errors.New("invalid_role")
)

// User is the authenticated caller. For a shop owner the user id is also the
// owner id of their shops and subscription.
type User struct {
	ID   snowflake.ID `json:"id"`
	Role string       `json:"role"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Subject is the casbin subject of the user.
func (u User) Subject() string { return "user:" + u.ID.String() }

type Provider interface {
	CurrentUser(ctx context.Context) (*User, error)
}

type userContextKey struct{}

func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// ContextProvider reads the user the middleware put on the request context.
type ContextProvider struct{}

func NewContextProvider() Provider {
	return ContextProvider{}
}

func (ContextProvider) CurrentUser(ctx context.Context) (*User, error) {
	if ctx == nil {
		return nil, ErrUnauthenticated
	}
	user, ok := ctx.Value(userContextKey{}).(User)
	if !ok || user.ID == 0 {
		return nil, ErrUnauthenticated
	}
	return &user, nil
}

// NormalizeRole maps a header value to a known role. Empty means user.
func NormalizeRole(raw string) (string, error) {
	switch role := strings.ToLower(strings.TrimSpace(raw)); role {
	case "":
		return RoleUser, nil
	case RoleUser, RoleAdmin:
		return role, nil
	default:
		return "", ErrInvalidRole
	}
}

var Module = fx.Module("identity",
	fx.Provide(NewContextProvider),
)
