package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Entry is what a caller knows about an action. Actor and request id are
// taken from the context.
type Entry struct {
	OwnerID    snowflake.ID
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

type Service interface {
	Record(ctx context.Context, entry Entry) error
	ListByOwner(ctx context.Context, ownerID snowflake.ID, limit int) ([]AuditLog, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	ListByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, limit int) ([]*AuditLog, error)
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

var (
	ErrInvalidOwner  = errors.New("invalid_owner")
	ErrInvalidAction = errors.New("invalid_action")
)
