package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditLog records one administrative action against an owner's
// subscription state.
type AuditLog struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	OwnerID    snowflake.ID      `json:"owner_id" gorm:"column:owner_id;not null;index:idx_audit_logs_owner_created,priority:1"`
	ActorType  string            `json:"actor_type" gorm:"type:varchar(32);not null"`
	ActorID    string            `json:"actor_id" gorm:"type:varchar(64);not null;default:''"`
	Action     string            `json:"action" gorm:"type:varchar(64);not null"`
	TargetType string            `json:"target_type" gorm:"type:varchar(64);not null"`
	TargetID   string            `json:"target_id" gorm:"type:varchar(64);not null;default:''"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	RequestID  string            `json:"request_id,omitempty" gorm:"type:varchar(64);not null;default:''"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null;index:idx_audit_logs_owner_created,priority:2"`
}

func (AuditLog) TableName() string { return "audit_logs" }
