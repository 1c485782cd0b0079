package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shopdesk/internal/audit/domain"
	"github.com/smallbiznis/shopdesk/pkg/db/option"
	"github.com/smallbiznis/shopdesk/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_logs (
			id, owner_id, actor_type, actor_id, action, target_type, target_id,
			metadata, request_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.OwnerID,
		entry.ActorType,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.Metadata,
		entry.RequestID,
		entry.CreatedAt,
	).Error
}

func (r *repo) ListByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, limit int) ([]*domain.AuditLog, error) {
	return repository.ProvideStore[domain.AuditLog](db).Find(ctx,
		&domain.AuditLog{OwnerID: ownerID},
		option.WithSortBy("created_at", "desc"),
		option.WithSortBy("id", "desc"),
		option.WithLimit(limit),
	)
}
