package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/shopdesk/internal/audit/domain"
	"github.com/smallbiznis/shopdesk/internal/clock"
	obscontext "github.com/smallbiznis/shopdesk/internal/observability/context"
	"github.com/smallbiznis/shopdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, entry auditdomain.Entry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	if entry.OwnerID == 0 {
		return auditdomain.ErrInvalidOwner
	}

	targetType := strings.TrimSpace(entry.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	actorType, actorID := obscontext.ActorFromContext(ctx)
	if actorType == "" {
		actorType = "system"
	}

	payload := map[string]any{}
	for key, value := range entry.Metadata {
		if strings.TrimSpace(key) == "" {
			continue
		}
		payload[key] = value
	}

	log := &auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		OwnerID:    entry.OwnerID,
		ActorType:  actorType,
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   strings.TrimSpace(entry.TargetID),
		Metadata:   datatypes.JSONMap(payload),
		RequestID:  obscontext.RequestIDFromContext(ctx),
		CreatedAt:  s.clock.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, s.db, log); err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("owner_id", entry.OwnerID.String()),
			zap.Error(err),
		)
		return db.Unavailable(err)
	}
	return nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID snowflake.ID, limit int) ([]auditdomain.AuditLog, error) {
	if ownerID == 0 {
		return nil, auditdomain.ErrInvalidOwner
	}
	switch {
	case limit <= 0:
		limit = auditdomain.DefaultListLimit
	case limit > auditdomain.MaxListLimit:
		limit = auditdomain.MaxListLimit
	}

	rows, err := s.repo.ListByOwner(ctx, s.db, ownerID, limit)
	if err != nil {
		return nil, db.Unavailable(err)
	}

	out := make([]auditdomain.AuditLog, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			out = append(out, *row)
		}
	}
	return out, nil
}
