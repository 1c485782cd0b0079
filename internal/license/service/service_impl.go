package service

import (
	"context"

	"github.com/smallbiznis/shopdesk/internal/license/domain"
	"github.com/smallbiznis/shopdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("license.service"),
		repo: p.Repo,
	}
}

func (s *Service) List(ctx context.Context) ([]domain.License, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		s.log.Warn("list licenses failed", zap.Error(err))
		return nil, db.Unavailable(err)
	}
	if items == nil {
		items = []domain.License{}
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.License, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		s.log.Warn("load license failed", zap.Int64("license_id", id), zap.Error(err))
		return nil, db.Unavailable(err)
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}
