package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/shopdesk/internal/audit/domain"
	"github.com/smallbiznis/shopdesk/internal/identity"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectLicense      = "license"
	ObjectSubscription = "subscription"
	ObjectUsage        = "usage"
	ObjectAuditLog     = "audit_log"
)

const (
	ActionLicenseView        = "license.view"
	ActionSubscriptionView   = "subscription.view"
	ActionSubscriptionSwitch = "subscription.switch"
	ActionSubscriptionAudit  = "subscription.audit"
	ActionUsageView          = "usage.view"
	ActionAuditLogView       = "audit_log.view"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, user *identity.User, object string, action string) error {
	if user == nil || user.ID == 0 {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := user.Subject()
	if err := s.ensureGrouping(subject, roleName(user.Role)); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Warn("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
		s.auditDenied(ctx, user, object, action)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps exactly one role link per subject. The role comes from
// the gateway on every request and may change between requests.
func (s *ServiceImpl) ensureGrouping(subject string, role string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == role {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, role)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, role)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, user *identity.User, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.Record(context.WithoutCancel(ctx), auditdomain.Entry{
		OwnerID:    user.ID,
		Action:     "authorization.denied",
		TargetType: "authorization",
		TargetID:   object,
		Metadata: map[string]any{
			"object":  object,
			"action":  action,
			"role":    user.Role,
			"subject": user.Subject(),
		},
	}); err != nil {
		s.log.Warn("audit authorization denial failed", zap.Error(err))
	}
}

func roleName(role string) string {
	return "role:" + strings.ToLower(strings.TrimSpace(role))
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Shop owners
		{"role:user", ObjectLicense, ActionLicenseView},
		{"role:user", ObjectSubscription, ActionSubscriptionView},
		{"role:user", ObjectSubscription, ActionSubscriptionSwitch},
		{"role:user", ObjectUsage, ActionUsageView},

		// Marketplace admins
		{"role:admin", ObjectLicense, ActionLicenseView},
		{"role:admin", ObjectSubscription, ActionSubscriptionView},
		{"role:admin", ObjectSubscription, ActionSubscriptionSwitch},
		{"role:admin", ObjectUsage, ActionUsageView},
		{"role:admin", ObjectSubscription, ActionSubscriptionAudit},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
