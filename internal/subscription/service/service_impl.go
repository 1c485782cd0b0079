package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/shopdesk/internal/audit/domain"
	"github.com/smallbiznis/shopdesk/internal/clock"
	"github.com/smallbiznis/shopdesk/internal/config"
	licensedomain "github.com/smallbiznis/shopdesk/internal/license/domain"
	"github.com/smallbiznis/shopdesk/internal/observability/metrics"
	subscriptiondomain "github.com/smallbiznis/shopdesk/internal/subscription/domain"
	"github.com/smallbiznis/shopdesk/internal/subscription/lease"
	"github.com/smallbiznis/shopdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	auditActionSwitch  = "subscription.switch"
	leaseReleaseBudget = 2 * time.Second
	refreshBudget      = 2 * time.Second
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     subscriptiondomain.Repository
	Licenses licensedomain.Service
	Locker   lease.Locker
	Policy   *config.SwitchConfigHolder
	Metrics  *metrics.Metrics    `optional:"true"`
	Audit    auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     subscriptiondomain.Repository
	licenses licensedomain.Service
	locker   lease.Locker
	policy   *config.SwitchConfigHolder
	metrics  *metrics.Metrics
	audit    auditdomain.Service
}

func NewService(p Params) subscriptiondomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("subscription.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		licenses: p.Licenses,
		locker:   p.Locker,
		policy:   p.Policy,
		metrics:  p.Metrics,
		audit:    p.Audit,
	}
}

func (s *Service) GetCurrent(ctx context.Context, ownerID snowflake.ID) (*subscriptiondomain.CurrentSubscription, error) {
	if ownerID == 0 {
		return nil, subscriptiondomain.ErrInvalidOwner
	}

	rows, err := s.repo.FindActiveByOwner(ctx, s.db, ownerID)
	if err != nil {
		return nil, subscriptiondomain.StoreUnavailable("get_current", err)
	}

	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return &rows[0], nil
	default:
		s.reportDuplicate(ctx, ownerID, "read", len(rows))
		return nil, subscriptiondomain.DuplicateActive("get_current",
			fmt.Errorf("owner has %d active subscriptions", len(rows)))
	}
}

func (s *Service) FindDuplicates(ctx context.Context) ([]subscriptiondomain.DuplicateOwner, error) {
	owners, err := s.repo.ListDuplicateOwners(ctx, s.db)
	if err != nil {
		return nil, subscriptiondomain.StoreUnavailable("scan_duplicates", err)
	}

	out := make([]subscriptiondomain.DuplicateOwner, 0, len(owners))
	for _, ownerID := range owners {
		rows, err := s.repo.FindActiveByOwner(ctx, s.db, ownerID)
		if err != nil {
			return nil, subscriptiondomain.StoreUnavailable("scan_duplicates", err)
		}
		// resolved between the two reads
		if len(rows) < 2 {
			continue
		}
		s.reportDuplicate(ctx, ownerID, "scan", len(rows))
		out = append(out, subscriptiondomain.DuplicateOwner{OwnerID: ownerID, Subscriptions: rows})
	}
	return out, nil
}

// switchAttempt collects what a switch did, for logs, metrics and audit.
type switchAttempt struct {
	ownerID        snowflake.ID
	licenseID      int64
	oldLicenseID   int64
	subscriptionID snowflake.ID
	path           string
}

// SwitchTo runs the whole switch under the policy timeout and while holding
// the owner's lease. Atomic modes write in one unit; saga mode inserts the
// new row before deactivating the old one and compensates a failed
// deactivation by deleting the new row.
func (s *Service) SwitchTo(ctx context.Context, ownerID snowflake.ID, licenseID int64) (*subscriptiondomain.CurrentSubscription, error) {
	if ownerID == 0 {
		return nil, subscriptiondomain.ErrInvalidOwner
	}

	policy := s.policy.Get()
	attempt := &switchAttempt{ownerID: ownerID, licenseID: licenseID, path: subscriptiondomain.SwitchPathNone}

	switchCtx, cancel := context.WithTimeout(ctx, policy.Timeout)
	current, err := s.switchTo(switchCtx, policy, attempt)
	cancel()

	s.finish(ctx, policy, attempt, err)
	if err != nil {
		return nil, err
	}
	return current, nil
}

func (s *Service) switchTo(ctx context.Context, policy config.SwitchConfig, attempt *switchAttempt) (*subscriptiondomain.CurrentSubscription, error) {
	if _, err := s.licenses.Get(ctx, attempt.licenseID); err != nil {
		if errors.Is(err, licensedomain.ErrNotFound) || errors.Is(err, licensedomain.ErrInvalidID) {
			return nil, subscriptiondomain.LicenseNotFound("validate_license", err)
		}
		return nil, subscriptiondomain.StoreUnavailable("validate_license", err)
	}

	release, err := s.locker.Acquire(ctx, lease.OwnerKey(attempt.ownerID), policy.LockTTL)
	if err != nil {
		if errors.Is(err, lease.ErrLeaseHeld) {
			return nil, subscriptiondomain.SwitchFailed("acquire_lease", err)
		}
		return nil, subscriptiondomain.StoreUnavailable("acquire_lease", err)
	}
	defer s.releaseLease(ctx, attempt.ownerID, release)

	actives, err := s.repo.ListActiveByOwner(ctx, s.db, attempt.ownerID)
	if err != nil {
		return nil, subscriptiondomain.StoreUnavailable("read_current", err)
	}
	if len(actives) > 1 {
		s.reportDuplicate(ctx, attempt.ownerID, "pre_switch", len(actives))
		return nil, subscriptiondomain.DuplicateActive("read_current",
			fmt.Errorf("owner has %d active subscriptions", len(actives)))
	}

	var old *subscriptiondomain.Subscription
	if len(actives) == 1 {
		old = &actives[0]
		attempt.oldLicenseID = old.LicenseID
		if old.LicenseID == attempt.licenseID {
			// already there, nothing to write
			attempt.subscriptionID = old.ID
			return s.confirm(ctx, attempt)
		}
	}

	now := s.clock.Now().UTC()
	next := subscriptiondomain.Subscription{
		ID:        s.genID.Generate(),
		LicenseID: attempt.licenseID,
		OwnerID:   attempt.ownerID,
		Status:    subscriptiondomain.SubscriptionStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	attempt.subscriptionID = next.ID

	useSaga := !policy.Atomic()
	if !useSaga {
		err := s.switchAtomic(ctx, policy.Mode, old, next, attempt)
		switch {
		case errors.Is(err, subscriptiondomain.ErrAtomicUnavailable):
			s.log.Warn("atomic switch unavailable, using saga",
				zap.String("owner_id", attempt.ownerID.String()),
				zap.String("mode", policy.Mode),
				zap.Error(err),
			)
			useSaga = true
		case err != nil:
			return nil, err
		}
	}

	if useSaga {
		attempt.path = subscriptiondomain.SwitchPathSaga
		if err := s.switchSaga(ctx, policy, old, next); err != nil {
			return nil, err
		}
	}

	return s.confirm(ctx, attempt)
}

// switchAtomic tries the configured primitive. A store without the stored
// procedure is given the transaction before the caller falls back to the saga.
func (s *Service) switchAtomic(ctx context.Context, mode string, old *subscriptiondomain.Subscription, next subscriptiondomain.Subscription, attempt *switchAttempt) error {
	req := subscriptiondomain.AtomicSwitch{New: next}
	if old != nil {
		req.OldID = old.ID
	}

	paths := []string{mode}
	if mode == subscriptiondomain.SwitchPathProcedure {
		paths = append(paths, subscriptiondomain.SwitchPathTransaction)
	}

	var err error
	for _, path := range paths {
		attempt.path = path
		err = s.repo.SwitchAtomic(ctx, s.db, path, req)
		if !errors.Is(err, subscriptiondomain.ErrAtomicUnavailable) {
			break
		}
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, subscriptiondomain.ErrAtomicUnavailable):
		return err
	case isUnavailable(err):
		return subscriptiondomain.StoreUnavailable("switch_atomic", err)
	default:
		return subscriptiondomain.SwitchFailed("switch_atomic", err)
	}
}

// switchSaga writes insert-before-deactivate. A failed insert leaves the old
// row untouched. A failed deactivation is undone by deleting the new row; if
// that undo fails, or the deactivation outcome is unknown, the owner may hold
// two Active rows and the failure says so.
func (s *Service) switchSaga(ctx context.Context, policy config.SwitchConfig, old *subscriptiondomain.Subscription, next subscriptiondomain.Subscription) error {
	if err := s.repo.Insert(ctx, s.db, &next); err != nil {
		switch {
		case isUnavailable(err):
			return subscriptiondomain.StoreUnavailable("insert", err)
		case isAmbiguous(err):
			return s.undoAmbiguousInsert(ctx, policy, old, next, err)
		default:
			return subscriptiondomain.SwitchFailed("insert", err)
		}
	}

	if old == nil {
		return nil
	}

	err := s.repo.Deactivate(ctx, s.db, old.ID, next.UpdatedAt)
	if err == nil {
		return nil
	}
	if isAmbiguous(err) {
		s.reportDuplicate(ctx, next.OwnerID, "unconfirmed", 2)
		return subscriptiondomain.UnconfirmedDuplicate("deactivate", err)
	}

	if cerr := s.compensate(ctx, policy, next.ID); cerr != nil {
		s.reportDuplicate(ctx, next.OwnerID, "compensation_failed", 2)
		dup := subscriptiondomain.DuplicateActive("compensate", errors.Join(err, cerr))
		dup.Unconfirmed = isAmbiguous(cerr)
		return dup
	}
	return subscriptiondomain.SwitchFailed("deactivate", err)
}

// undoAmbiguousInsert handles an insert whose outcome is unknown by deleting
// the row it may have created.
func (s *Service) undoAmbiguousInsert(ctx context.Context, policy config.SwitchConfig, old *subscriptiondomain.Subscription, next subscriptiondomain.Subscription, cause error) error {
	cerr := s.compensate(ctx, policy, next.ID)
	if cerr == nil {
		return subscriptiondomain.SwitchFailed("insert", cause)
	}
	if old == nil {
		// at worst the owner moved from no subscription to the new one
		return subscriptiondomain.SwitchFailed("insert", errors.Join(cause, cerr))
	}
	s.reportDuplicate(ctx, next.OwnerID, "unconfirmed", 2)
	return subscriptiondomain.UnconfirmedDuplicate("insert", errors.Join(cause, cerr))
}

// compensate deletes the row inserted by this switch. It runs on a context
// detached from the caller so an expired switch deadline does not prevent
// the undo.
func (s *Service) compensate(ctx context.Context, policy config.SwitchConfig, id snowflake.ID) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), policy.CompensationTimeout)
	defer cancel()

	if err := s.repo.Delete(cctx, s.db, id); err != nil {
		s.log.Error("compensating delete failed",
			zap.String("subscription_id", id.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// confirm re-reads the owner's Active rows. Only a single row bound to the
// requested license counts as success. The read is detached from the switch
// deadline because a write may already have landed.
func (s *Service) confirm(ctx context.Context, attempt *switchAttempt) (*subscriptiondomain.CurrentSubscription, error) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshBudget)
	defer cancel()

	rows, err := s.repo.FindActiveByOwner(rctx, s.db, attempt.ownerID)
	if err != nil {
		if attempt.path == subscriptiondomain.SwitchPathNone {
			return nil, subscriptiondomain.StoreUnavailable("refresh", err)
		}
		return nil, subscriptiondomain.SwitchFailed("refresh",
			fmt.Errorf("switch written but not confirmed: %w", err))
	}

	switch {
	case len(rows) > 1:
		s.reportDuplicate(ctx, attempt.ownerID, "refresh", len(rows))
		return nil, subscriptiondomain.DuplicateActive("refresh",
			fmt.Errorf("owner has %d active subscriptions", len(rows)))
	case len(rows) == 0:
		return nil, subscriptiondomain.SwitchFailed("refresh",
			fmt.Errorf("%w: no active subscription after switch", subscriptiondomain.ErrSubscriptionChanged))
	case rows[0].Subscription.LicenseID != attempt.licenseID:
		return nil, subscriptiondomain.SwitchFailed("refresh",
			fmt.Errorf("%w: active license is %d", subscriptiondomain.ErrSubscriptionChanged, rows[0].Subscription.LicenseID))
	}

	attempt.subscriptionID = rows[0].Subscription.ID
	return &rows[0], nil
}

func (s *Service) releaseLease(ctx context.Context, ownerID snowflake.ID, release lease.Release) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), leaseReleaseBudget)
	defer cancel()
	if err := release(rctx); err != nil {
		s.log.Warn("release switch lease failed", zap.String("owner_id", ownerID.String()), zap.Error(err))
	}
}

func (s *Service) reportDuplicate(ctx context.Context, ownerID snowflake.ID, reason string, count int) {
	s.metrics.RecordDuplicate(ctx, reason)
	s.log.Error("duplicate active subscriptions",
		zap.String("owner_id", ownerID.String()),
		zap.String("reason", reason),
		zap.Int("active_count", count),
	)
}

func (s *Service) finish(ctx context.Context, policy config.SwitchConfig, attempt *switchAttempt, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(subscriptiondomain.KindOf(err))
	}

	s.metrics.RecordSwitch(ctx, attempt.path, outcome)

	fields := []zap.Field{
		zap.String("owner_id", attempt.ownerID.String()),
		zap.Int64("license_id", attempt.licenseID),
		zap.Int64("old_license_id", attempt.oldLicenseID),
		zap.String("path", attempt.path),
		zap.String("outcome", outcome),
	}
	var se *subscriptiondomain.SwitchError
	switch {
	case err == nil:
		s.log.Info("subscription switched", fields...)
	case errors.As(err, &se) && se.Kind == subscriptiondomain.KindDuplicateActive:
		fields = append(fields, zap.String("op", se.Op), zap.Bool("unconfirmed", se.Unconfirmed), zap.Error(err))
		s.log.Error("subscription switch left duplicate state", fields...)
	case errors.As(err, &se):
		fields = append(fields, zap.String("op", se.Op), zap.Bool("retryable", se.Retryable()), zap.Error(err))
		s.log.Warn("subscription switch failed", fields...)
	default:
		s.log.Warn("subscription switch rejected", append(fields, zap.Error(err))...)
	}

	s.record(ctx, policy, attempt, outcome, se)
}

func (s *Service) record(ctx context.Context, policy config.SwitchConfig, attempt *switchAttempt, outcome string, se *subscriptiondomain.SwitchError) {
	if s.audit == nil {
		return
	}

	metadata := map[string]any{
		"new_license_id": attempt.licenseID,
		"path":           attempt.path,
		"outcome":        outcome,
	}
	if attempt.oldLicenseID != 0 {
		metadata["old_license_id"] = attempt.oldLicenseID
	}
	if se != nil {
		metadata["error_kind"] = string(se.Kind)
		metadata["op"] = se.Op
		metadata["unconfirmed"] = se.Unconfirmed
	}

	var targetID string
	if attempt.subscriptionID != 0 {
		targetID = attempt.subscriptionID.String()
	}

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), policy.CompensationTimeout)
	defer cancel()
	if err := s.audit.Record(actx, auditdomain.Entry{
		OwnerID:    attempt.ownerID,
		Action:     auditActionSwitch,
		TargetType: "subscription",
		TargetID:   targetID,
		Metadata:   metadata,
	}); err != nil {
		s.log.Warn("audit switch failed", zap.String("owner_id", attempt.ownerID.String()), zap.Error(err))
	}
}

func isUnavailable(err error) bool { return db.IsUnavailable(err) }

// isAmbiguous reports a write that may or may not have been applied.
func isAmbiguous(err error) bool { return db.IsAmbiguous(err) }
