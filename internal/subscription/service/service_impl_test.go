package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/shopdesk/internal/audit/domain"
	"github.com/smallbiznis/shopdesk/internal/clock"
	"github.com/smallbiznis/shopdesk/internal/config"
	licensedomain "github.com/smallbiznis/shopdesk/internal/license/domain"
	licenserepository "github.com/smallbiznis/shopdesk/internal/license/repository"
	licenseservice "github.com/smallbiznis/shopdesk/internal/license/service"
	subscriptiondomain "github.com/smallbiznis/shopdesk/internal/subscription/domain"
	"github.com/smallbiznis/shopdesk/internal/subscription/lease"
	"github.com/smallbiznis/shopdesk/internal/subscription/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testOwner = snowflake.ID(42)

type faultRepo struct {
	subscriptiondomain.Repository

	mu              sync.Mutex
	listErr         error
	findErr         error
	insertErr       error
	insertApplies   bool
	deactivateErr   error
	afterDeactivate func()
	deleteErr       error
	deleteCalls     int
}

func (f *faultRepo) FindActiveByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]subscriptiondomain.CurrentSubscription, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.Repository.FindActiveByOwner(ctx, db, ownerID)
}

func (f *faultRepo) ListActiveByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]subscriptiondomain.Subscription, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Repository.ListActiveByOwner(ctx, db, ownerID)
}

func (f *faultRepo) Insert(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	if f.insertErr == nil {
		return f.Repository.Insert(ctx, db, subscription)
	}
	if f.insertApplies {
		if err := f.Repository.Insert(ctx, db, subscription); err != nil {
			return err
		}
	}
	return f.insertErr
}

func (f *faultRepo) Deactivate(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	if f.deactivateErr != nil {
		return f.deactivateErr
	}
	if err := f.Repository.Deactivate(ctx, db, id, now); err != nil {
		return err
	}
	if f.afterDeactivate != nil {
		f.afterDeactivate()
	}
	return nil
}

func (f *faultRepo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	f.mu.Lock()
	f.deleteCalls++
	f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Repository.Delete(ctx, db, id)
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []auditdomain.Entry
}

func (r *recordingAudit) Record(_ context.Context, entry auditdomain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingAudit) ListByOwner(context.Context, snowflake.ID, int) ([]auditdomain.AuditLog, error) {
	return nil, nil
}

func (r *recordingAudit) last(t *testing.T) auditdomain.Entry {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.entries)
	return r.entries[len(r.entries)-1]
}

type fixture struct {
	db     *gorm.DB
	repo   *faultRepo
	locker *lease.LocalLocker
	audit  *recordingAudit
	clock  *clock.FakeClock
	node   *snowflake.Node
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&licensedomain.License{}, &subscriptiondomain.Subscription{}))

	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	for _, l := range []licensedomain.License{
		{ID: 1, Code: "free", Title: "Free", ShopQuota: 1, ProductQuota: 10, CreatedAt: now},
		{ID: 2, Code: "basic", Title: "Basic", PriceCents: 999, ShopQuota: 2, ProductQuota: 50, CreatedAt: now},
		{ID: 3, Code: "pro", Title: "Pro", PriceCents: 2999, ShopQuota: 10, ProductQuota: 500, CreatedAt: now},
	} {
		require.NoError(t, db.Create(&l).Error)
	}

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(now)

	return &fixture{
		db:     db,
		repo:   &faultRepo{Repository: repository.Provide()},
		locker: lease.NewLocalLocker(clk),
		audit:  &recordingAudit{},
		clock:  clk,
		node:   node,
	}
}

func (f *fixture) service(mode string) subscriptiondomain.Service {
	log := zap.NewNop()
	return NewService(Params{
		DB:       f.db,
		Log:      log,
		GenID:    f.node,
		Clock:    f.clock,
		Repo:     f.repo,
		Licenses: licenseservice.New(licenseservice.Params{DB: f.db, Log: log, Repo: licenserepository.Provide()}),
		Locker:   f.locker,
		Policy: config.NewStaticSwitchConfigHolder(config.SwitchConfig{
			Mode:                mode,
			Timeout:             2 * time.Second,
			LockTTL:             5 * time.Second,
			CompensationTimeout: time.Second,
		}),
		Audit: f.audit,
	})
}

func (f *fixture) subscribe(t *testing.T, id snowflake.ID, licenseID int64) {
	t.Helper()
	now := f.clock.Now()
	require.NoError(t, f.db.Create(&subscriptiondomain.Subscription{
		ID:        id,
		LicenseID: licenseID,
		OwnerID:   testOwner,
		Status:    subscriptiondomain.SubscriptionStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)
	f.clock.Advance(time.Second)
}

func (f *fixture) active(t *testing.T) []subscriptiondomain.Subscription {
	t.Helper()
	var rows []subscriptiondomain.Subscription
	require.NoError(t, f.db.Where("profile_id = ? AND status = ?", testOwner, subscriptiondomain.SubscriptionStatusActive).
		Order("id").Find(&rows).Error)
	return rows
}

func (f *fixture) total(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&subscriptiondomain.Subscription{}).Where("profile_id = ?", testOwner).Count(&n).Error)
	return n
}

func requireKind(t *testing.T, err error, kind subscriptiondomain.FailureKind) *subscriptiondomain.SwitchError {
	t.Helper()
	require.Error(t, err)
	var se *subscriptiondomain.SwitchError
	require.ErrorAs(t, err, &se)
	require.Equal(t, kind, se.Kind)
	return se
}

func TestGetCurrent(t *testing.T) {
	f := setupFixture(t)
	svc := f.service(config.SwitchModeSaga)

	current, err := svc.GetCurrent(context.Background(), testOwner)
	require.NoError(t, err)
	assert.Nil(t, current)

	f.subscribe(t, 100, 2)
	current, err = svc.GetCurrent(context.Background(), testOwner)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, snowflake.ID(100), current.Subscription.ID)
	assert.Equal(t, "basic", current.License.Code)
	assert.Equal(t, 2, current.License.ShopQuota)

	_, err = svc.GetCurrent(context.Background(), 0)
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidOwner)
}

func TestGetCurrentReportsDuplicates(t *testing.T) {
	f := setupFixture(t)
	f.subscribe(t, 100, 1)
	f.subscribe(t, 101, 2)

	_, err := f.service(config.SwitchModeSaga).GetCurrent(context.Background(), testOwner)
	se := requireKind(t, err, subscriptiondomain.KindDuplicateActive)
	assert.Equal(t, "get_current", se.Op)
	assert.ErrorIs(t, err, subscriptiondomain.ErrDuplicateActiveSubscription)
}

func TestSwitchToSucceedsInEveryMode(t *testing.T) {
	cases := []struct {
		mode string
		path string
	}{
		{mode: config.SwitchModeSaga, path: subscriptiondomain.SwitchPathSaga},
		{mode: config.SwitchModeTransaction, path: subscriptiondomain.SwitchPathTransaction},
		// no stored procedure outside postgres
		{mode: config.SwitchModeProcedure, path: subscriptiondomain.SwitchPathTransaction},
	}
	for _, tc := range cases {
		t.Run(tc.mode, func(t *testing.T) {
			f := setupFixture(t)
			f.subscribe(t, 100, 1)

			current, err := f.service(tc.mode).SwitchTo(context.Background(), testOwner, 2)
			require.NoError(t, err)
			assert.Equal(t, int64(2), current.Subscription.LicenseID)
			assert.Equal(t, "basic", current.License.Code)

			active := f.active(t)
			require.Len(t, active, 1)
			assert.Equal(t, int64(2), active[0].LicenseID)
			assert.Equal(t, int64(2), f.total(t))

			entry := f.audit.last(t)
			assert.Equal(t, "subscription.switch", entry.Action)
			assert.Equal(t, tc.path, entry.Metadata["path"])
			assert.Equal(t, "success", entry.Metadata["outcome"])
			assert.Equal(t, int64(1), entry.Metadata["old_license_id"])
		})
	}
}

func TestSwitchToFreshOwner(t *testing.T) {
	f := setupFixture(t)

	current, err := f.service(config.SwitchModeSaga).SwitchTo(context.Background(), testOwner, 3)
	require.NoError(t, err)
	assert.Equal(t, "pro", current.License.Code)
	require.Len(t, f.active(t), 1)
	assert.NotContains(t, f.audit.last(t).Metadata, "old_license_id")
}

func TestSwitchToSameLicenseIsNoop(t *testing.T) {
	f := setupFixture(t)
	f.subscribe(t, 100, 2)

	current, err := f.service(config.SwitchModeSaga).SwitchTo(context.Background(), testOwner, 2)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(100), current.Subscription.ID)
	assert.Equal(t, int64(1), f.total(t))
	assert.Equal(t, subscriptiondomain.SwitchPathNone, f.audit.last(t).Metadata["path"])
}

func TestSwitchToUnknownLicense(t *testing.T) {
	f := setupFixture(t)
	f.subscribe(t, 100, 1)

	_, err := f.service(config.SwitchModeSaga).SwitchTo(context.Background(), testOwner, 999)
	requireKind(t, err, subscriptiondomain.KindLicenseNotFound)
	assert.ErrorIs(t, err, subscriptiondomain.ErrLicenseNotFound)

	active := f.active(t)
	require.Len(t, active, 1)
	assert.Equal(t, int64(1), active[0].LicenseID)
	assert.Equal(t, int64(1), f.total(t))
}

func TestSwitchToInsertFailureLeavesStateUnchanged(t *testing.T) {
	f := setupFixture(t)
	f.subscribe(t, 100, 1)
	f.repo.insertErr = errors.New("check constraint failed")

	_, err := f.service(config.SwitchModeSaga).SwitchTo(context.Background(), testOwner, 2)
	se := requireKind(t, err, subscriptiondomain.KindSwitchFailed)
	assert.Equal(t, "insert", se.Op)
	assert.True(t, se.Retryable())
	assert.Zero(t, f.repo.deleteCalls)

	active := f.active(t)
	require.Len(t, active, 1)
	assert.Equal(t, int64(1), active[0].LicenseID)
}

func TestSwitchToCompensatesFailedDeactivate(t *testing.T) {
	f := setupFixture(t)
	f.subscribe(t, 100, 1)
	f.repo.deactivateErr = errors.New("row lock timeout")

	_, err := f.service(config.SwitchModeSaga).SwitchTo(context.Background(), testOwner, 2)
	se := requireKind(t, err, subscriptiondomain.KindSwitchFailed)
	assert.Equal(t, "deactivate", se.Op)
	assert.Equal(t, 1, f.repo.deleteCalls)

	active := f.active(t)
	require.Len(t, active, 1)
	assert.Equal(t, snowflake.ID(100), active[0].ID)
	assert.Equal(t, int64(1), f.total(t))
}

func TestSwitchToReportsDuplicateWhenCompensationFails(t *testing.T) {
	f := setupFixture(t)
	f.subscribe(t, 100, 1)
	f.repo.deactivateErr = errors.New("row lock timeout")
	f.repo.deleteErr = errors.New("permission denied")
	svc := f.service(config.SwitchModeSaga)

	_, err := svc.SwitchTo(context.Background(), testOwner, 2)
	se := requireKind(t, err, subscriptiondomain.KindDuplicateActive)
	assert.Equal(t, "compensate", se.Op)
	assert.False(t, se.Unconfirmed)
	assert.False(t, se.Retryable())
	assert.Len(t, f.active(t), 2)
	assert.Equal(t, string(subscriptiondomain.KindDuplicateActive), f.audit.last(t).Metadata["error_kind"])

	_, err = svc.GetCurrent(context.Background(), testOwner)
	requireKind(t, err, subscriptiondomain.KindDuplicateActive)

	dups, err := svc.FindDuplicates(context.Background())
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, testOwner, dups[0].OwnerID)
	assert.Len(t, dups[0].Subscriptions, 2)
}

func TestSwitchToUnconfirmedDeactivate(t *testing.T) {
	f := setupFixture(t)
	f.subscribe(t, 100, 1)
	f.repo.deactivateErr = context.DeadlineExceeded

	_, err := f.service(config.SwitchModeSaga).SwitchTo(context.Background(), testOwner, 2)
	se := requireKind(t, err, subscriptiondomain.KindDuplicateActive)
	assert.True(t, se.Unconfirmed)
	assert.Zero(t, f.repo.deleteCalls)
	assert.Equal(t, true, f.audit.last(t).Metadata["unconfirmed"])
}

func TestSwitchToCompensationTimeoutIsUnconfirmed(t *testing.T) {
	f := setupFixture(t)
	f.subscribe(t, 100, 1)
	f.repo.deactivateErr = errors.New("row lock timeout")
	f.repo.deleteErr = context.DeadlineExceeded

	_, err := f.service(config.SwitchModeSaga).SwitchTo(context.Background(), testOwner, 2)
	se := requireKind(t, err, subscriptiondomain.KindDuplicateActive)
	assert.Equal(t, "compensate", se.Op)
	assert.True(t, se.Unconfirmed)
	assert.Equal(t, 1, f.repo.deleteCalls)
	assert.Len(t, f.active(t), 2)
	assert.Equal(t, true, f.audit.last(t).Metadata["unconfirmed"])
}

func TestSwitchToConfirmsAfterCallerCancels(t *testing.T) {
	f := setupFixture(t)
	f.subscribe(t, 100, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.repo.afterDeactivate = cancel

	current, err := f.service(config.SwitchModeSaga).SwitchTo(ctx, testOwner, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), current.Subscription.LicenseID)
	require.Len(t, f.active(t), 1)
}

func TestSwitchToRefreshFailure(t *testing.T) {
	f := setupFixture(t)
	f.subscribe(t, 100, 1)
	svc := f.service(config.SwitchModeSaga)

	f.repo.findErr = driver.ErrBadConn
	_, err := svc.SwitchTo(context.Background(), testOwner, 2)
	se := requireKind(t, err, subscriptiondomain.KindSwitchFailed)
	assert.Equal(t, "refresh", se.Op)
	assert.True(t, se.Retryable())

	// the write landed, so a retry finds the owner already switched
	active := f.active(t)
	require.Len(t, active, 1)
	assert.Equal(t, int64(2), active[0].LicenseID)

	// nothing was written on the same-license path
	_, err = svc.SwitchTo(context.Background(), testOwner, 2)
	requireKind(t, err, subscriptiondomain.KindStoreUnavailable)

	f.repo.findErr = nil
	current, err := svc.SwitchTo(context.Background(), testOwner, 2)
	require.NoError(t, err)
	assert.Equal(t, active[0].ID, current.Subscription.ID)
	assert.Equal(t, subscriptiondomain.SwitchPathNone, f.audit.last(t).Metadata["path"])
}

func TestSwitchToUndoesAmbiguousInsert(t *testing.T) {
	f := setupFixture(t)
	f.subscribe(t, 100, 1)
	f.repo.insertErr = context.DeadlineExceeded
	f.repo.insertApplies = true

	_, err := f.service(config.SwitchModeSaga).SwitchTo(context.Background(), testOwner, 2)
	requireKind(t, err, subscriptiondomain.KindSwitchFailed)
	assert.Equal(t, 1, f.repo.deleteCalls)

	active := f.active(t)
	require.Len(t, active, 1)
	assert.Equal(t, snowflake.ID(100), active[0].ID)
}

func TestSwitchToAmbiguousInsertWithoutUndo(t *testing.T) {
	f := setupFixture(t)
	f.subscribe(t, 100, 1)
	f.repo.insertErr = context.DeadlineExceeded
	f.repo.insertApplies = true
	f.repo.deleteErr = context.DeadlineExceeded

	_, err := f.service(config.SwitchModeSaga).SwitchTo(context.Background(), testOwner, 2)
	se := requireKind(t, err, subscriptiondomain.KindDuplicateActive)
	assert.True(t, se.Unconfirmed)
	assert.Equal(t, "insert", se.Op)
	assert.Len(t, f.active(t), 2)
}

func TestSwitchToRejectsDuplicateBeforeWriting(t *testing.T) {
	f := setupFixture(t)
	f.subscribe(t, 100, 1)
	f.subscribe(t, 101, 2)

	_, err := f.service(config.SwitchModeSaga).SwitchTo(context.Background(), testOwner, 3)
	se := requireKind(t, err, subscriptiondomain.KindDuplicateActive)
	assert.Equal(t, "read_current", se.Op)
	assert.Equal(t, int64(2), f.total(t))
}

func TestSwitchToStoreUnavailable(t *testing.T) {
	f := setupFixture(t)
	f.repo.listErr = driver.ErrBadConn

	_, err := f.service(config.SwitchModeSaga).SwitchTo(context.Background(), testOwner, 2)
	se := requireKind(t, err, subscriptiondomain.KindStoreUnavailable)
	assert.True(t, se.Retryable())
	assert.ErrorIs(t, err, subscriptiondomain.ErrStoreUnavailable)
	assert.Zero(t, f.total(t))
}

func TestSwitchToLeaseHeld(t *testing.T) {
	f := setupFixture(t)
	f.subscribe(t, 100, 1)

	release, err := f.locker.Acquire(context.Background(), lease.OwnerKey(testOwner), time.Minute)
	require.NoError(t, err)
	defer release(context.Background())

	_, err = f.service(config.SwitchModeSaga).SwitchTo(context.Background(), testOwner, 2)
	se := requireKind(t, err, subscriptiondomain.KindSwitchFailed)
	assert.Equal(t, "acquire_lease", se.Op)
	assert.ErrorIs(t, err, lease.ErrLeaseHeld)
	assert.Equal(t, int64(1), f.total(t))
}

func TestSwitchToReleasesLease(t *testing.T) {
	f := setupFixture(t)
	svc := f.service(config.SwitchModeSaga)

	_, err := svc.SwitchTo(context.Background(), testOwner, 1)
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	_, err = svc.SwitchTo(context.Background(), testOwner, 2)
	require.NoError(t, err)

	active := f.active(t)
	require.Len(t, active, 1)
	assert.Equal(t, int64(2), active[0].LicenseID)
}

func TestConcurrentSwitchesKeepOneActive(t *testing.T) {
	f := setupFixture(t)
	f.subscribe(t, 100, 1)
	svc := f.service(config.SwitchModeSaga)

	var wg sync.WaitGroup
	for _, licenseID := range []int64{2, 3, 2, 3, 1, 2} {
		wg.Add(1)
		go func(licenseID int64) {
			defer wg.Done()
			_, _ = svc.SwitchTo(context.Background(), testOwner, licenseID)
		}(licenseID)
	}
	wg.Wait()

	assert.Len(t, f.active(t), 1)
}

func TestFindDuplicatesEmpty(t *testing.T) {
	f := setupFixture(t)
	f.subscribe(t, 100, 1)

	dups, err := f.service(config.SwitchModeSaga).FindDuplicates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dups)
}
