package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestDescribeSQL(t *testing.T) {
	cases := []struct {
		sql   string
		op    string
		table string
	}{
		{`SELECT id FROM subscriptions WHERE profile_id = $1`, "SELECT", "subscriptions"},
		{`INSERT INTO "subscriptions" (id) VALUES ($1)`, "INSERT", "subscriptions"},
		{`UPDATE subscriptions SET status = 'Inactive'`, "UPDATE", "subscriptions"},
		{`DELETE FROM subscriptions WHERE id = ?`, "DELETE", "subscriptions"},
		{`SELECT switch_subscription($1, $2, $3, $4, $5)`, "SELECT", ""},
		{``, "UNKNOWN", ""},
	}
	for _, tc := range cases {
		op, table := describeSQL(tc.sql)
		assert.Equal(t, tc.op, op, tc.sql)
		assert.Equal(t, tc.table, table, tc.sql)
	}
}

func TestGormLoggerTraceLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	duplicate := errors.New("duplicate")
	l := NewGormLogger(zap.New(core), GormLoggerConfig{
		Level:                gormlogger.Warn,
		IgnoreRecordNotFound: true,
		ExpectedError:        func(err error) bool { return errors.Is(err, duplicate) },
	})

	fc := func() (string, int64) { return "INSERT INTO subscriptions VALUES (1)", 0 }
	ctx := context.Background()

	l.Trace(ctx, time.Now(), fc, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len())

	l.Trace(ctx, time.Now(), fc, duplicate)
	l.Trace(ctx, time.Now(), fc, errors.New("boom"))
	l.Trace(ctx, time.Now(), fc, nil)

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
		assert.Equal(t, "subscriptions", entries[1].ContextMap()["table"])
	}
}
