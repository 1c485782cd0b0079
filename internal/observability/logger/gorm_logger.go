package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerConfig configures the GORM zap logger.
type GormLoggerConfig struct {
	Level                gormlogger.LogLevel
	SlowThreshold        time.Duration
	IgnoreRecordNotFound bool
	// ExpectedError marks errors the caller handles itself, such as unique
	// violations raised by the active-subscription index. They log at warn.
	ExpectedError func(error) bool
}

func DefaultGormLoggerConfig() GormLoggerConfig {
	return GormLoggerConfig{
		Level:                gormlogger.Warn,
		SlowThreshold:        200 * time.Millisecond,
		IgnoreRecordNotFound: true,
	}
}

// GormLogger implements gormlogger.Interface on top of zap.
type GormLogger struct {
	base *zap.Logger
	cfg  GormLoggerConfig
}

func NewGormLogger(base *zap.Logger, cfg GormLoggerConfig) *GormLogger {
	if base == nil {
		base = zap.L()
	}
	return &GormLogger{base: base.Named("gorm"), cfg: cfg}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.cfg.Level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.cfg.Level < gormlogger.Info {
		return
	}
	l.log(ctx).Info(msg, zap.Any("data", data))
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.cfg.Level < gormlogger.Warn {
		return
	}
	l.log(ctx).Warn(msg, zap.Any("data", data))
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.cfg.Level < gormlogger.Error {
		return
	}
	l.log(ctx).Error(msg, zap.Any("data", data))
}

// Trace logs SQL statements with structured fields.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && errors.Is(err, gormlogger.ErrRecordNotFound) && l.cfg.IgnoreRecordNotFound:
		return
	case err != nil && l.cfg.ExpectedError != nil && l.cfg.ExpectedError(err) && l.cfg.Level >= gormlogger.Warn:
		l.logQuery(ctx, fc, elapsed, err, zap.WarnLevel)
	case err != nil && l.cfg.Level >= gormlogger.Error:
		l.logQuery(ctx, fc, elapsed, err, zap.ErrorLevel)
	case l.cfg.SlowThreshold != 0 && elapsed > l.cfg.SlowThreshold && l.cfg.Level >= gormlogger.Warn:
		l.logQuery(ctx, fc, elapsed, nil, zap.WarnLevel)
	case l.cfg.Level >= gormlogger.Info:
		l.logQuery(ctx, fc, elapsed, nil, zap.DebugLevel)
	}
}

// ParamsFilter strips bound values so owner ids never reach the logs.
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

func (l *GormLogger) log(ctx context.Context) *zap.Logger {
	return WithContext(ctx, l.base)
}

func (l *GormLogger) logQuery(ctx context.Context, fc func() (string, int64), elapsed time.Duration, err error, level zapcore.Level) {
	sql, rows := fc()
	op, table := describeSQL(sql)
	fields := []zap.Field{
		zap.String("sql", strings.TrimSpace(sql)),
		zap.String("operation", op),
		zap.String("table", table),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows_affected", rows))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	if ce := l.log(ctx).Check(level, "gorm.query"); ce != nil {
		ce.Write(fields...)
	}
}

// describeSQL returns the statement verb and the first table it touches.
func describeSQL(sql string) (string, string) {
	tokens := strings.Fields(strings.ToUpper(strings.TrimSpace(sql)))
	op := "UNKNOWN"
	for i, token := range tokens {
		token = strings.Trim(token, "();")
		switch token {
		case "SELECT", "INSERT", "UPDATE", "DELETE", "CALL":
			if op == "UNKNOWN" {
				op = token
			}
			if token == "UPDATE" && i+1 < len(tokens) {
				return op, tableName(tokens[i+1])
			}
		case "FROM", "INTO":
			if i+1 < len(tokens) {
				return op, tableName(tokens[i+1])
			}
		}
	}
	return op, ""
}

func tableName(token string) string {
	return strings.ToLower(strings.Trim(token, "`\"();"))
}

var _ gormlogger.Interface = (*GormLogger)(nil)
