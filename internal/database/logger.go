package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// QueryLogger sends gorm's statement log to zap. Failed statements log at
// error, statements slower than SlowThreshold at warn, and the rest only
// when Level is Info and ShowSQL is set.
type QueryLogger struct {
	log           *zap.Logger
	Level         logger.LogLevel
	SlowThreshold time.Duration
	ShowSQL       bool
}

func NewQueryLogger(log *zap.Logger, level logger.LogLevel, slowThreshold time.Duration, showSQL bool) *QueryLogger {
	return &QueryLogger{
		log:           log.Named("gorm"),
		Level:         level,
		SlowThreshold: slowThreshold,
		ShowSQL:       showSQL,
	}
}

func (l *QueryLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.Level = level
	return &cp
}

func (l *QueryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.Level >= logger.Info {
		l.log.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *QueryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.Level >= logger.Warn {
		l.log.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *QueryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.Level >= logger.Error {
		l.log.Error(fmt.Sprintf(msg, data...))
	}
}

// Trace is called by gorm after every statement. Record-not-found is a normal
// outcome for lookups here and is never logged as a failure.
func (l *QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, logger.ErrRecordNotFound)
	slow := l.SlowThreshold > 0 && elapsed > l.SlowThreshold

	var msg string
	switch {
	case failed && l.Level >= logger.Error:
		msg = "[DB] query failed"
	case slow && l.Level >= logger.Warn:
		msg = "[DB] slow query"
	case l.Level == logger.Info && l.ShowSQL:
		msg = "[DB] query"
	default:
		return
	}

	sql, rows := fc()
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
		zap.String("caller", utils.FileWithLineNum()),
	}
	switch {
	case failed:
		l.log.Error(msg, append(fields, zap.Error(err))...)
	case slow:
		l.log.Warn(msg, append(fields, zap.Duration("threshold", l.SlowThreshold))...)
	default:
		l.log.Info(msg, fields...)
	}
}
