package models

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes GORM output through logrus. Queries are logged at trace
// level, slow queries and query errors at warn.
type GormLogger struct {
	logger        *log.Logger
	slowThreshold time.Duration
}

func NewGormLogger(logger *log.Logger, slowThreshold time.Duration) *GormLogger {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &GormLogger{logger: logger, slowThreshold: slowThreshold}
}

// LogMode is a no-op, the level comes from logrus.
func (g *GormLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface {
	return g
}

func (g *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	g.logger.WithContext(ctx).Debugf(msg, data...)
}

func (g *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	g.logger.WithContext(ctx).Warnf(msg, data...)
}

func (g *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	g.logger.WithContext(ctx).Errorf(msg, data...)
}

func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	entry := g.logger.WithContext(ctx).WithFields(log.Fields{
		"sql":         sql,
		"rows":        rows,
		"duration_ms": elapsed.Milliseconds(),
	})

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		entry.WithError(err).Warn("query error")
	case g.slowThreshold > 0 && elapsed > g.slowThreshold:
		entry.Warn("slow query")
	default:
		entry.Trace("sql query")
	}
}
