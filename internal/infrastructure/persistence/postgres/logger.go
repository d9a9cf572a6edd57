package postgres

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// GORMLogWriter implements GORM's Writer interface on top of zap
type GORMLogWriter struct {
	logger *zap.Logger
}

// Printf implements the Writer interface
func (w *GORMLogWriter) Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	switch {
	case strings.Contains(msg, "SLOW SQL"):
		w.logger.Warn("GORM slow query", zap.String("message", msg))
	case strings.Contains(msg, "ERROR") || strings.Contains(msg, "error"):
		w.logger.Error("GORM error", zap.String("message", msg))
	default:
		w.logger.Debug("GORM log", zap.String("message", msg))
	}
}

func newGORMLogger(log *zap.Logger, connConfig ConnectionConfig) logger.Interface {
	return logger.New(
		&GORMLogWriter{logger: log},
		logger.Config{
			SlowThreshold:             connConfig.SlowQueryThreshold,
			LogLevel:                  gormLogLevel(connConfig.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
