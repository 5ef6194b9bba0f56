package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// RedisLogger adapts zap.Logger to the go-redis internal logger
type RedisLogger struct {
	logger *zap.Logger
}

// NewRedisLogger creates a new RedisLogger adapter
func NewRedisLogger(logger *zap.Logger) *RedisLogger {
	return &RedisLogger{logger: logger.Named("redis")}
}

// Printf logs a go-redis message. go-redis only logs connection trouble,
// so messages are reported as warnings.
func (l *RedisLogger) Printf(_ context.Context, format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}
