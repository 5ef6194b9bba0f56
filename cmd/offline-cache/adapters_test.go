package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedisLogger_Printf(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewRedisLogger(zap.New(core))

	logger.Printf(context.Background(), "redis: discarding bad conn: %v", "EOF")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, "redis", entries[0].LoggerName)
	assert.Equal(t, "redis: discarding bad conn: EOF", entries[0].Message)
}
